// Package google implements Google sign-in: the OIDC authorization-code flow
// with PKCE, state and nonce.
package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Issuer is Google's OIDC issuer.
const Issuer = "https://accounts.google.com"

var (
	ErrNoIDToken     = errors.New("token response has no id_token")
	ErrNonceMismatch = errors.New("id token nonce does not match")
	ErrUnverified    = errors.New("google account email is not verified")
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Identity is the verified result of a Google sign-in.
type Identity struct {
	Subject string
	Email   string
	Name    string
	// RawIDToken is forwarded to ClubFlow, which performs its own verification.
	RawIDToken string
}

// Provider runs the flow against one OIDC issuer.
type Provider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewProvider discovers the Google issuer.
// PRE: cfg has client id, secret and redirect URL
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	return NewProviderForIssuer(ctx, Issuer, cfg)
}

// NewProviderForIssuer discovers an arbitrary issuer; tests point this at a fake.
func NewProviderForIssuer(ctx context.Context, issuer string, cfg Config) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", issuer, err)
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL returns the consent URL for a challenge.
func (p *Provider) AuthCodeURL(c Challenge) string {
	return p.oauth.AuthCodeURL(c.State,
		oidc.Nonce(c.Nonce),
		oauth2.S256ChallengeOption(c.Verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange redeems the authorization code and verifies the ID token.
// POST: returned identity has a verified email and matching nonce
func (p *Provider) Exchange(ctx context.Context, code string, c Challenge) (Identity, error) {
	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(c.Verifier))
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return Identity{}, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, fmt.Errorf("verify id token: %w", err)
	}
	if idToken.Nonce != c.Nonce {
		return Identity{}, ErrNonceMismatch
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("decode claims: %w", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return Identity{}, ErrUnverified
	}
	return Identity{Subject: idToken.Subject, Email: claims.Email, Name: claims.Name, RawIDToken: raw}, nil
}

func randomString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
