package clubflow

import (
	"context"
	"errors"
	"net/http"
)

// Login exchanges email and password for a session.
// POST: returns ErrInvalidCredentials (wrapped) on rejected credentials
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login/", "", body, &out, true); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

// LoginWithGoogle exchanges a verified Google ID token for a session.
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"id_token": idToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/social/google/", "", body, &out, true); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refresh string) (TokenPair, error) {
	var out TokenPair
	body := map[string]string{"refresh": refresh}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token/refresh/", "", body, &out, false); err != nil {
		return TokenPair{}, err
	}
	if out.Access == "" {
		return TokenPair{}, ErrUnauthorized
	}
	return out, nil
}

// Logout revokes the refresh token. An already-revoked token is not an error.
func (c *Client) Logout(ctx context.Context, access, refresh string) error {
	if refresh == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout/", access, map[string]string{"refresh": refresh}, nil, false)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil
	}
	return err
}

// RequestPasswordReset asks ClubFlow to email a reset link. ClubFlow answers
// the same way whether or not the address is known.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/password-reset/", "", map[string]string{"email": email}, nil, false)
}
