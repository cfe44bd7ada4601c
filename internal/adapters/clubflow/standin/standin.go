// Package standin is an in-process ClubFlow used in development and tests.
// It implements the endpoints the portal calls, with seeded accounts and data.
package standin

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/domain/viewer"
)

// DevPassword is the password of every seeded account.
const DevPassword = "fitrit-dev!"

const (
	issuer           = "clubflow-standin"
	defaultAccessTTL = 15 * time.Minute
	bcryptCost       = 10
)

var (
	errBadToken   = errors.New("token is invalid or expired")
	errNoAccount  = errors.New("account not found")
	errBadRefresh = errors.New("refresh token is invalid")
)

// Claims are carried in stand-in access tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

type account struct {
	profile      viewer.Profile
	passwordHash []byte
}

// Options configures the stand-in.
type Options struct {
	// Secret signs access tokens. A random secret is generated when empty.
	Secret    []byte
	AccessTTL time.Duration
	Now       func() time.Time
}

// Server is the stand-in ClubFlow backend.
type Server struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time

	mu       sync.Mutex
	accounts map[string]*account // by lower-cased email
	refresh  map[string]string   // refresh token -> user id
	resets   []string
	data     fixtures

	dummyHash []byte
}

// New creates a stand-in seeded with one account per role.
// POST: every seeded account accepts DevPassword
func New(opts Options) (*Server, error) {
	if len(opts.Secret) == 0 {
		opts.Secret = make([]byte, 32)
		if _, err := rand.Read(opts.Secret); err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DevPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash dev password: %w", err)
	}

	s := &Server{
		secret:    opts.Secret,
		accessTTL: opts.AccessTTL,
		now:       opts.Now,
		accounts:  make(map[string]*account),
		refresh:   make(map[string]string),
		dummyHash: hash,
	}
	for _, p := range seedProfiles() {
		s.accounts[strings.ToLower(p.Email)] = &account{profile: p, passwordHash: hash}
	}
	s.data = seedFixtures(opts.Now())
	return s, nil
}

// SeededProfiles lists the seeded accounts.
func SeededProfiles() []viewer.Profile { return seedProfiles() }

// authenticate checks a password and returns a fresh token pair.
func (s *Server) authenticate(email, password string) (clubflow.AuthResult, error) {
	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	s.mu.Unlock()
	if !ok {
		// Compare anyway so unknown emails take as long as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password+"x"))
		return clubflow.AuthResult{}, errNoAccount
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return clubflow.AuthResult{}, errNoAccount
	}
	return s.issue(acct.profile)
}

// federated signs in the account matching email, creating a customer if none exists.
func (s *Server) federated(email, name string) (clubflow.AuthResult, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	acct, ok := s.accounts[key]
	if !ok {
		first, _, _ := strings.Cut(name, " ")
		acct = &account{profile: viewer.Profile{
			ID:        "usr-" + randomHex(6),
			Email:     email,
			FirstName: first,
			FullName:  name,
			UserType:  viewer.TypeCustomer,
		}}
		s.accounts[key] = acct
	}
	profile := acct.profile
	s.mu.Unlock()
	return s.issue(profile)
}

func (s *Server) issue(p viewer.Profile) (clubflow.AuthResult, error) {
	access, err := s.accessToken(p)
	if err != nil {
		return clubflow.AuthResult{}, err
	}
	refresh := randomHex(32)
	s.mu.Lock()
	s.refresh[refresh] = p.ID
	s.mu.Unlock()
	return clubflow.AuthResult{User: p, Access: access, Refresh: refresh}, nil
}

func (s *Server) accessToken(p viewer.Profile) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID:   p.ID,
		UserType: p.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify parses an access token and returns the account it names.
func (s *Server) verify(token string) (*account, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, errBadToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errBadToken
	}
	return s.accountByID(claims.UserID)
}

// rotate exchanges a refresh token for a new access and refresh token.
func (s *Server) rotate(refresh string) (clubflow.TokenPair, error) {
	s.mu.Lock()
	userID, ok := s.refresh[refresh]
	if ok {
		delete(s.refresh, refresh)
	}
	s.mu.Unlock()
	if !ok {
		return clubflow.TokenPair{}, errBadRefresh
	}
	acct, err := s.accountByID(userID)
	if err != nil {
		return clubflow.TokenPair{}, err
	}
	res, err := s.issue(acct.profile)
	if err != nil {
		return clubflow.TokenPair{}, err
	}
	return clubflow.TokenPair{Access: res.Access, Refresh: res.Refresh}, nil
}

func (s *Server) revoke(refresh string) {
	s.mu.Lock()
	delete(s.refresh, refresh)
	s.mu.Unlock()
}

func (s *Server) accountByID(id string) (*account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.profile.ID == id {
			return a, nil
		}
	}
	return nil, errNoAccount
}

// ResetRequests returns the emails a password reset was requested for.
func (s *Server) ResetRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resets...)
}

// RevokeAll invalidates every outstanding refresh token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	s.refresh = make(map[string]string)
	s.mu.Unlock()
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
