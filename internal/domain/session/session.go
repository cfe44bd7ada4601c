// Package session models a viewer's authentication state and the subset of it
// that survives a reload.
package session

import (
	"errors"

	"fitrit/internal/domain/viewer"
)

// Durable storage keys.
const (
	AuthKey         = "fitrit-auth"
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Keys lists every durable key owned by a session, in write order.
var Keys = []string{AuthKey, AccessTokenKey, RefreshTokenKey}

var (
	ErrMissingUser        = errors.New("authenticated session requires a user")
	ErrMissingAccessToken = errors.New("authenticated session requires an access token")
	ErrTokensWithoutAuth  = errors.New("signed-out session cannot hold tokens")
)

// Session is a viewer's authentication state.
type Session struct {
	User            *viewer.Profile
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool

	// ReturnTo is the location a guard turned the viewer away from. Never persisted.
	ReturnTo string
}

// Initial returns the state of a freshly created store: signed out and loading.
func Initial() Session {
	return Session{IsLoading: true}
}

// SignedOut returns the settled signed-out state.
func SignedOut() Session {
	return Session{}
}

// Authenticated builds a signed-in session.
// PRE: user is a valid profile; accessToken is non-empty
// POST: Returns a settled, authenticated session or a validation error
func Authenticated(user viewer.Profile, accessToken, refreshToken string) (Session, error) {
	if err := user.Validate(); err != nil {
		return Session{}, err
	}
	s := Session{
		User:            &user,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		IsAuthenticated: true,
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate checks the authentication invariants.
// INVARIANT: Session fields are not mutated
func (s Session) Validate() error {
	if s.IsAuthenticated {
		if s.User == nil {
			return ErrMissingUser
		}
		if s.AccessToken == "" {
			return ErrMissingAccessToken
		}
		return nil
	}
	if s.AccessToken != "" || s.RefreshToken != "" {
		return ErrTokensWithoutAuth
	}
	return nil
}

// UserType returns the signed-in user's type, or "" when there is no user.
func (s Session) UserType() string {
	if s.User == nil {
		return ""
	}
	return s.User.UserType
}

// Clone returns a deep copy so callers cannot mutate shared profile state.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
