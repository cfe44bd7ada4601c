package session

import (
	"encoding/json"
	"fmt"

	"fitrit/internal/domain/viewer"
)

// AuthRecord is the JSON document stored under AuthKey.
type AuthRecord struct {
	User            *viewer.Profile `json:"user"`
	IsAuthenticated bool            `json:"isAuthenticated"`
}

// Persisted is the durable subset of a Session.
type Persisted struct {
	Auth         AuthRecord
	AccessToken  string
	RefreshToken string
}

// Persist projects a session onto the fields that survive a reload.
// Loading state and ReturnTo are not persisted.
func Persist(s Session) Persisted {
	s = s.Clone()
	return Persisted{
		Auth: AuthRecord{
			User:            s.User,
			IsAuthenticated: s.IsAuthenticated,
		},
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}

// Rehydrate rebuilds a settled session from its persisted form.
// A record that claims authentication without a usable user or access token
// rehydrates as signed out.
// POST: Returned session has IsLoading=false and satisfies Validate
func Rehydrate(p Persisted) Session {
	if !p.Auth.IsAuthenticated || p.Auth.User == nil || p.AccessToken == "" {
		return SignedOut()
	}
	s, err := Authenticated(*p.Auth.User, p.AccessToken, p.RefreshToken)
	if err != nil {
		return SignedOut()
	}
	return s
}

// Entries encodes the persisted form as key/value pairs for durable storage.
func (p Persisted) Entries() (map[string]string, error) {
	auth, err := json.Marshal(p.Auth)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", AuthKey, err)
	}
	return map[string]string{
		AuthKey:         string(auth),
		AccessTokenKey:  p.AccessToken,
		RefreshTokenKey: p.RefreshToken,
	}, nil
}

// FromEntries decodes key/value pairs read from durable storage.
// Missing keys decode as their zero value; a corrupt auth document is an error.
func FromEntries(entries map[string]string) (Persisted, error) {
	var p Persisted
	if raw, ok := entries[AuthKey]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Auth); err != nil {
			return Persisted{}, fmt.Errorf("decode %s: %w", AuthKey, err)
		}
	}
	p.AccessToken = entries[AccessTokenKey]
	p.RefreshToken = entries[RefreshTokenKey]
	return p, nil
}
