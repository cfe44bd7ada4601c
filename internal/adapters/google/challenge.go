package google

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ChallengeTTL bounds how long a sign-in may sit on Google's consent screen.
const ChallengeTTL = 10 * time.Minute

var ErrUnknownState = errors.New("sign-in state is unknown or expired")

// Challenge is the per-attempt secret material of one sign-in.
type Challenge struct {
	State    string
	Nonce    string
	Verifier string
	ViewerID string
	ReturnTo string
	Created  time.Time
}

// NewChallenge creates fresh state, nonce and PKCE verifier for a viewer.
func NewChallenge(viewerID, returnTo string) Challenge {
	return Challenge{
		State:    randomString(24),
		Nonce:    randomString(24),
		Verifier: oauth2.GenerateVerifier(),
		ViewerID: viewerID,
		ReturnTo: returnTo,
		Created:  time.Now(),
	}
}

// ChallengeStore holds pending challenges until the callback consumes them.
type ChallengeStore struct {
	mu      sync.Mutex
	pending map[string]Challenge
	now     func() time.Time
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{pending: make(map[string]Challenge), now: time.Now}
}

// Put remembers a challenge and drops expired ones.
func (s *ChallengeStore) Put(c Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-ChallengeTTL)
	for state, p := range s.pending {
		if p.Created.Before(cutoff) {
			delete(s.pending, state)
		}
	}
	s.pending[c.State] = c
}

// Take removes and returns the challenge for state. A challenge is usable once,
// only by the viewer that started it.
func (s *ChallengeStore) Take(state, viewerID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pending[state]
	if !ok {
		return Challenge{}, ErrUnknownState
	}
	delete(s.pending, state)
	if c.ViewerID != viewerID || s.now().Sub(c.Created) > ChallengeTTL {
		return Challenge{}, ErrUnknownState
	}
	return c, nil
}
