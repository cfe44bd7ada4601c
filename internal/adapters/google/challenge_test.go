package google

import (
	"errors"
	"testing"
	"time"
)

func TestChallengeSingleUse(t *testing.T) {
	s := NewChallengeStore()
	c := NewChallenge("v1", "/portal")
	s.Put(c)

	got, err := s.Take(c.State, "v1")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if got.Nonce != c.Nonce || got.ReturnTo != "/portal" {
		t.Errorf("got %+v", got)
	}
	if _, err := s.Take(c.State, "v1"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("second Take err = %v, want ErrUnknownState", err)
	}
}

func TestChallengeBoundToViewer(t *testing.T) {
	s := NewChallengeStore()
	c := NewChallenge("v1", "")
	s.Put(c)
	if _, err := s.Take(c.State, "v2"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("err = %v, want ErrUnknownState", err)
	}
}

func TestChallengeExpires(t *testing.T) {
	s := NewChallengeStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	c := NewChallenge("v1", "")
	c.Created = now
	s.Put(c)

	now = now.Add(ChallengeTTL + time.Second)
	if _, err := s.Take(c.State, "v1"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("err = %v, want ErrUnknownState", err)
	}
}

func TestChallengesAreUnique(t *testing.T) {
	a, b := NewChallenge("v", ""), NewChallenge("v", "")
	if a.State == b.State || a.Nonce == b.Nonce || a.Verifier == b.Verifier {
		t.Error("challenges share secret material")
	}
}
