// Package viewerstate holds the live, per-viewer Session Store and UI Store and
// the registry that owns them.
package viewerstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fitrit/internal/adapters/storage/clientstorage"
	"fitrit/internal/domain/session"
	"fitrit/internal/domain/viewer"
)

// DefaultHydrationTimeout bounds how long a store may stay in loading.
const DefaultHydrationTimeout = 3 * time.Second

var (
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrEmptyAccessToken = errors.New("access token cannot be empty")
)

// EventKind names the action that produced a session change.
type EventKind string

const (
	EventHydrated    EventKind = "hydrated"
	EventLogin       EventKind = "login"
	EventLogout      EventKind = "logout"
	EventUserUpdated EventKind = "user_updated"
	EventRefreshed   EventKind = "token_refreshed"
	EventCleared     EventKind = "storage_cleared"
)

// Event describes one committed change to a Session Store.
type Event struct {
	ViewerID string
	Kind     EventKind
	Previous session.Session
	Current  session.Session
}

// Observer is notified after every committed change.
type Observer func(Event)

// SessionStore is the single source of truth for one viewer's authentication.
// INVARIANT: IsLoading flips to false at most once and never reverts
// INVARIANT: in-memory state only changes after the matching durable write succeeded
type SessionStore struct {
	viewerID string
	storage  clientstorage.Store

	// writeMu serializes durable writes with their in-memory commit.
	writeMu sync.Mutex

	mu        sync.RWMutex
	state     session.Session
	observers map[int]Observer
	nextObs   int

	hydrated     chan struct{}
	hydratedOnce sync.Once
}

// NewSessionStore creates a store in the initial loading state.
// PRE: viewerID is non-empty; storage is non-nil
func NewSessionStore(viewerID string, storage clientstorage.Store) *SessionStore {
	return &SessionStore{
		viewerID:  viewerID,
		storage:   storage,
		state:     session.Initial(),
		observers: make(map[int]Observer),
		hydrated:  make(chan struct{}),
	}
}

// ViewerID returns the viewer this store belongs to.
func (s *SessionStore) ViewerID() string { return s.viewerID }

// Snapshot returns a copy of the current session. It never blocks on storage.
func (s *SessionStore) Snapshot() session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Hydrated is closed once loading has settled.
func (s *SessionStore) Hydrated() <-chan struct{} {
	return s.hydrated
}

// Subscribe registers an observer and returns a function that removes it.
func (s *SessionStore) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Start hydrates in the background. If hydration has not completed within
// timeout the store settles as signed out.
func (s *SessionStore) Start(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultHydrationTimeout
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- s.Hydrate(ctx) }()

		select {
		case err := <-done:
			if err != nil {
				slog.Warn("session_event", "event", "hydration_failed", "viewer_id", s.viewerID, "error", err)
			}
		case <-ctx.Done():
			slog.Warn("session_event", "event", "hydration_timeout", "viewer_id", s.viewerID, "timeout", timeout)
			s.SetLoading(false)
		}
	}()
}

// Hydrate reads the persisted session and applies it.
// A storage or decode error settles the store as signed out and is returned.
// A result that arrives after loading already settled is discarded.
// POST: IsLoading is false
func (s *SessionStore) Hydrate(ctx context.Context) error {
	entries, err := s.storage.Load(ctx, s.viewerID, session.Keys...)
	if err != nil {
		s.SetLoading(false)
		return fmt.Errorf("load session: %w", err)
	}
	p, err := session.FromEntries(entries)
	if err != nil {
		s.SetLoading(false)
		return err
	}
	next := session.Rehydrate(p)

	s.mu.Lock()
	if !s.state.IsLoading {
		s.mu.Unlock()
		slog.Debug("session_event", "event", "hydration_discarded", "viewer_id", s.viewerID)
		return nil
	}
	prev := s.state.Clone()
	next.ReturnTo = prev.ReturnTo
	s.state = next
	s.mu.Unlock()

	s.markHydrated()
	s.notify(EventHydrated, prev, next)
	return nil
}

// SetLoading sets the loading flag. Once loading is false, a later true is ignored.
func (s *SessionStore) SetLoading(loading bool) {
	if loading {
		return
	}
	s.mu.Lock()
	if !s.state.IsLoading {
		s.mu.Unlock()
		return
	}
	prev := s.state.Clone()
	s.state.IsLoading = false
	cur := s.state.Clone()
	s.mu.Unlock()

	s.markHydrated()
	s.notify(EventHydrated, prev, cur)
}

// Login authenticates the viewer and persists the session.
// PRE: user is a valid profile; accessToken is non-empty
// POST: On success, session is authenticated and settled; on error nothing changed
func (s *SessionStore) Login(ctx context.Context, user viewer.Profile, accessToken, refreshToken string) error {
	next, err := session.Authenticated(user, accessToken, refreshToken)
	if err != nil {
		return err
	}
	return s.commit(ctx, EventLogin, func(cur session.Session) (session.Session, error) {
		next.ReturnTo = cur.ReturnTo
		return next, nil
	})
}

// Logout signs the viewer out and removes the durable entries. Idempotent.
// POST: On success, session is signed out and settled
func (s *SessionStore) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.storage.Remove(ctx, s.viewerID, session.Keys...); err != nil {
		slog.Error("session_event", "event", "logout_write_failed", "viewer_id", s.viewerID, "error", err)
		return fmt.Errorf("remove session: %w", err)
	}
	s.swap(EventLogout, session.SignedOut())
	return nil
}

// ClearStorage wipes every durable entry for the viewer and resets the session.
func (s *SessionStore) ClearStorage(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.storage.Clear(ctx, s.viewerID); err != nil {
		slog.Error("session_event", "event", "clear_write_failed", "viewer_id", s.viewerID, "error", err)
		return fmt.Errorf("clear storage: %w", err)
	}
	s.swap(EventCleared, session.SignedOut())
	return nil
}

// UpdateUser shallow-merges the patch into the signed-in profile.
// With no user present it is a no-op. Authentication flags never change.
func (s *SessionStore) UpdateUser(ctx context.Context, patch viewer.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	return s.commit(ctx, EventUserUpdated, func(cur session.Session) (session.Session, error) {
		if cur.User == nil {
			return cur, errNoChange
		}
		u := cur.User.Apply(patch)
		cur.User = &u
		return cur, nil
	})
}

// RefreshAccess replaces the access token, and the refresh token when one is given.
// PRE: session is authenticated
func (s *SessionStore) RefreshAccess(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" {
		return ErrEmptyAccessToken
	}
	return s.commit(ctx, EventRefreshed, func(cur session.Session) (session.Session, error) {
		if !cur.IsAuthenticated {
			return cur, ErrNotAuthenticated
		}
		cur.AccessToken = accessToken
		if refreshToken != "" {
			cur.RefreshToken = refreshToken
		}
		return cur, nil
	})
}

// Tokens returns the current access and refresh tokens.
func (s *SessionStore) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken, s.state.RefreshToken
}

// SetReturnTo remembers where a guard turned the viewer away from.
func (s *SessionStore) SetReturnTo(path string) {
	s.mu.Lock()
	s.state.ReturnTo = path
	s.mu.Unlock()
}

// TakeReturnTo returns and clears the remembered return path.
func (s *SessionStore) TakeReturnTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.ReturnTo
	s.state.ReturnTo = ""
	return p
}

var errNoChange = errors.New("no change")

// commit derives the next session, writes its persisted form, then swaps it in.
func (s *SessionStore) commit(ctx context.Context, kind EventKind, derive func(session.Session) (session.Session, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := derive(s.Snapshot())
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	next.IsLoading = false

	entries, err := session.Persist(next).Entries()
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, s.viewerID, entries); err != nil {
		slog.Error("session_event", "event", string(kind)+"_write_failed", "viewer_id", s.viewerID, "error", err)
		return fmt.Errorf("save session: %w", err)
	}
	s.swap(kind, next)
	return nil
}

// swap replaces the in-memory session, settles loading and notifies observers.
// PRE: writeMu is held
func (s *SessionStore) swap(kind EventKind, next session.Session) {
	s.mu.Lock()
	prev := s.state.Clone()
	next.IsLoading = false
	s.state = next.Clone()
	s.mu.Unlock()

	s.markHydrated()
	s.notify(kind, prev, next)
}

func (s *SessionStore) markHydrated() {
	s.hydratedOnce.Do(func() { close(s.hydrated) })
}

func (s *SessionStore) notify(kind EventKind, prev, cur session.Session) {
	s.mu.RLock()
	obs := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	s.mu.RUnlock()

	ev := Event{ViewerID: s.viewerID, Kind: kind, Previous: prev, Current: cur.Clone()}
	for _, fn := range obs {
		fn(ev)
	}
}
