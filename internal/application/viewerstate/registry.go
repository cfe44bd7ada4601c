package viewerstate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fitrit/internal/adapters/storage/clientstorage"
)

// DefaultIdleTTL is how long an untouched viewer stays in memory.
const DefaultIdleTTL = 30 * time.Minute

// Viewer bundles the stores owned by one browser tab.
type Viewer struct {
	ID      string
	Session *SessionStore
	UI      *UIStore

	lastSeen atomic.Int64
}

func (v *Viewer) touch(now time.Time) { v.lastSeen.Store(now.UnixNano()) }

// LastSeen returns when the viewer was last fetched from the registry.
func (v *Viewer) LastSeen() time.Time { return time.Unix(0, v.lastSeen.Load()) }

// Options configures a Registry.
type Options struct {
	HydrationTimeout time.Duration
	IdleTTL          time.Duration
	// OnCreate runs once per new viewer before hydration starts.
	OnCreate func(*Viewer)
}

// Registry owns the live viewers. Evicting a viewer is the server analogue of
// closing the tab: the next request builds a fresh store that hydrates again.
type Registry struct {
	storage clientstorage.Store
	opts    Options

	mu      sync.Mutex
	viewers map[string]*Viewer
	now     func() time.Time
}

// NewRegistry creates an empty registry backed by storage.
func NewRegistry(storage clientstorage.Store, opts Options) *Registry {
	if opts.HydrationTimeout <= 0 {
		opts.HydrationTimeout = DefaultHydrationTimeout
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	return &Registry{
		storage: storage,
		opts:    opts,
		viewers: make(map[string]*Viewer),
		now:     time.Now,
	}
}

// Get returns the viewer for id, creating and starting hydration if needed.
// PRE: id is non-empty
func (r *Registry) Get(id string) *Viewer {
	r.mu.Lock()
	v, ok := r.viewers[id]
	if !ok {
		v = &Viewer{ID: id, Session: NewSessionStore(id, r.storage), UI: NewUIStore()}
		r.viewers[id] = v
	}
	v.touch(r.now())
	r.mu.Unlock()

	if !ok {
		if r.opts.OnCreate != nil {
			r.opts.OnCreate(v)
		}
		v.Session.Start(r.opts.HydrationTimeout)
	}
	return v
}

// Len returns the number of live viewers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Drop forgets a viewer without touching durable storage.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.viewers, id)
	r.mu.Unlock()
}

// EvictIdle drops viewers not seen within the idle TTL and returns how many went.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.opts.IdleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, v := range r.viewers {
		if v.LastSeen().Before(cutoff) {
			delete(r.viewers, id)
			n++
		}
	}
	return n
}

// Run evicts idle viewers every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				slog.Debug("viewer_event", "event", "evicted", "count", n, "remaining", r.Len())
			}
		}
	}
}
