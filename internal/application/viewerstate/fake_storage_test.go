package viewerstate

import (
	"context"
	"errors"
	"sync"

	"fitrit/internal/adapters/storage/clientstorage"
)

var errStorageDown = errors.New("storage down")

// memStorage is an in-memory clientstorage.Store with failure and latency hooks.
type memStorage struct {
	mu        sync.Mutex
	data      map[string]map[string]string
	failWrite bool
	failLoad  bool
	// loadGate, when set, blocks Load until closed or ctx ends.
	loadGate chan struct{}
	// ignoreCtx makes a gated Load wait for the gate regardless of ctx.
	ignoreCtx bool
}

var _ clientstorage.Store = (*memStorage)(nil)

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]map[string]string)}
}

func (m *memStorage) Load(ctx context.Context, viewerID string, keys ...string) (map[string]string, error) {
	m.mu.Lock()
	gate, ignore := m.loadGate, m.ignoreCtx
	m.mu.Unlock()
	if gate != nil {
		if ignore {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return nil, errStorageDown
	}
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := m.data[viewerID][k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memStorage) Save(_ context.Context, viewerID string, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errStorageDown
	}
	if m.data[viewerID] == nil {
		m.data[viewerID] = make(map[string]string)
	}
	for k, v := range entries {
		m.data[viewerID][k] = v
	}
	return nil
}

func (m *memStorage) Remove(_ context.Context, viewerID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errStorageDown
	}
	for _, k := range keys {
		delete(m.data[viewerID], k)
	}
	return nil
}

func (m *memStorage) Clear(_ context.Context, viewerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errStorageDown
	}
	delete(m.data, viewerID)
	return nil
}

func (m *memStorage) keyCount(viewerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data[viewerID])
}

func (m *memStorage) set(viewerID, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[viewerID] == nil {
		m.data[viewerID] = make(map[string]string)
	}
	m.data[viewerID][key] = value
}
