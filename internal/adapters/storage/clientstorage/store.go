// Package clientstorage is the durable key/value medium behind each viewer's
// session. Values are scoped by viewer id; multi-key writes are atomic.
package clientstorage

import (
	"context"
	"errors"
)

// ErrEmptyViewerID is returned when a call is not scoped to a viewer.
var ErrEmptyViewerID = errors.New("viewer id cannot be empty")

// Store persists per-viewer key/value entries.
type Store interface {
	// Load returns the stored values for keys. Missing keys are absent from the map.
	// PRE: viewerID is non-empty
	Load(ctx context.Context, viewerID string, keys ...string) (map[string]string, error)

	// Save writes all entries in one atomic step. Readers see all or none of them.
	// PRE: viewerID is non-empty
	// POST: every entry is stored, or none is
	Save(ctx context.Context, viewerID string, entries map[string]string) error

	// Remove deletes keys in one atomic step. Removing absent keys is not an error.
	// PRE: viewerID is non-empty
	Remove(ctx context.Context, viewerID string, keys ...string) error

	// Clear deletes every entry for the viewer.
	// PRE: viewerID is non-empty
	Clear(ctx context.Context, viewerID string) error
}
