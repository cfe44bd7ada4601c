package clientstorage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fitrit/internal/adapters/storage"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements Store using the client_storage table.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new client storage store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns stored values for keys.
// PRE: viewerID is non-empty
// POST: Returns only keys that exist
func (s *SQLiteStore) Load(ctx context.Context, viewerID string, keys ...string) (map[string]string, error) {
	if viewerID == "" {
		return nil, ErrEmptyViewerID
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, viewerID)
	for _, k := range keys {
		args = append(args, k)
	}
	query := fmt.Sprintf(
		"SELECT key, value FROM client_storage WHERE viewer_id = ? AND key IN (%s)",
		placeholders(len(keys)),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Save upserts all entries in one transaction.
// PRE: viewerID is non-empty
// POST: Every entry is stored, or none is
func (s *SQLiteStore) Save(ctx context.Context, viewerID string, entries map[string]string) error {
	if viewerID == "" {
		return ErrEmptyViewerID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(dateLayout)
	// Stable order keeps lock acquisition deterministic.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO client_storage (viewer_id, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(viewer_id, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
			viewerID, k, entries[k], now)
		if err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Remove deletes keys in one transaction.
// PRE: viewerID is non-empty
// POST: None of keys remain for the viewer
func (s *SQLiteStore) Remove(ctx context.Context, viewerID string, keys ...string) error {
	if viewerID == "" {
		return ErrEmptyViewerID
	}
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, viewerID)
	for _, k := range keys {
		args = append(args, k)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf("DELETE FROM client_storage WHERE viewer_id = ? AND key IN (%s)", placeholders(len(keys)))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear deletes every entry for the viewer.
// PRE: viewerID is non-empty
func (s *SQLiteStore) Clear(ctx context.Context, viewerID string) error {
	if viewerID == "" {
		return ErrEmptyViewerID
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM client_storage WHERE viewer_id = ?", viewerID)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
