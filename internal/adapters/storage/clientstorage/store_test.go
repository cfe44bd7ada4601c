package clientstorage_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "modernc.org/sqlite"

	"fitrit/internal/adapters/storage"
	"fitrit/internal/adapters/storage/clientstorage"
)

func newSQLiteStore(t *testing.T) *clientstorage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return clientstorage.NewSQLiteStore(db)
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) clientstorage.Store { return newSQLiteStore(t) })
}

// TestRedisStore runs against a live server when FITRIT_TEST_REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("FITRIT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FITRIT_TEST_REDIS_URL not set")
	}
	runStoreContract(t, func(t *testing.T) clientstorage.Store {
		s, err := clientstorage.NewRedisStoreFromURL(url, "fitrit:test:"+t.Name()+":")
		if err != nil {
			t.Fatalf("redis store: %v", err)
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Skipf("redis unreachable: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) clientstorage.Store) {
	ctx := context.Background()

	t.Run("save then load", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, "v1", map[string]string{"a": "1", "b": "2"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx, "v1", "a", "b", "missing")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
			t.Errorf("got %v", got)
		}
		if _, ok := got["missing"]; ok {
			t.Error("missing key reported as present")
		}
	})

	t.Run("save overwrites", func(t *testing.T) {
		s := newStore(t)
		_ = s.Save(ctx, "v1", map[string]string{"a": "1"})
		if err := s.Save(ctx, "v1", map[string]string{"a": "2"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, _ := s.Load(ctx, "v1", "a")
		if got["a"] != "2" {
			t.Errorf("got %q, want 2", got["a"])
		}
	})

	t.Run("viewers are isolated", func(t *testing.T) {
		s := newStore(t)
		_ = s.Save(ctx, "v1", map[string]string{"a": "one"})
		_ = s.Save(ctx, "v2", map[string]string{"a": "two"})
		got, _ := s.Load(ctx, "v2", "a")
		if got["a"] != "two" {
			t.Errorf("got %q, want two", got["a"])
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		s := newStore(t)
		_ = s.Save(ctx, "v1", map[string]string{"a": "1", "b": "2"})
		if err := s.Remove(ctx, "v1", "a"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if err := s.Remove(ctx, "v1", "a"); err != nil {
			t.Fatalf("second Remove: %v", err)
		}
		got, _ := s.Load(ctx, "v1", "a", "b")
		if _, ok := got["a"]; ok || got["b"] != "2" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("clear", func(t *testing.T) {
		s := newStore(t)
		_ = s.Save(ctx, "v1", map[string]string{"a": "1", "b": "2"})
		if err := s.Clear(ctx, "v1"); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		got, _ := s.Load(ctx, "v1", "a", "b")
		if len(got) != 0 {
			t.Errorf("got %v after clear", got)
		}
	})

	t.Run("empty viewer id", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Load(ctx, "", "a"); err != clientstorage.ErrEmptyViewerID {
			t.Errorf("Load: got %v", err)
		}
		if err := s.Save(ctx, "", map[string]string{"a": "1"}); err != clientstorage.ErrEmptyViewerID {
			t.Errorf("Save: got %v", err)
		}
		if err := s.Remove(ctx, "", "a"); err != clientstorage.ErrEmptyViewerID {
			t.Errorf("Remove: got %v", err)
		}
		if err := s.Clear(ctx, ""); err != clientstorage.ErrEmptyViewerID {
			t.Errorf("Clear: got %v", err)
		}
	})
}

func TestSQLiteStore_CancelledSaveWritesNothing(t *testing.T) {
	s := newSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Save(ctx, "v1", map[string]string{"a": "1", "b": "2"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	got, err := s.Load(context.Background(), "v1", "a", "b")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("partial write visible: %v", got)
	}
}
