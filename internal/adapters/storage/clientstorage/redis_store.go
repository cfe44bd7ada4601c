package clientstorage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store with one Redis hash per viewer.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are written under prefix+viewerID.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "fitrit:viewer:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisStoreFromURL parses a redis:// URL and connects lazily.
func NewRedisStoreFromURL(rawURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), prefix), nil
}

func (s *RedisStore) key(viewerID string) string {
	return s.prefix + viewerID
}

// Load returns stored values for keys.
// PRE: viewerID is non-empty
func (s *RedisStore) Load(ctx context.Context, viewerID string, keys ...string) (map[string]string, error) {
	if viewerID == "" {
		return nil, ErrEmptyViewerID
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.client.HMGet(ctx, s.key(viewerID), keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

// Save writes all entries inside MULTI/EXEC.
// PRE: viewerID is non-empty
func (s *RedisStore) Save(ctx context.Context, viewerID string, entries map[string]string) error {
	if viewerID == "" {
		return ErrEmptyViewerID
	}
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries)*2)
	for k, v := range entries {
		values = append(values, k, v)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(viewerID), values...)
		return nil
	})
	return err
}

// Remove deletes keys inside MULTI/EXEC.
// PRE: viewerID is non-empty
func (s *RedisStore) Remove(ctx context.Context, viewerID string, keys ...string) error {
	if viewerID == "" {
		return ErrEmptyViewerID
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.key(viewerID), keys...)
		return nil
	})
	return err
}

// Clear deletes the viewer's hash.
// PRE: viewerID is non-empty
func (s *RedisStore) Clear(ctx context.Context, viewerID string) error {
	if viewerID == "" {
		return ErrEmptyViewerID
	}
	return s.client.Del(ctx, s.key(viewerID)).Err()
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
