// Package cache provides the read-through response cache backed by Redis.
//
// The cache holds serialized API responses keyed per owner (see keys.go)
// and is strictly derived data: every value can be rebuilt from PostgreSQL,
// so unavailability degrades performance but never correctness. That rule
// shapes the error contract:
//
//   - Get reports a store failure to the caller (so a degraded store is
//     distinguishable from a genuine miss) but the caller always falls
//     through to the source of truth either way.
//   - Set, Delete, DeleteByPattern and InvalidateOwner swallow store
//     errors after logging them; a governed operation must never fail
//     because its cache write failed.
//
// Store is safe for concurrent use. Concurrent writers to the same key
// race to last-write-wins, which is acceptable for disposable derived data.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mnemo-ai/mnemo/internal/log"
)

// Default TTLs. Collections are cached longer than single items because
// list responses are more expensive to rebuild.
const (
	DefaultCollectionTTL = 900 * time.Second
	DefaultItemTTL       = 300 * time.Second
)

// Client is the key/value command surface the cache depends on.
// Implemented by *kv.Client; tests substitute fakes.
type Client interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Info(ctx context.Context) (map[string]string, error)
}

// Store is the read-through response cache.
type Store struct {
	client Client
	logger log.Logger
}

// New creates a cache Store.
func New(client Client, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{client: client, logger: logger}
}

// Get loads the entry at key into dest.
// The bool reports a cache hit. A missing key is a miss with nil error; a
// corrupt payload is treated as a miss (the entry will be overwritten by
// the read-through fill); a store failure is a miss with the error
// returned so the caller can tell degradation from absence. In every
// non-hit case the caller proceeds to the source of truth.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, found, err := s.client.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed, falling through", "key", key, "error", err)
		return false, err
	}
	if !found {
		s.logger.Debug("cache miss", "key", key)
		return false, nil
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("cache payload corrupt, treating as miss", "key", key, "error", err)
		return false, nil
	}

	s.logger.Debug("cache hit", "key", key)
	return true, nil
}

// Set serializes value and stores it at key with the given TTL,
// unconditionally overwriting any existing entry. Failures are logged and
// swallowed.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache set skipped, value not serializable", "key", key, "error", err)
		return
	}
	if err := s.client.SetEx(ctx, key, string(raw), ttl); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
		return
	}
	s.logger.Debug("cache set", "key", key, "ttl", ttl)
}

// Delete removes the given keys. Absent keys are a no-op. Failures are
// logged and swallowed.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...); err != nil {
		s.logger.Warn("cache delete failed", "keys", keys, "error", err)
		return
	}
	s.logger.Debug("cache delete", "keys", keys)
}

// DeleteByPattern removes every entry whose key matches the glob pattern.
// Zero matches is a no-op. Failures are logged and swallowed.
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) {
	keys, err := s.client.Keys(ctx, pattern)
	if err != nil {
		s.logger.Warn("cache pattern enumeration failed", "pattern", pattern, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...); err != nil {
		s.logger.Warn("cache pattern delete failed", "pattern", pattern, "error", err)
		return
	}
	s.logger.Debug("cache pattern delete", "pattern", pattern, "removed", len(keys))
}

// InvalidateOwner clears every cache family scoped to one owner: the
// collection cache, the single-entry cache and the chat cache. Called
// after any write to the owner's data.
func (s *Store) InvalidateOwner(ctx context.Context, ownerID int64) {
	for _, pattern := range ownerPatterns(ownerID) {
		s.DeleteByPattern(ctx, pattern)
	}
}
