// Package kv provides the shared Redis client used by the rate limiter and
// the response cache.
//
// The client is constructed once at startup and injected into every
// component that needs it; no package holds an ambient connection.
// Consumers declare their own narrow interfaces (see ratelimit.Store and
// cache.Client) so tests can substitute fakes without a running Redis.
//
// Client is safe for concurrent use by multiple goroutines; the underlying
// go-redis client pools connections internally.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnemo-ai/mnemo/internal/log"
)

// Config holds Redis connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps a go-redis client with the small command surface the
// application needs: GET, SETEX, INCR+EXPIRE, TTL, KEYS, DEL and INFO.
type Client struct {
	rdb    *redis.Client
	logger log.Logger
}

// Open creates a Redis client and verifies connectivity with PING.
func Open(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}

	logger.Debug("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return &Client{rdb: rdb, logger: logger}, nil
}

// Ping checks connectivity. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get returns the string value stored at key.
// The second return value reports whether the key exists; a missing key is
// not an error.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("GET %s: %w", key, err)
	}
	return val, true, nil
}

// SetEx stores value at key with the given expiry, overwriting any
// existing entry.
func (c *Client) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.SetEx(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("SETEX %s: %w", key, err)
	}
	return nil
}

// Del removes the given keys. Removing zero keys or keys that do not exist
// is a no-op, not an error.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("DEL: %w", err)
	}
	return nil
}

// Keys returns all keys matching the given glob pattern.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("KEYS %s: %w", pattern, err)
	}
	return keys, nil
}

// IncrWindow atomically increments the counter at key, attaches the window
// expiry if the key has none (first request in a fresh window), and reads
// the remaining TTL, all in a single pipelined round trip.
//
// INCR is atomic on the server and EXPIRE NX only ever fires for the
// request that created the key, so two concurrent requests at the window
// boundary cannot both start a fresh count. Requires Redis 7.0+ for the
// NX option on EXPIRE.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := c.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("INCR window %s: %w", key, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// TTL reports -1 when the key has no expiry. That can only happen
		// if EXPIRE failed to apply; treat the full window as remaining
		// rather than leaving a counter that never resets unaccounted.
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// Info returns the server's INFO output parsed into a flat key/value map.
// Section headers (lines starting with '#') are skipped.
func (c *Client) Info(ctx context.Context) (map[string]string, error) {
	raw, err := c.rdb.Info(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("INFO: %w", err)
	}
	return parseInfo(raw), nil
}

// parseInfo parses the "key:value" line format of the Redis INFO command.
func parseInfo(raw string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[key] = value
	}
	return fields
}
