// Package ratelimit enforces a per-user fixed-window request limit backed
// by a single Redis counter per user.
//
// The window is a fixed window, not a sliding one: counts reset entirely
// when the counter key expires. The count itself is exact, since the
// counter is advanced with an atomic INCR + EXPIRE NX round trip (see
// kv.Client.IncrWindow),
// so concurrent requests at the window boundary cannot each start a fresh
// window.
//
// When the backing store is unreachable the limiter follows an explicit
// policy chosen in configuration: fail-closed (default) rejects the
// governed request with the store error, fail-open admits it and logs.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/mnemo-ai/mnemo/internal/log"
)

// Default limiter configuration.
const (
	DefaultLimit  = 100
	DefaultWindow = 60 * time.Second
)

// Store is the counter storage the limiter depends on.
// Implemented by *kv.Client; tests substitute fakes.
type Store interface {
	// IncrWindow atomically increments the counter at key, starts the
	// window expiry if the key is new, and returns the updated count and
	// the remaining window time.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Config defines limiter parameters.
type Config struct {
	// Limit is the maximum number of requests per window. Default: 100.
	Limit int

	// Window is the fixed window length. Default: 60s.
	Window time.Duration

	// FailOpen admits requests when the store is unreachable instead of
	// rejecting them. Default false: a store outage must not silently
	// disable the limit.
	FailOpen bool
}

// Result is the outcome of a single limit check, carrying the metadata
// surfaced as X-RateLimit-* headers and by the status endpoint.
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"reset_at"` // epoch seconds when the window expires
}

// RetryAfter returns the number of seconds until the window resets,
// suitable for a Retry-After header. Never negative.
func (r Result) RetryAfter(now time.Time) int {
	secs := r.ResetAt - now.Unix()
	if secs < 0 {
		return 0
	}
	return int(secs)
}

// Limiter checks per-subject request counts against a fixed window.
// Limiter is safe for concurrent use by multiple goroutines.
type Limiter struct {
	store  Store
	cfg    Config
	logger log.Logger
	now    func() time.Time // injectable for tests
}

// New creates a Limiter. Zero Config fields fall back to defaults.
func New(store Store, cfg Config, logger log.Logger) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Limiter{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// counterKey derives the Redis key for a subject's window counter.
// The format is stable: other services sharing the store rely on it.
func counterKey(subjectID int64) string {
	return fmt.Sprintf("rate_limit:user:%d", subjectID)
}

// Check records one request for the subject and reports whether it is
// admitted. The first call in a quiet period starts a fresh window with
// count 1; the window is never explicitly deleted, it self-expires.
//
// When the store is unreachable the configured fail policy applies: with
// FailOpen the request is admitted (logged, full Remaining reported since
// the true count is unknowable); otherwise the error is returned and the
// caller must reject the governed request.
func (l *Limiter) Check(ctx context.Context, subjectID int64) (Result, error) {
	count, ttl, err := l.store.IncrWindow(ctx, counterKey(subjectID), l.cfg.Window)
	if err != nil {
		if l.cfg.FailOpen {
			l.logger.Warn("rate limit store unavailable, failing open",
				"subject_id", subjectID, "error", err)
			return Result{
				Allowed:   true,
				Limit:     l.cfg.Limit,
				Remaining: l.cfg.Limit - 1,
				ResetAt:   l.now().Add(l.cfg.Window).Unix(),
			}, nil
		}
		return Result{}, fmt.Errorf("checking rate limit for subject %d: %w", subjectID, err)
	}

	resetAt := l.now().Add(ttl).Unix()

	if count > int64(l.cfg.Limit) {
		l.logger.Debug("rate limit exceeded",
			"subject_id", subjectID, "count", count, "limit", l.cfg.Limit)
		return Result{
			Allowed:   false,
			Limit:     l.cfg.Limit,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     l.cfg.Limit,
		Remaining: l.cfg.Limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
