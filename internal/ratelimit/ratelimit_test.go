package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/log"
)

// fakeStore emulates the atomic INCR+EXPIRE NX counter semantics in memory,
// with a controllable clock so tests can let windows expire.
type fakeStore struct {
	counts  map[string]int64
	expires map[string]time.Time
	now     time.Time
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
		now:     time.Unix(1_700_000_000, 0),
	}
}

func (f *fakeStore) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	exp, ok := f.expires[key]
	if !ok || !f.now.Before(exp) {
		f.counts[key] = 0
		f.expires[key] = f.now.Add(window)
	}
	f.counts[key]++
	return f.counts[key], f.expires[key].Sub(f.now), nil
}

func (f *fakeStore) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newTestLimiter(store Store, cfg Config) (*Limiter, *fakeStore) {
	fs, _ := store.(*fakeStore)
	l := New(store, cfg, log.NewNop())
	if fs != nil {
		l.now = func() time.Time { return fs.now }
	}
	return l, fs
}

func TestLimiter_FirstRequest(t *testing.T) {
	store := newFakeStore()
	limiter, _ := newTestLimiter(store, Config{Limit: 100, Window: time.Minute})

	result, err := limiter.Check(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 100, result.Limit)
	assert.Equal(t, 99, result.Remaining)
	assert.Equal(t, store.now.Add(time.Minute).Unix(), result.ResetAt)
}

func TestLimiter_ExhaustsAtLimit(t *testing.T) {
	store := newFakeStore()
	limiter, _ := newTestLimiter(store, Config{Limit: 5, Window: time.Minute})
	ctx := context.Background()

	// Calls 1..5 are admitted, the 5th with zero remaining.
	for i := 1; i <= 5; i++ {
		result, err := limiter.Check(ctx, 1)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "call %d should be admitted", i)
		assert.Equal(t, 5-i, result.Remaining, "call %d", i)
	}

	// Call 6 within the same window is denied.
	result, err := limiter.Check(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestLimiter_WindowExpiry(t *testing.T) {
	store := newFakeStore()
	limiter, _ := newTestLimiter(store, Config{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	// Example scenario: limit=2, window=60s.
	r1, err := limiter.Check(ctx, 1)
	require.NoError(t, err)
	assert.True(t, r1.Allowed)
	assert.Equal(t, 1, r1.Remaining)

	r2, err := limiter.Check(ctx, 1)
	require.NoError(t, err)
	assert.True(t, r2.Allowed)
	assert.Equal(t, 0, r2.Remaining)

	r3, err := limiter.Check(ctx, 1)
	require.NoError(t, err)
	assert.False(t, r3.Allowed)
	assert.Equal(t, 0, r3.Remaining)
	assert.LessOrEqual(t, r3.ResetAt, store.now.Add(time.Minute).Unix())

	// After the window elapses the subject behaves like a fresh one.
	store.advance(61 * time.Second)
	r4, err := limiter.Check(ctx, 1)
	require.NoError(t, err)
	assert.True(t, r4.Allowed)
	assert.Equal(t, 1, r4.Remaining)
}

func TestLimiter_SubjectsAreIndependent(t *testing.T) {
	store := newFakeStore()
	limiter, _ := newTestLimiter(store, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	r, err := limiter.Check(ctx, 1)
	require.NoError(t, err)
	assert.True(t, r.Allowed)

	r, err = limiter.Check(ctx, 1)
	require.NoError(t, err)
	assert.False(t, r.Allowed)

	// A different subject still has its full budget.
	r, err = limiter.Check(ctx, 2)
	require.NoError(t, err)
	assert.True(t, r.Allowed)
}

func TestLimiter_FailClosed(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	limiter, _ := newTestLimiter(store, Config{Limit: 10, Window: time.Minute})

	_, err := limiter.Check(context.Background(), 1)

	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestLimiter_FailOpen(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	limiter, _ := newTestLimiter(store, Config{Limit: 10, Window: time.Minute, FailOpen: true})

	result, err := limiter.Check(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 10, result.Limit)
}

func TestLimiter_Defaults(t *testing.T) {
	limiter := New(newFakeStore(), Config{}, nil)

	assert.Equal(t, DefaultLimit, limiter.cfg.Limit)
	assert.Equal(t, DefaultWindow, limiter.cfg.Window)
	assert.False(t, limiter.cfg.FailOpen)
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	r := Result{ResetAt: now.Add(42 * time.Second).Unix()}
	assert.Equal(t, 42, r.RetryAfter(now))

	// A reset time in the past clamps to zero.
	r = Result{ResetAt: now.Add(-10 * time.Second).Unix()}
	assert.Equal(t, 0, r.RetryAfter(now))
}
