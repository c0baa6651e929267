package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/aegis/internal/ratelimit"
	"github.com/gosuda/aegis/internal/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingCounters struct{}

func (failingCounters) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("counter store down")
}

func (failingCounters) Get(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("counter store down")
}

func (failingCounters) SetWithExpiry(context.Context, string, int64, time.Duration) error {
	return errors.New("counter store down")
}

func (failingCounters) Delete(context.Context, string) error {
	return errors.New("counter store down")
}

func TestTryAcquireExactLimit(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	clock := newFakeClock()
	limiter := ratelimit.New(memory.NewCounters(clock), 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := limiter.TryAcquire(ctx, "alice", "content.create")
		require.NoError(t, err)
		assert.True(t, ok, "acquire %d should pass", i+1)
	}

	// Exactly at the limit: everything further is refused.
	for i := 0; i < 5; i++ {
		ok, err := limiter.TryAcquire(ctx, "alice", "content.create")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestTryAcquireWindowExpiry(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	clock := newFakeClock()
	limiter := ratelimit.New(memory.NewCounters(clock), 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := limiter.TryAcquire(ctx, "alice", "content.create")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := limiter.TryAcquire(ctx, "alice", "content.create")
	require.NoError(t, err)
	require.False(t, ok)

	// Window lapses, counter evaporates, acquires pass again.
	clock.Advance(time.Minute)

	ok, err = limiter.TryAcquire(ctx, "alice", "content.create")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryAcquireKeysAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	limiter := ratelimit.New(memory.NewCounters(newFakeClock()), 1, time.Minute)

	ok, err := limiter.TryAcquire(ctx, "alice", "content.create")
	require.NoError(t, err)
	require.True(t, ok)

	// Different actor, same action.
	ok, err = limiter.TryAcquire(ctx, "bob", "content.create")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same actor, different action.
	ok, err = limiter.TryAcquire(ctx, "alice", "content.delete")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPerActionRules(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	limiter := ratelimit.New(memory.NewCounters(newFakeClock()), 100, time.Minute)
	limiter.SetRule("auth.login", 1, 15*time.Minute)

	assert.Equal(t, ratelimit.Rule{Limit: 1, Window: 15 * time.Minute}, limiter.RuleFor("auth.login"))
	assert.Equal(t, ratelimit.Rule{Limit: 100, Window: time.Minute}, limiter.RuleFor("content.create"))

	ok, err := limiter.TryAcquire(ctx, "alice", "auth.login")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.TryAcquire(ctx, "alice", "auth.login")
	require.NoError(t, err)
	assert.False(t, ok)

	// The tight login rule does not leak into other actions.
	ok, err = limiter.TryAcquire(ctx, "alice", "content.create")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryAcquireFailsClosed(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	limiter := ratelimit.New(failingCounters{}, 100, time.Minute)

	ok, err := limiter.TryAcquire(ctx, "alice", "content.create")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestLocalAllow(t *testing.T) {
	t.Parallel()

	// Negligible refill rate so the burst is the effective budget.
	local := ratelimit.NewLocal(0.0001, 2)

	assert.True(t, local.Allow("10.0.0.1"))
	assert.True(t, local.Allow("10.0.0.1"))
	assert.False(t, local.Allow("10.0.0.1"))

	// Keys are independent buckets.
	assert.True(t, local.Allow("10.0.0.2"))
}

func TestTryAcquireConcurrent(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	const limit = 10
	limiter := ratelimit.New(memory.NewCounters(newFakeClock()), limit, time.Minute)

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.TryAcquire(ctx, "alice", "content.create")
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	// Never more than the limit, regardless of interleaving.
	assert.LessOrEqual(t, granted.Load(), int64(limit))
	assert.Positive(t, granted.Load())
}
