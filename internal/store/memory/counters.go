package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gosuda/aegis/internal/domain"
)

type counterEntry struct {
	value     int64
	expiresAt time.Time // zero means no expiry
}

// Counters is an in-process domain.CounterStore with TTL semantics matching
// the Redis implementation: the ttl is applied when an increment creates the
// key and is not refreshed by later increments.
type Counters struct {
	clock domain.Clock

	mu      sync.Mutex
	entries map[string]counterEntry
}

func NewCounters(clock domain.Clock) *Counters {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Counters{clock: clock, entries: make(map[string]counterEntry)}
}

func (c *Counters) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	e, ok := c.live(key, now)
	if !ok {
		e = counterEntry{}
		if ttl > 0 {
			e.expiresAt = now.Add(ttl)
		}
	}
	e.value++
	c.entries[key] = e
	return e.value, nil
}

func (c *Counters) Get(_ context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key, c.clock.Now())
	if !ok {
		return 0, false, nil
	}
	return e.value, true, nil
}

func (c *Counters) SetWithExpiry(_ context.Context, key string, value int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := counterEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *Counters) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// live returns the entry for key, dropping it if expired. Caller holds mu.
func (c *Counters) live(key string, now time.Time) (counterEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return counterEntry{}, false
	}
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		delete(c.entries, key)
		return counterEntry{}, false
	}
	return e, true
}
