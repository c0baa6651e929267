// Package ratelimit bounds how often an actor may perform an action.
//
// The window policy is fixed, not sliding: the counter expires window
// seconds after its first increment, so a burst straddling a window boundary
// can pass up to twice the nominal limit. This imprecision is accepted in
// exchange for a single atomic round trip per acquire.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gosuda/aegis/internal/domain"
)

// Rule is the limit/window pair applied to one action.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter is a fixed-window counter limiter keyed by (actor, action).
// Correctness under concurrency rests on the counter store's atomic
// increment; the limiter itself takes no locks on the hot path.
type Limiter struct {
	counters domain.CounterStore
	fallback Rule

	mu    sync.RWMutex
	rules map[string]Rule
}

func New(counters domain.CounterStore, defaultLimit int, defaultWindow time.Duration) *Limiter {
	return &Limiter{
		counters: counters,
		fallback: Rule{Limit: defaultLimit, Window: defaultWindow},
		rules:    make(map[string]Rule),
	}
}

// SetRule overrides the default limit/window for one action.
func (l *Limiter) SetRule(action string, limit int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rules[action] = Rule{Limit: limit, Window: window}
}

// RuleFor reports the rule that applies to action.
func (l *Limiter) RuleFor(action string) Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.rules[action]; ok {
		return r
	}
	return l.fallback
}

// TryAcquire consumes one slot for (actorID, action). It returns true and
// increments the counter when under the limit; at the limit it returns false
// without incrementing. A counter store error also denies (fail closed).
func (l *Limiter) TryAcquire(ctx context.Context, actorID, action string) (bool, error) {
	rule := l.RuleFor(action)
	key := "ratelimit:" + action + ":" + actorID

	count, ok, err := l.counters.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("ratelimit.Limiter.TryAcquire: %w", err)
	}
	if ok && count >= int64(rule.Limit) {
		return false, nil
	}

	n, err := l.counters.Increment(ctx, key, rule.Window)
	if err != nil {
		return false, fmt.Errorf("ratelimit.Limiter.TryAcquire: %w", err)
	}
	if n > int64(rule.Limit) {
		// Concurrent acquirers raced past the pre-check; the atomic
		// increment is the arbiter and everyone over the line is refused.
		return false, nil
	}

	return true, nil
}
