// Package lockout tracks per-identity failure counts and enforces temporary
// deny-all lockouts after repeated failures. There is no permanent-lock
// state: a lockout always expires, and the next failure after expiry starts a
// fresh count at one.
package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/aegis/internal/domain"
)

// State is the failure record for one identity. A zero LockedUntil means not
// locked.
type State struct {
	FailureCount int
	LockedUntil  time.Time
}

// Locked reports whether the state is locked as of now.
func (s State) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Tracker counts authentication failures per identity. Counters live in the
// shared counter store so all replicas observe the same lockout state.
type Tracker struct {
	counters     domain.CounterStore
	clock        domain.Clock
	maxFailures  int
	lockDuration time.Duration
	onLockout    func(identity string, st State)
}

func New(counters domain.CounterStore, clock domain.Clock, maxFailures int, lockDuration time.Duration) *Tracker {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Tracker{
		counters:     counters,
		clock:        clock,
		maxFailures:  maxFailures,
		lockDuration: lockDuration,
	}
}

// OnLockout registers a hook invoked when an identity transitions into the
// locked state. Must be called before the tracker is shared across
// goroutines.
func (t *Tracker) OnLockout(fn func(identity string, st State)) {
	t.onLockout = fn
}

// RecordFailure increments the identity's failure count. Reaching the
// configured maximum locks the identity for the lockout duration. The failure
// counter carries the same TTL, so counts evaporate together with the lock
// and a post-expiry failure restarts at one.
func (t *Tracker) RecordFailure(ctx context.Context, identity string) (State, error) {
	count, err := t.counters.Increment(ctx, failKey(identity), t.lockDuration)
	if err != nil {
		return State{}, fmt.Errorf("lockout.Tracker.RecordFailure: %w", err)
	}

	st := State{FailureCount: int(count)}
	if count < int64(t.maxFailures) {
		return st, nil
	}

	until := t.clock.Now().Add(t.lockDuration)
	err = t.counters.SetWithExpiry(ctx, lockKey(identity), until.Unix(), t.lockDuration)
	if err != nil {
		return st, fmt.Errorf("lockout.Tracker.RecordFailure: set lock: %w", err)
	}
	st.LockedUntil = until

	log.Warn().
		Str("identity", identity).
		Int("failures", st.FailureCount).
		Time("locked_until", until).
		Msg("lockout: identity locked")

	if t.onLockout != nil {
		t.onLockout(identity, st)
	}

	return st, nil
}

// RecordSuccess clears the failure count and any active lockout.
func (t *Tracker) RecordSuccess(ctx context.Context, identity string) error {
	if err := t.counters.Delete(ctx, failKey(identity)); err != nil {
		return fmt.Errorf("lockout.Tracker.RecordSuccess: %w", err)
	}
	if err := t.counters.Delete(ctx, lockKey(identity)); err != nil {
		return fmt.Errorf("lockout.Tracker.RecordSuccess: %w", err)
	}
	return nil
}

// IsLocked reports whether the identity is currently locked. The lock key's
// TTL clears expired locks; the timestamp comparison covers clock drift
// between writers.
func (t *Tracker) IsLocked(ctx context.Context, identity string) (bool, error) {
	until, ok, err := t.counters.Get(ctx, lockKey(identity))
	if err != nil {
		return false, fmt.Errorf("lockout.Tracker.IsLocked: %w", err)
	}
	if !ok {
		return false, nil
	}
	return t.clock.Now().Unix() < until, nil
}

func failKey(identity string) string { return "lockout:fail:" + identity }
func lockKey(identity string) string { return "lockout:until:" + identity }
