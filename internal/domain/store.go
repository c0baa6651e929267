package domain

import (
	"context"
	"time"
)

// Tx is one open transaction against the persistent store, scoped to a single
// guarded execution. Commit and Rollback each succeed at most once; a second
// call on the same Tx is a usage error and fails fast. Nested begins are
// unrepresentable: a Tx cannot open another Tx.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// PersistentStore opens transactions for guarded executions.
type PersistentStore interface {
	Begin(ctx context.Context) (Tx, error)
}

// CounterStore is the atomic counter primitive backing rate limiting and
// lockout tracking. Increment must be atomic at the store: concurrent
// increments on the same key observe distinct values. The ttl applies only
// when the increment creates the key; it is not refreshed on subsequent
// increments, which is what makes the window fixed rather than sliding.
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, bool, error)
	SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Clock supplies timestamps. Injectable for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
