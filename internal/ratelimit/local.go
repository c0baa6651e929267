package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type localEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Local is an in-process token-bucket limiter keyed by an arbitrary string
// (typically a client IP). It guards endpoints that run before any actor
// identity exists, where the counter-store limiter cannot be keyed.
type Local struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*localEntry
}

func NewLocal(requestsPerSecond float64, burst int) *Local {
	return &Local{
		rps:     rate.Limit(requestsPerSecond),
		burst:   burst,
		entries: make(map[string]*localEntry),
	}
}

// Allow reports whether one event for key may proceed now.
func (l *Local) Allow(key string) bool {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = e
	}
	e.lastAccess = time.Now()
	lim := e.limiter
	l.mu.Unlock()

	return lim.Allow()
}

// StartCleanup evicts entries idle longer than maxIdle every interval until
// ctx is done. Prevents unbounded memory growth from one-shot keys.
func (l *Local) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.mu.Lock()
				cutoff := time.Now().Add(-maxIdle)
				for key, e := range l.entries {
					if e.lastAccess.Before(cutoff) {
						delete(l.entries, key)
					}
				}
				l.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
}
