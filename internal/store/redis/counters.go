// Package redis implements domain.CounterStore on Redis. Atomicity of
// INCR is what lets concurrent rate-limit and lockout writers share a key
// without application-level locking.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Counters struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Counters, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Counters{client: client}, nil
}

func (c *Counters) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("redis.Counters.Close: %w", err)
	}
	return nil
}

// Increment atomically increments key, setting ttl only if the key has no
// expiry yet (first increment in the window). The INCR and EXPIRE NX run in
// one pipeline so a crash between them cannot leave an immortal counter
// beyond a single round trip.
func (c *Counters) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.ExpireNX(ctx, key, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis.Counters.Increment: %w", err)
	}

	return incr.Val(), nil
}

func (c *Counters) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis.Counters.Get: %w", err)
	}
	return v, true, nil
}

func (c *Counters) SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis.Counters.SetWithExpiry: %w", err)
	}
	return nil
}

func (c *Counters) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis.Counters.Delete: %w", err)
	}
	return nil
}
