// Package idempotency stops a client from submitting the same checkout twice.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyCheckout is idem:checkout:{customer_id}:{client key}.
const keyCheckout = "idem:checkout:%s:%s"

// CheckoutKey scopes a client supplied key to one customer.
func CheckoutKey(customerID, clientKey string) string {
	return fmt.Sprintf(keyCheckout, customerID, clientKey)
}

// Guard claims keys for the duration of a TTL.
type Guard interface {
	// Acquire returns false when key is already claimed.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release frees a key so the request may be retried.
	Release(ctx context.Context, key string) error
}

// RedisGuard implements Guard with SET NX.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGuard creates a guard whose claims expire after ttl.
func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
