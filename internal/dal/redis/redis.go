package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/corray333/backend-labs/trade/internal/errs"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Client represents a Redis client together with its lock client.
type Client struct {
	rdb    *redis.Client
	locker *redislock.Client
}

// MustNewClient connects to Redis at REDIS_ADDRESS.
func MustNewClient() *Client {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       viper.GetInt("redis.db"),
		PoolSize: viper.GetInt("redis.pool_size"),
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	slog.Info("Redis connected", "addr", addr)

	return &Client{
		rdb:    rdb,
		locker: redislock.New(rdb),
	}
}

// NewClientFrom wraps an existing go-redis client.
func NewClientFrom(rdb *redis.Client) *Client {
	return &Client{
		rdb:    rdb,
		locker: redislock.New(rdb),
	}
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Sequence hands out per-prefix, per-month serials with INCR.
type Sequence struct {
	client *Client
	ttl    time.Duration
}

// NewSequence creates a Sequence. Counter keys expire after ttl.
func NewSequence(client *Client, ttl time.Duration) *Sequence {
	return &Sequence{
		client: client,
		ttl:    ttl,
	}
}

// Next increments seq:<prefix>:<period> and returns the new value.
func (s *Sequence) Next(ctx context.Context, prefix, period string) (int64, error) {
	key := fmt.Sprintf("seq:%s:%s", prefix, period)

	pipe := s.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	return incr.Val(), nil
}

// ErrLockNotObtained is returned when the lock stays held by someone else past the wait budget.
var ErrLockNotObtained = fmt.Errorf("%w: lock not obtained", errs.ErrConflict)

// Locker takes short-lived distributed locks.
type Locker struct {
	client  *Client
	ttl     time.Duration
	backoff time.Duration
	retries int
}

// NewLocker creates a Locker whose locks live for ttl and which retries every backoff, at most retries times.
func NewLocker(client *Client, ttl, backoff time.Duration, retries int) *Locker {
	return &Locker{
		client:  client,
		ttl:     ttl,
		backoff: backoff,
		retries: retries,
	}
}

// Lock obtains key and returns the function that releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.locker.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			slog.Warn("Failed to release lock", "key", key, "error", err)
		}
	}, nil
}
