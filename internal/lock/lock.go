// Package lock provides the optional cross-instance lock taken around stock-changing writes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotObtained is returned when another instance holds the lock past the wait budget
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes work on a key across API instances
type Locker interface {
	// Acquire blocks until the key is held or ctx/wait expires. The returned release is never nil.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// StockKey names the lock guarding one stack at one location within an org
func StockKey(orgID string, stackID uuid.UUID, locationID *uuid.UUID) string {
	loc := "any"
	if locationID != nil {
		loc = locationID.String()
	}
	return fmt.Sprintf("stock:%s:%s:%s", orgID, stackID, loc)
}

// NoopLocker is used when Redis is disabled. Row locks in the database still apply.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// RedisLocker implements Locker with redislock
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisLocker wraps an existing client
func NewRedisLocker(rdb redis.UniversalClient, ttl, wait time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, wait: wait, logger: logger}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	opts := &redislock.Options{}
	if l.wait > 0 {
		backoff := 50 * time.Millisecond
		opts.RetryStrategy = redislock.LimitRetry(redislock.LinearBackoff(backoff), int(l.wait/backoff))
	}

	lk, err := l.client.Obtain(ctx, key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return func() {}, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		// A fresh context so a cancelled request still releases its lock
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// New builds the locker selected by configuration. It returns the Redis client too so the
// caller can close it on shutdown; the client is nil for the no-op locker.
func New(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (Locker, *redis.Client, error) {
	if !cfg.Enabled {
		return NoopLocker{}, nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	logger.Info("Redis stock lock enabled", zap.String("address", cfg.Address))
	return NewRedisLocker(rdb, cfg.LockTTLDuration(), cfg.LockWaitDuration(), logger), rdb, nil
}
