package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
)

const defaultRetryInterval = 50 * time.Millisecond

// RedisLocker shares leases across processes through Redis.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	retries int
	metrics *metrics.WorkflowMetrics
}

func NewRedisLocker(client *redis.Client, cfg config.LockConfig, m *metrics.WorkflowMetrics) *RedisLocker {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:  redislock.New(client),
		ttl:     ttl,
		retries: cfg.Retries,
		metrics: m,
	}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (Lease, error) {
	start := time.Now()
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(defaultRetryInterval), l.retries),
	}

	lk, err := l.client.Obtain(ctx, key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, err
	}
	l.metrics.ObserveLockWait(resourceOf(key), time.Since(start))
	return &redisLease{lock: lk}, nil
}

type redisLease struct {
	lock *redislock.Lock
}

func (l *redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
