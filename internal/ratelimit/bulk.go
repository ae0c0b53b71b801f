package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyBulkBucket = "coretrack:bulk:rate:%s"
	keyBulkSlot   = "coretrack:bulk:slot:%s:%s"
)

// BulkLimiter throttles bulk endpoints per actor and allows one in-flight
// bulk request per actor and route.
type BulkLimiter struct {
	bucket  *TokenBucket
	slot    *Slot
	rate    float64
	burst   int
	lockTTL time.Duration
}

type BulkLimiterParams struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Redis  *redis.Client `optional:"true"`
}

// NewBulkLimiter returns nil when rate limiting is off or Redis is missing.
func NewBulkLimiter(p BulkLimiterParams) *BulkLimiter {
	cfg := p.Config.RateLimit
	if !cfg.Enabled {
		return nil
	}
	if p.Redis == nil {
		p.Log.Warn("bulk rate limit enabled without redis; disabled")
		return nil
	}
	return newBulkLimiter(p.Redis, cfg)
}

func newBulkLimiter(client *redis.Client, cfg config.RateLimitConfig) *BulkLimiter {
	return &BulkLimiter{
		bucket:  NewTokenBucket(client),
		slot:    NewSlot(client),
		rate:    cfg.BulkRate,
		burst:   cfg.BulkBurst,
		lockTTL: cfg.BulkLockTTL,
	}
}

func (l *BulkLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *BulkLimiter) Allow(ctx context.Context, actorKey string) (Result, error) {
	return l.bucket.Allow(ctx, fmt.Sprintf(keyBulkBucket, actorKey), l.rate, l.burst)
}

// Acquire claims the actor's slot for route. The returned release func is
// never nil.
func (l *BulkLimiter) Acquire(ctx context.Context, actorKey, route string) (func(context.Context) error, bool, error) {
	key := fmt.Sprintf(keyBulkSlot, actorKey, route)
	token, ok, err := l.slot.TryAcquire(ctx, key, l.lockTTL)
	if err != nil || !ok {
		return func(context.Context) error { return nil }, false, err
	}
	return func(ctx context.Context) error { return l.slot.Release(ctx, key, token) }, true, nil
}
