package server

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitReasonActorRate     = "actor-rate"
	rateLimitReasonInFlightBatch = "in-flight-batch"
)

// BulkRateLimit throttles bulk endpoints per actor and rejects a second bulk
// request on the same route while the first is still running.
func (s *Server) BulkRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.bulkLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		a, err := actor.Require(ctx)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		actorKey := rateLimitActorKey(a)
		endpoint := normalizeRateLimitEndpoint(c)

		res, err := s.bulkLimiter.Allow(ctx, actorKey)
		if err != nil {
			logger.FromContext(ctx).Warn("bulk rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			denyBulkRateLimit(c, endpoint, rateLimitReasonActorRate, retry)
			return
		}

		release, ok, err := s.bulkLimiter.Acquire(ctx, actorKey, endpoint)
		if err != nil {
			logger.FromContext(ctx).Warn("bulk concurrency slot failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !ok {
			denyBulkRateLimit(c, endpoint, rateLimitReasonInFlightBatch, 1)
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.FromContext(ctx).Warn("bulk concurrency slot release failed", zap.Error(err))
			}
		}()

		c.Next()
	}
}

func denyBulkRateLimit(c *gin.Context, endpoint, reason string, retryAfter int) {
	logger.FromContext(c.Request.Context()).Warn("bulk rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func rateLimitActorKey(a actor.Actor) string {
	if a.ID > 0 {
		return strconv.FormatInt(a.ID, 10)
	}
	return strings.ToLower(strings.TrimSpace(a.Username))
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
