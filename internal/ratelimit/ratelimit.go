package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/domain"
	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/metrics"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// fixedWindowScript increments the window counter only while it is below the limit.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window_size = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	if current < max_requests then
		redis.call('INCR', key)
		redis.call('EXPIRE', key, window_size)
		return 1
	end
	return 0
`)

// RedisFixedWindow implements a Redis-based fixed window rate limiter
type RedisFixedWindow struct {
	client      redis.Scripter
	windowSize  time.Duration
	maxRequests int
	keyPrefix   string
	now         func() time.Time
}

// NewRedisFixedWindow creates a new Redis-based fixed window rate limiter
func NewRedisFixedWindow(client redis.Scripter, windowSize time.Duration, maxRequests int) *RedisFixedWindow {
	return &RedisFixedWindow{
		client:      client,
		windowSize:  windowSize,
		maxRequests: maxRequests,
		keyPrefix:   "pricing:ratelimit",
		now:         time.Now,
	}
}

func (rfw *RedisFixedWindow) windowKey(key string) string {
	windowStart := rfw.now().Truncate(rfw.windowSize)
	return fmt.Sprintf("%s:%s:%d", rfw.keyPrefix, key, windowStart.Unix())
}

// Allow checks if a request is allowed using Redis fixed window
func (rfw *RedisFixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	seconds := int(rfw.windowSize.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	result, err := fixedWindowScript.Run(ctx, rfw.client, []string{rfw.windowKey(key)},
		rfw.maxRequests, seconds).Int64()
	if err != nil {
		metrics.RecordRedisOperation("ratelimit", "error", time.Since(start))
		log.L(ctx).Error("Redis fixed window error", zap.Error(err))
		return false, err
	}
	metrics.RecordRedisOperation("ratelimit", "ok", time.Since(start))

	return result == 1, nil
}

// Middleware rejects requests over the limit with 429. Requests are keyed by client IP.
// Limiter failures are logged and the request is let through.
func Middleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		allowed, err := limiter.Allow(ctx, c.ClientIP())
		if err != nil {
			log.L(ctx).Warn("Rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			derr := domain.NewRateLimitedError()
			metrics.RecordError(derr.Code, "ratelimit")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, derr)
			return
		}
		c.Next()
	}
}
