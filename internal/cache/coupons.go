package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository"
)

// DefaultTTL bounds how stale a cached coupon definition can be
const DefaultTTL = 2 * time.Minute

// CouponCache is a read-through Redis cache in front of a coupon repository.
// Cache failures are logged and fall back to the repository.
type CouponCache struct {
	client    redis.Cmdable
	next      repository.CouponRepository
	ttl       time.Duration
	keyPrefix string
}

// NewCouponCache wraps next with a Redis cache
func NewCouponCache(client redis.Cmdable, next repository.CouponRepository, ttl time.Duration) *CouponCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CouponCache{
		client:    client,
		next:      next,
		ttl:       ttl,
		keyPrefix: "pricing:coupon:def",
	}
}

func (c *CouponCache) key(code string) string {
	return fmt.Sprintf("%s:%s", c.keyPrefix, repository.CouponKey(code))
}

// FindByCode returns the cached coupon or loads and caches it
func (c *CouponCache) FindByCode(ctx context.Context, code string) (*pricing.Coupon, error) {
	if coupon, ok := c.get(ctx, code); ok {
		return coupon, nil
	}

	coupon, err := c.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.set(ctx, coupon)
	return coupon, nil
}

// Upsert writes through to the repository and drops the cached copy
func (c *CouponCache) Upsert(ctx context.Context, coupon pricing.Coupon) error {
	if err := c.next.Upsert(ctx, coupon); err != nil {
		return err
	}
	start := time.Now()
	err := c.client.Del(ctx, c.key(coupon.Code)).Err()
	metrics.RecordRedisOperation("coupon_cache_del", status(err), time.Since(start))
	if err != nil {
		log.Warn(ctx, "Failed to invalidate cached coupon",
			zap.String("code", coupon.Code), zap.Error(err))
	}
	return nil
}

func (c *CouponCache) get(ctx context.Context, code string) (*pricing.Coupon, bool) {
	start := time.Now()
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordRedisOperation("coupon_cache_get", "miss", time.Since(start))
		return nil, false
	}
	metrics.RecordRedisOperation("coupon_cache_get", status(err), time.Since(start))
	if err != nil {
		log.Warn(ctx, "Coupon cache read failed", zap.String("code", code), zap.Error(err))
		return nil, false
	}

	var coupon pricing.Coupon
	if err := json.Unmarshal(data, &coupon); err != nil {
		log.Warn(ctx, "Dropping undecodable cached coupon", zap.String("code", code), zap.Error(err))
		return nil, false
	}
	return &coupon, true
}

func (c *CouponCache) set(ctx context.Context, coupon *pricing.Coupon) {
	data, err := json.Marshal(coupon)
	if err != nil {
		return
	}
	start := time.Now()
	err = c.client.Set(ctx, c.key(coupon.Code), data, c.ttl).Err()
	metrics.RecordRedisOperation("coupon_cache_set", status(err), time.Since(start))
	if err != nil {
		log.Warn(ctx, "Coupon cache write failed", zap.String("code", coupon.Code), zap.Error(err))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
