package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository"
)

// consumeScript seeds the counter from the snapshot count on first use, then increments it
// only while it is below the limit. Returns 1 when a redemption was reserved.
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local seed = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = seed
	else
		current = tonumber(current)
	end

	if current >= limit then
		return 0
	end
	redis.call('SET', key, current + 1)
	return 1
`)

// UsageStore keeps coupon usage counters in Redis
type UsageStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewUsageStore creates a Redis usage store
func NewUsageStore(client redis.Cmdable) *UsageStore {
	return &UsageStore{client: client, keyPrefix: "pricing:coupon:usage"}
}

func (s *UsageStore) Name() string { return "redis" }

func (s *UsageStore) key(code string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, repository.CouponKey(code))
}

func (s *UsageStore) TryConsume(ctx context.Context, coupon pricing.Coupon) (bool, error) {
	count, limit, limited := repository.SeedCount(coupon)
	if !limited {
		return true, nil
	}

	start := time.Now()
	result, err := consumeScript.Run(ctx, s.client, []string{s.key(coupon.Code)}, count, limit).Int64()
	if err != nil {
		metrics.RecordRedisOperation("coupon_consume", "error", time.Since(start))
		return false, fmt.Errorf("failed to consume coupon %s: %w", coupon.Code, err)
	}
	metrics.RecordRedisOperation("coupon_consume", "ok", time.Since(start))
	return result == 1, nil
}

// Count returns the live counter for a code, and false if Redis has not seen it yet
func (s *UsageStore) Count(ctx context.Context, code string) (int, bool, error) {
	n, err := s.client.Get(ctx, s.key(code)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read coupon usage: %w", err)
	}
	return n, true, nil
}
