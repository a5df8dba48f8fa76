package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/cache"
	"github.com/parkops/pricingservice/internal/config"
	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository"
	"github.com/parkops/pricingservice/internal/repository/memory"
	"github.com/parkops/pricingservice/internal/repository/postgres"
	"github.com/parkops/pricingservice/internal/repository/redisstore"
)

// CouponStores bundles the coupon definition repository and the usage counter backend
type CouponStores struct {
	Coupons repository.CouponRepository
	Usage   repository.UsageStore
}

// NewCouponStores selects the coupon backends configured by pricing.coupon_store.
// Coupon definitions live in Postgres whenever a pool is available, otherwise in memory.
// Postgres definitions are cached in Redis when both are configured.
func NewCouponStores(ctx context.Context, cfg *config.Config, redisClient redis.Cmdable, pg postgres.DB) (*CouponStores, error) {
	log.Info(ctx, "Initializing coupon stores",
		zap.String("coupon_store", cfg.Pricing.CouponStore))

	mem := memory.NewStore()
	stores := &CouponStores{Coupons: mem, Usage: mem}

	var pgStore *postgres.Store
	if pg != nil {
		pgStore = postgres.NewStore(pg)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		stores.Coupons = pgStore
		if redisClient != nil && cfg.Pricing.CouponCacheTTL > 0 {
			stores.Coupons = cache.NewCouponCache(redisClient, pgStore, cfg.Pricing.CouponCacheTTL)
		}
	}

	switch cfg.Pricing.CouponStore {
	case "memory":
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis coupon store requires a redis connection")
		}
		stores.Usage = redisstore.NewUsageStore(redisClient)
	case "postgres":
		if pgStore == nil {
			return nil, fmt.Errorf("postgres coupon store requires a database connection")
		}
		stores.Usage = pgStore
	default:
		return nil, fmt.Errorf("unsupported coupon store: %s", cfg.Pricing.CouponStore)
	}

	log.Info(ctx, "Coupon stores initialized",
		zap.String("usage_store", stores.Usage.Name()))
	return stores, nil
}

// NewCalculator builds the pricing calculator from configuration
func NewCalculator(cfg *config.Config) (*pricing.Calculator, error) {
	peak, err := cfg.Pricing.PeakRange()
	if err != nil {
		return nil, err
	}
	return pricing.NewCalculator(
		pricing.WithTaxRate(decimal.NewFromFloat(cfg.Pricing.TaxRate)),
		pricing.WithPeakHours(peak),
	), nil
}
