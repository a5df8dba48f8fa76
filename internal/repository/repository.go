package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/parkops/pricingservice/internal/pricing"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// CouponRepository stores coupon definitions
type CouponRepository interface {
	// FindByCode returns the coupon with its current usage count, or ErrNotFound
	FindByCode(ctx context.Context, code string) (*pricing.Coupon, error)

	// Upsert creates or replaces a coupon definition. Usage counts never go backwards.
	Upsert(ctx context.Context, coupon pricing.Coupon) error
}

// UsageStore reserves coupon redemptions
type UsageStore interface {
	// TryConsume atomically increments the coupon's usage count if it is below the limit.
	// The store seeds its counter from the snapshot's count the first time it sees a code.
	// Coupons without a usage limit always succeed.
	TryConsume(ctx context.Context, coupon pricing.Coupon) (bool, error)

	// Name identifies the backend in logs and metrics
	Name() string
}

// CouponKey normalizes a coupon code for storage lookups
func CouponKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// SeedCount returns the snapshot usage count and limit. ok is false for unlimited coupons.
func SeedCount(coupon pricing.Coupon) (count, limit int, ok bool) {
	if coupon.Usage == nil {
		return 0, 0, false
	}
	return coupon.Usage.Count, coupon.Usage.Limit, true
}
