package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository"
	"github.com/parkops/pricingservice/internal/repository/memory"
)

type countingRepo struct {
	repository.CouponRepository
	finds int
}

func (r *countingRepo) FindByCode(ctx context.Context, code string) (*pricing.Coupon, error) {
	r.finds++
	return r.CouponRepository.FindByCode(ctx, code)
}

func setup(t *testing.T) (*miniredis.Miniredis, *countingRepo, *CouponCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{CouponRepository: memory.NewStore()}
	return mr, repo, NewCouponCache(client, repo, time.Minute)
}

func save10() pricing.Coupon {
	return pricing.Coupon{
		Code:          "SAVE10",
		DiscountType:  pricing.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		Usage:         &pricing.Usage{Limit: 5, Count: 1},
	}
}

func TestCouponCache_ReadThrough(t *testing.T) {
	mr, repo, c := setup(t)
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, save10()))

	first, err := c.FindByCode(ctx, "save10")
	require.NoError(t, err)
	second, err := c.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.finds)
	assert.Equal(t, first.Code, second.Code)
	assert.True(t, decimal.NewFromInt(10).Equal(second.DiscountValue))
	require.NotNil(t, second.Usage)
	assert.Equal(t, 5, second.Usage.Limit)
	assert.True(t, mr.Exists("pricing:coupon:def:save10"))
	assert.Equal(t, time.Minute, mr.TTL("pricing:coupon:def:save10"))
}

func TestCouponCache_UpsertInvalidates(t *testing.T) {
	mr, repo, c := setup(t)
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, save10()))
	_, err := c.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)

	updated := save10()
	updated.DiscountValue = decimal.NewFromInt(20)
	require.NoError(t, c.Upsert(ctx, updated))
	assert.False(t, mr.Exists("pricing:coupon:def:save10"))

	got, err := c.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(got.DiscountValue))
	assert.Equal(t, 2, repo.finds)
}

func TestCouponCache_NotFoundIsNotCached(t *testing.T) {
	mr, repo, c := setup(t)
	_, err := c.FindByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, mr.Exists("pricing:coupon:def:nope"))
	assert.Equal(t, 1, repo.finds)
}

func TestCouponCache_FallsBackWhenRedisIsDown(t *testing.T) {
	mr, repo, c := setup(t)
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, save10()))
	mr.Close()

	got, err := c.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
	assert.Equal(t, 1, repo.finds)
}

func TestCouponCache_DropsUndecodableEntry(t *testing.T) {
	mr, repo, c := setup(t)
	ctx := context.Background()
	require.NoError(t, c.Upsert(ctx, save10()))
	require.NoError(t, mr.Set("pricing:coupon:def:save10", "{not json"))

	got, err := c.FindByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
	assert.Equal(t, 1, repo.finds)
}
