package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkops/pricingservice/internal/events"
	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *events.Event) error {
	return p.PublishBatch(ctx, []*events.Event{event})
}

func (p *recordingPublisher) PublishBatch(_ context.Context, batch []*events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, batch...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingUsageStore struct{}

func (failingUsageStore) TryConsume(context.Context, pricing.Coupon) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (failingUsageStore) Name() string { return "failing" }

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func saveCoupon() pricing.Coupon {
	return pricing.Coupon{
		Code:              "SAVE15",
		DiscountType:      pricing.DiscountPercentage,
		DiscountValue:     d("15"),
		MaxDiscountAmount: d("5.00"),
		Usage:             &pricing.Usage{Limit: 1, Count: 0},
	}
}

// 300 minutes at 10.00/h with a 15% coupon capped at 5.00.
func request(coupon *pricing.Coupon) *CalculateRequest {
	duration := 300
	return &CalculateRequest{
		Session: pricing.ParkingSession{
			Location:               "lot-a",
			EntryTime:              time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC),
			DurationMinutes:        &duration,
			OccupancyPercentAtExit: d("40"),
			AppliedCouponCode:      "SAVE15",
		},
		Config: pricing.PricingConfig{
			Rate: pricing.FixedRate{StandardRate: d("10.00")},
		},
		Coupon: coupon,
	}
}

func newService(t *testing.T) (*PricingService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.NewStore()
	publisher := &recordingPublisher{}
	return NewPricingService(pricing.NewCalculator(), store, store, publisher), store, publisher
}

func TestQuote_HasNoSideEffects(t *testing.T) {
	svc, store, publisher := newService(t)
	ctx := context.Background()
	coupon := saveCoupon()
	require.NoError(t, store.Upsert(ctx, coupon))

	for i := 0; i < 3; i++ {
		got, err := svc.Quote(ctx, request(&coupon))
		require.NoError(t, err)
		assert.True(t, d("45.00").Equal(got.TotalDue), "got %s", got.TotalDue)
	}

	stored, err := store.FindByCode(ctx, "SAVE15")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Usage.Count)
	assert.Empty(t, publisher.types())
}

func TestQuote_LoadsCouponFromRepository(t *testing.T) {
	svc, store, _ := newService(t)
	require.NoError(t, store.Upsert(context.Background(), saveCoupon()))

	got, err := svc.Quote(context.Background(), request(nil))
	require.NoError(t, err)
	assert.Equal(t, "SAVE15", got.AppliedRuleIDs.Coupon)
	assert.True(t, d("5.00").Equal(got.DiscountAmount))
}

func TestQuote_LoweredLimitReadsAsExhausted(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	coupon := saveCoupon()
	coupon.Usage = &pricing.Usage{Limit: 5, Count: 3}
	require.NoError(t, store.Upsert(ctx, coupon))

	coupon.Usage = &pricing.Usage{Limit: 2, Count: 0}
	require.NoError(t, store.Upsert(ctx, coupon))

	got, err := svc.Quote(ctx, request(nil))
	require.NoError(t, err)
	assert.Equal(t, pricing.ReasonCouponExhausted, got.CouponRejection)
	assert.True(t, d("50.00").Equal(got.TotalDue))
}

func TestQuote_SnapshotOverLimitIsConfigInvalid(t *testing.T) {
	svc, _, _ := newService(t)
	coupon := saveCoupon()
	coupon.Usage = &pricing.Usage{Limit: 1, Count: 2}

	_, err := svc.Quote(context.Background(), request(&coupon))
	assert.ErrorIs(t, err, pricing.ErrConfigInvalid)
}

func TestQuote_UnknownCouponIsRejectedNotFailed(t *testing.T) {
	svc, _, _ := newService(t)

	got, err := svc.Quote(context.Background(), request(nil))
	require.NoError(t, err)
	assert.Equal(t, pricing.ReasonCouponNotFound, got.CouponRejection)
	assert.True(t, d("50.00").Equal(got.TotalDue))
}

func TestQuote_InvalidConfig(t *testing.T) {
	svc, _, _ := newService(t)
	req := request(nil)
	req.Config.Rate = pricing.FixedRate{StandardRate: d("-1")}

	_, err := svc.Quote(context.Background(), req)
	assert.ErrorIs(t, err, pricing.ErrConfigInvalid)
}

func TestSettle_ConsumesCouponAndPublishes(t *testing.T) {
	svc, store, publisher := newService(t)
	ctx := log.WithRequestID(context.Background(), "req-1")
	coupon := saveCoupon()

	got, err := svc.Settle(ctx, request(&coupon))
	require.NoError(t, err)
	assert.True(t, d("45.00").Equal(got.TotalDue))
	assert.Equal(t, []string{events.TypeSessionPriced, events.TypeCouponRedeemed}, publisher.types())

	var payload events.SessionPriced
	require.NoError(t, json.Unmarshal(publisher.events[0].Data, &payload))
	assert.Equal(t, "req-1", payload.RequestID)
	assert.Equal(t, "lot-a", publisher.events[0].Aggregate)

	// the single allowed redemption is used up
	ok, err := store.TryConsume(ctx, coupon)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettle_ConcurrentOverrunRepricesWithoutCoupon(t *testing.T) {
	svc, store, publisher := newService(t)
	ctx := context.Background()
	stale := saveCoupon()

	// another session redeemed the last use after this snapshot was taken
	ok, err := store.TryConsume(ctx, stale)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := svc.Settle(ctx, request(&stale))
	require.NoError(t, err)
	assert.True(t, d("50.00").Equal(got.TotalDue))
	assert.True(t, got.DiscountAmount.IsZero())
	assert.Empty(t, got.AppliedRuleIDs.Coupon)
	assert.Equal(t, pricing.ReasonCouponExhausted, got.CouponRejection)
	assert.Equal(t, []string{events.TypeSessionPriced}, publisher.types())
}

func TestSettle_ConcurrentRedemptionsRespectLimit(t *testing.T) {
	svc, _, _ := newService(t)
	coupon := saveCoupon()
	coupon.Usage.Limit = 3

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := coupon
			usage := *coupon.Usage
			c.Usage = &usage
			got, err := svc.Settle(context.Background(), request(&c))
			if err == nil && got.AppliedRuleIDs.Coupon != "" {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, applied)
}

func TestSettle_UsageStoreFailure(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewPricingService(pricing.NewCalculator(), nil, failingUsageStore{}, publisher)
	coupon := saveCoupon()

	_, err := svc.Settle(context.Background(), request(&coupon))
	assert.Error(t, err)
	assert.Empty(t, publisher.types())
}

func TestSettle_PublishFailureDoesNotFailSettlement(t *testing.T) {
	store := memory.NewStore()
	publisher := &recordingPublisher{err: errors.New("kafka down")}
	svc := NewPricingService(pricing.NewCalculator(), store, store, publisher)

	got, err := svc.Settle(context.Background(), request(nil))
	require.NoError(t, err)
	assert.Equal(t, pricing.ReasonCouponNotFound, got.CouponRejection)
}

func TestSettle_WithoutCouponSkipsUsageStore(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewPricingService(pricing.NewCalculator(), nil, failingUsageStore{}, publisher)
	req := request(nil)
	req.Session.AppliedCouponCode = ""

	got, err := svc.Settle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, d("50.00").Equal(got.TotalDue))
	assert.Equal(t, []string{events.TypeSessionPriced}, publisher.types())
}
