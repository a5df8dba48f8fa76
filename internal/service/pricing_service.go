package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/domain"
	"github.com/parkops/pricingservice/internal/events"
	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository"
	"github.com/parkops/pricingservice/internal/tracing"
)

// CalculateRequest is the body of the calculate and settle endpoints
type CalculateRequest struct {
	Session    pricing.ParkingSession `json:"session"`
	Config     pricing.PricingConfig  `json:"config"`
	SurgeRules []pricing.SurgeRule    `json:"surgeRules"`
	Coupon     *pricing.Coupon        `json:"coupon"`
}

// PricingService prices parking sessions and settles coupon redemptions
type PricingService struct {
	calculator *pricing.Calculator
	coupons    repository.CouponRepository
	usage      repository.UsageStore
	publisher  events.Publisher
}

// NewPricingService creates a pricing service. coupons may be nil, in which case requests must
// carry their own coupon snapshot.
func NewPricingService(
	calculator *pricing.Calculator,
	coupons repository.CouponRepository,
	usage repository.UsageStore,
	publisher events.Publisher,
) *PricingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PricingService{
		calculator: calculator,
		coupons:    coupons,
		usage:      usage,
		publisher:  publisher,
	}
}

// Quote computes a price breakdown without side effects
func (s *PricingService) Quote(ctx context.Context, req *CalculateRequest) (pricing.PriceBreakdown, error) {
	ctx, span := tracing.StartSpan(ctx, "PricingService.Quote")
	defer span.End()
	ctx = log.WithSession(ctx, req.Session.Location, req.Session.AppliedCouponCode)

	coupon, err := s.resolveCoupon(ctx, req)
	if err != nil {
		return pricing.PriceBreakdown{}, err
	}
	return s.compute(ctx, req.Session, req, coupon)
}

// Settle computes the final price and reserves the coupon redemption. When another settlement
// exhausted the coupon in the meantime, the session is repriced without it.
func (s *PricingService) Settle(ctx context.Context, req *CalculateRequest) (pricing.PriceBreakdown, error) {
	ctx, span := tracing.StartSpan(ctx, "PricingService.Settle")
	defer span.End()
	ctx = log.WithSession(ctx, req.Session.Location, req.Session.AppliedCouponCode)

	coupon, err := s.resolveCoupon(ctx, req)
	if err != nil {
		return pricing.PriceBreakdown{}, err
	}
	breakdown, err := s.compute(ctx, req.Session, req, coupon)
	if err != nil {
		return pricing.PriceBreakdown{}, err
	}

	redeemed := false
	if breakdown.AppliedRuleIDs.Coupon != "" {
		consumed, err := s.usage.TryConsume(ctx, *coupon)
		metrics.RecordCouponConsume(s.usage.Name(), consumed, err)
		if err != nil {
			tracing.RecordError(ctx, err)
			log.Error(ctx, "Failed to reserve coupon redemption",
				zap.String("store", s.usage.Name()),
				zap.Error(err))
			return pricing.PriceBreakdown{}, fmt.Errorf("failed to consume coupon: %w", err)
		}

		if consumed {
			redeemed = true
		} else {
			log.Warn(ctx, "Coupon exhausted during settlement, repricing without it",
				zap.Error(domain.ErrCouponOverrun))
			tracing.AddSpanEvent(ctx, "coupon.overrun")

			session := req.Session
			session.AppliedCouponCode = ""
			breakdown, err = s.compute(ctx, session, req, nil)
			if err != nil {
				return pricing.PriceBreakdown{}, err
			}
			breakdown.CouponRejection = pricing.ReasonCouponExhausted
			metrics.RecordCouponEvaluation(string(pricing.ReasonCouponExhausted))
		}
	}

	s.publish(ctx, req, breakdown, redeemed)
	return breakdown, nil
}

// resolveCoupon prefers the snapshot in the request and falls back to the repository
func (s *PricingService) resolveCoupon(ctx context.Context, req *CalculateRequest) (*pricing.Coupon, error) {
	if req.Coupon != nil || req.Session.AppliedCouponCode == "" || s.coupons == nil {
		return req.Coupon, nil
	}

	coupon, err := s.coupons.FindByCode(ctx, req.Session.AppliedCouponCode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordError("coupon_lookup", "service")
		log.Error(ctx, "Failed to load coupon", zap.Error(err))
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}
	// Stores keep past redemptions when a limit is lowered; such a coupon is simply used up.
	if coupon.Usage != nil && coupon.Usage.Count > coupon.Usage.Limit {
		usage := *coupon.Usage
		usage.Count = usage.Limit
		coupon.Usage = &usage
	}
	return coupon, nil
}

func (s *PricingService) compute(ctx context.Context, session pricing.ParkingSession, req *CalculateRequest, coupon *pricing.Coupon) (pricing.PriceBreakdown, error) {
	mode := "unknown"
	if req.Config.Rate != nil {
		mode = string(req.Config.Rate.Mode())
	}
	ctx = log.WithRateMode(ctx, mode)

	breakdown, err := s.calculator.Compute(session, req.Config, req.SurgeRules, coupon)
	if err != nil {
		derr := domain.SanitizeError(err)
		metrics.RecordCalculation(mode, derr.Code, 0)
		tracing.RecordError(ctx, err)
		log.Warn(ctx, "Pricing request rejected",
			zap.String("code", derr.Code),
			zap.Error(err))
		return pricing.PriceBreakdown{}, err
	}

	total, _ := breakdown.TotalDue.Float64()
	metrics.RecordCalculation(mode, "ok", total)
	if breakdown.AppliedRuleIDs.SurgeRule != "" {
		metrics.RecordSurgeApplied(breakdown.AppliedRuleIDs.SurgeRule)
	}
	switch {
	case breakdown.AppliedRuleIDs.Coupon != "":
		metrics.RecordCouponEvaluation("applied")
	case breakdown.CouponRejection != "":
		metrics.RecordCouponEvaluation(string(breakdown.CouponRejection))
	}

	tracing.SetSpanAttributes(ctx,
		attribute.String("pricing.mode", mode),
		attribute.Int("pricing.duration_minutes", breakdown.DurationMinutes),
		attribute.String("pricing.total_due", breakdown.TotalDue.StringFixed(2)))

	log.Debug(ctx, "Session priced",
		zap.Int("duration_minutes", breakdown.DurationMinutes),
		zap.String("total_due", breakdown.TotalDue.StringFixed(2)),
		zap.String("coupon_rejection", string(breakdown.CouponRejection)))
	return breakdown, nil
}

// publish emits settlement events. Failures are logged and never fail the settlement.
func (s *PricingService) publish(ctx context.Context, req *CalculateRequest, breakdown pricing.PriceBreakdown, redeemed bool) {
	location := req.Session.Location
	batch := make([]*events.Event, 0, 2)

	priced, err := events.NewEvent(events.TypeSessionPriced, location, events.SessionPriced{
		RequestID:       log.RequestID(ctx),
		Location:        location,
		EntryTime:       req.Session.EntryTime,
		DurationMinutes: breakdown.DurationMinutes,
		Breakdown:       breakdown,
	})
	if err == nil {
		batch = append(batch, priced)
	}
	if redeemed {
		event, err := events.NewEvent(events.TypeCouponRedeemed, location, events.CouponRedeemed{
			Code:           breakdown.AppliedRuleIDs.Coupon,
			Location:       location,
			DiscountAmount: breakdown.DiscountAmount,
		})
		if err == nil {
			batch = append(batch, event)
		}
	}

	if err := s.publisher.PublishBatch(ctx, batch); err != nil {
		metrics.RecordError("publish", "service")
		log.Error(ctx, "Failed to publish settlement events", zap.Error(err))
	}
}
