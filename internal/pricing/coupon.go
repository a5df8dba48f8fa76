package pricing

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MultipleHoursMinutes is the minimum stay for coupons requiring multiple hours.
const MultipleHoursMinutes = 120

// ValidationResult is the outcome of coupon eligibility checks.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Reason CouponReason `json:"reason,omitempty"`
}

// CouponInput is the session context a coupon is checked against.
type CouponInput struct {
	Code             string
	Location         string
	Entry            time.Time
	DurationMinutes  int
	FirstTimeUser    bool
	PreDiscountTotal Money
	// EvaluatedAt is the instant the validity window is checked against.
	EvaluatedAt time.Time
	peak        peakSchedule
}

func invalid(reason CouponReason) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason}
}

// ValidateCoupon runs the eligibility checks in order and reports the first failure. It never
// returns an error: an ineligible coupon is an ordinary outcome.
func ValidateCoupon(c *Coupon, in CouponInput) ValidationResult {
	if c == nil || !strings.EqualFold(strings.TrimSpace(c.Code), strings.TrimSpace(in.Code)) {
		return invalid(ReasonCouponNotFound)
	}
	if v := c.Validity; v != nil && (in.EvaluatedAt.Before(v.ValidFrom) || in.EvaluatedAt.After(v.ValidTo)) {
		return invalid(ReasonCouponExpired)
	}
	if u := c.Usage; u != nil && u.Count >= u.Limit {
		return invalid(ReasonCouponExhausted)
	}
	if len(c.EligibleLocations) > 0 && !slices.Contains(c.EligibleLocations, in.Location) {
		return invalid(ReasonLocationIneligible)
	}
	if in.PreDiscountTotal.LessThan(c.MinPurchaseAmount) {
		return invalid(ReasonBelowMinimumPurchase)
	}
	if !conditionsMet(c.Conditions, in) {
		return invalid(ReasonConditionUnmet)
	}
	return ValidationResult{Valid: true}
}

func conditionsMet(cond CouponConditions, in CouponInput) bool {
	if cond.FirstTimeUsersOnly && !in.FirstTimeUser {
		return false
	}
	if cond.WeekendsOnly {
		if wd := in.Entry.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return false
		}
	}
	if cond.PeakHoursOnly && !in.peak.overlaps(in.Entry, in.DurationMinutes) {
		return false
	}
	if cond.MultipleHoursRequired && in.DurationMinutes < MultipleHoursMinutes {
		return false
	}
	return true
}

// ApplyCoupon computes the discount of an already validated coupon. The result is always within
// [0, preDiscountTotal].
func ApplyCoupon(c Coupon, preDiscountTotal Money) Money {
	if !preDiscountTotal.IsPositive() {
		return decimal.Zero
	}

	var discount Money
	switch c.DiscountType {
	case DiscountPercentage:
		discount = percentOf(preDiscountTotal, c.DiscountValue)
		if c.MaxDiscountAmount.IsPositive() {
			discount = minMoney(discount, c.MaxDiscountAmount)
		}
	case DiscountFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}

	discount = roundCents(discount)
	return maxMoney(decimal.Zero, minMoney(discount, preDiscountTotal))
}
