package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is an amount in the configured currency. All arithmetic is exact decimal.
type Money = decimal.Decimal

// Percent is a percentage in the range [0, 100].
type Percent = decimal.Decimal

// RateMode names the rate-computation strategy of a PricingConfig.
type RateMode string

const (
	ModeFixed       RateMode = "Fixed"
	ModeProgressive RateMode = "Progressive"
	ModeTimeWindow  RateMode = "TimeWindow"
)

// RateModel is the mode-specific part of a PricingConfig. It is implemented only by
// FixedRate, ProgressiveRate and TimeWindowRate.
type RateModel interface {
	Mode() RateMode
	// charge returns the uncapped base charge for a session of the given length.
	charge(durationMinutes int, entry time.Time) Money
	validate() error
}

// PricingConfig is an immutable snapshot of a location's pricing configuration.
type PricingConfig struct {
	Rate         RateModel
	MaxDailyRate Money
	IncludeTax   bool
	// PeakHours is the peak range used by peak-only coupons when the rate model does not flag peak windows.
	PeakHours *TimeRange
}

// FixedRate bills every started hour at a single rate after a free grace period.
type FixedRate struct {
	StandardRate       Money
	GracePeriodMinutes int
}

// Mode implements RateModel.
func (FixedRate) Mode() RateMode { return ModeFixed }

// Tier consumes up to HoursThreshold hours at RatePerHour.
type Tier struct {
	HoursThreshold int   `json:"hoursThreshold"`
	RatePerHour    Money `json:"ratePerHour"`
}

// ProgressiveRate walks Tiers in list order.
type ProgressiveRate struct {
	Tiers []Tier
}

// Mode implements RateModel.
func (ProgressiveRate) Mode() RateMode { return ModeProgressive }

// TimeWindow is a named, day-and-time-scoped hourly rate.
type TimeWindow struct {
	Name        string    `json:"name"`
	StartTime   TimeOfDay `json:"startTime"`
	EndTime     TimeOfDay `json:"endTime"`
	RatePerHour Money     `json:"ratePerHour"`
	DaysOfWeek  []Weekday `json:"daysOfWeek"`
	// Peak marks the window as part of the peak schedule for peak-only coupons.
	Peak bool `json:"isPeak,omitempty"`
}

// TimeWindowRate bills each minute at the rate of the first window covering it.
type TimeWindowRate struct {
	Windows     []TimeWindow
	DefaultRate Money
}

// Mode implements RateModel.
func (TimeWindowRate) Mode() RateMode { return ModeTimeWindow }

// TimeRange is a daily [Start, End) time-of-day range. End before Start crosses midnight.
// A whole day is 00:00-24:00; End equal to Start is empty and rejected by validation.
type TimeRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// covers reports whether the minute-of-day tod falls inside the range.
func (r TimeRange) covers(tod int) bool {
	s, e := int(r.Start), int(r.End)
	switch {
	case s == e:
		return false
	case s < e:
		return tod >= s && tod < e
	default:
		return tod >= s || tod < e
	}
}

// SurgeOperator compares current occupancy against a rule threshold.
type SurgeOperator string

const (
	OpGreater        SurgeOperator = ">"
	OpLess           SurgeOperator = "<"
	OpEqual          SurgeOperator = "="
	OpGreaterOrEqual SurgeOperator = ">="
	OpLessOrEqual    SurgeOperator = "<="
)

// SurgeType selects how a surge rule's AdditionalValue is interpreted.
type SurgeType string

const (
	SurgePercentage  SurgeType = "Percentage"
	SurgeFixedAmount SurgeType = "FixedAmount"
)

// SurgeRule adds a surcharge when occupancy satisfies Operator against OccupancyThreshold.
type SurgeRule struct {
	ID                 string          `json:"id"`
	OccupancyThreshold Percent         `json:"occupancyThreshold"`
	Operator           SurgeOperator   `json:"operator"`
	AdditionalType     SurgeType       `json:"additionalType"`
	AdditionalValue    decimal.Decimal `json:"additionalValue"`
}

// DiscountType selects how a coupon's DiscountValue is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "Percentage"
	DiscountFixed      DiscountType = "Fixed"
)

// Validity bounds the period in which a coupon can be redeemed. Both ends are inclusive.
type Validity struct {
	ValidFrom time.Time `json:"validFrom"`
	ValidTo   time.Time `json:"validTo"`
}

// Usage tracks redemptions against a limit.
type Usage struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// CouponConditions are behavioural eligibility flags.
type CouponConditions struct {
	FirstTimeUsersOnly    bool `json:"firstTimeUsersOnly"`
	WeekendsOnly          bool `json:"weekendsOnly"`
	PeakHoursOnly         bool `json:"peakHoursOnly"`
	MultipleHoursRequired bool `json:"multipleHoursRequired"`
}

// Coupon is a promotional discount rule.
type Coupon struct {
	Code              string           `json:"code"`
	DiscountType      DiscountType     `json:"discountType"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount Money            `json:"maxDiscountAmount"` // 0 = unlimited, percentage coupons only
	MinPurchaseAmount Money            `json:"minPurchaseAmount"`
	Validity          *Validity        `json:"validity,omitempty"` // nil = unlimited
	Usage             *Usage           `json:"usage,omitempty"`    // nil = unlimited
	EligibleLocations []string         `json:"eligibleLocations,omitempty"`
	Conditions        CouponConditions `json:"conditions"`
}

// ParkingSession is a completed (or exiting) stay at a location.
type ParkingSession struct {
	Location  string     `json:"location"`
	EntryTime time.Time  `json:"entryTime"`
	ExitTime  *time.Time `json:"exitTime,omitempty"`
	// DurationMinutes takes precedence over ExitTime when both are present.
	DurationMinutes        *int    `json:"durationMinutes,omitempty"`
	OccupancyPercentAtExit Percent `json:"occupancyPercentAtExit"`
	IsFirstTimeUser        bool    `json:"isFirstTimeUser"`
	AppliedCouponCode      string  `json:"appliedCouponCode,omitempty"`
}

// CouponReason explains why a coupon did not apply.
type CouponReason string

const (
	ReasonCouponNotFound       CouponReason = "CouponNotFound"
	ReasonCouponExpired        CouponReason = "CouponExpired"
	ReasonCouponExhausted      CouponReason = "CouponExhausted"
	ReasonLocationIneligible   CouponReason = "LocationIneligible"
	ReasonBelowMinimumPurchase CouponReason = "BelowMinimumPurchase"
	ReasonConditionUnmet       CouponReason = "ConditionUnmet"
)

// AppliedRules records which surge rule and coupon contributed to a breakdown.
type AppliedRules struct {
	SurgeRule string `json:"surgeRule,omitempty"`
	Coupon    string `json:"coupon,omitempty"`
}

// PriceBreakdown is the itemised result of a pricing computation.
type PriceBreakdown struct {
	Mode            RateMode     `json:"mode"`
	DurationMinutes int          `json:"durationMinutes"`
	BaseCharge      Money        `json:"baseCharge"`
	SurgeSurcharge  Money        `json:"surgeSurcharge"`
	DiscountAmount  Money        `json:"discountAmount"`
	TaxAmount       Money        `json:"taxAmount"`
	TotalDue        Money        `json:"totalDue"`
	AppliedRuleIDs  AppliedRules `json:"appliedRuleIds"`
	CouponRejection CouponReason `json:"couponRejection,omitempty"`
}
