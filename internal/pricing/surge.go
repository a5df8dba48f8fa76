package pricing

import "github.com/shopspring/decimal"

func (o SurgeOperator) holds(occupancy, threshold Percent) bool {
	switch o {
	case OpGreater:
		return occupancy.GreaterThan(threshold)
	case OpLess:
		return occupancy.LessThan(threshold)
	case OpEqual:
		return occupancy.Equal(threshold)
	case OpGreaterOrEqual:
		return occupancy.GreaterThanOrEqual(threshold)
	case OpLessOrEqual:
		return occupancy.LessThanOrEqual(threshold)
	default:
		return false
	}
}

// EvaluateSurge selects the matching rule with the highest occupancy threshold (earliest in list
// order on ties) and returns its surcharge and ID. The surcharge is not subject to the daily cap.
// FixedAmount rules apply even when the base charge is zero.
func EvaluateSurge(rules []SurgeRule, occupancy Percent, baseCharge Money) (Money, string) {
	var winner *SurgeRule
	for i := range rules {
		r := &rules[i]
		if !r.Operator.holds(occupancy, r.OccupancyThreshold) {
			continue
		}
		if winner == nil || r.OccupancyThreshold.GreaterThan(winner.OccupancyThreshold) {
			winner = r
		}
	}
	if winner == nil {
		return decimal.Zero, ""
	}

	var surcharge Money
	switch winner.AdditionalType {
	case SurgePercentage:
		surcharge = percentOf(baseCharge, winner.AdditionalValue)
	case SurgeFixedAmount:
		surcharge = winner.AdditionalValue
	default:
		return decimal.Zero, ""
	}
	return roundCents(surcharge), winner.ID
}
