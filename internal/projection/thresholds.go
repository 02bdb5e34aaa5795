package projection

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ThresholdBreach is a category whose month spend reached its limit.
type ThresholdBreach struct {
	Category string
	Spent    decimal.Decimal
	Limit    decimal.Decimal
}

// Over returns how much the spend exceeds the limit.
func (b ThresholdBreach) Over() decimal.Decimal {
	return b.Spent.Sub(b.Limit)
}

// SumByCategory adds up per-category amounts across several members.
func SumByCategory(members ...map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, sums := range members {
		for category, amount := range sums {
			out[category] = out[category].Add(amount)
		}
	}
	return out
}

// CheckThresholds compares category sums with their limits. A category
// breaches when its spend is at or above a positive limit. Categories with a
// limit but no spend never breach. The result is sorted by category.
func CheckThresholds(sums, limits map[string]decimal.Decimal) []ThresholdBreach {
	var breaches []ThresholdBreach
	for category, limit := range limits {
		if !limit.IsPositive() {
			continue
		}
		spent, ok := sums[category]
		if !ok {
			continue
		}
		if spent.GreaterThanOrEqual(limit) {
			breaches = append(breaches, ThresholdBreach{Category: category, Spent: spent, Limit: limit})
		}
	}
	sort.Slice(breaches, func(i, j int) bool { return breaches[i].Category < breaches[j].Category })
	return breaches
}
