package projection

import "github.com/shopspring/decimal"

// Estimate is the output of Project.
type Estimate struct {
	CurrentToDate  decimal.Decimal
	PreviousToDate decimal.Decimal
	PreviousTotal  decimal.Decimal
	GrowthRate     decimal.Decimal
	ProjectedTotal decimal.Decimal
}

// GrowthRate compares spend to date with the previous month's spend at the
// same day. Negative ratios are clamped to zero; with no history a non-zero
// current spend counts as flat growth.
func GrowthRate(currentToDate, prevToDate decimal.Decimal) decimal.Decimal {
	switch {
	case prevToDate.IsPositive():
		rate := currentToDate.Div(prevToDate)
		if rate.IsNegative() {
			return decimal.Zero
		}
		return rate
	case currentToDate.IsPositive():
		return decimal.NewFromInt(1)
	default:
		return decimal.Zero
	}
}

// Project estimates the month-end total of m from the current and previous
// month's running sums. The projection never drops below the spend to date.
func Project(m Month, current, previous CumulativeSeries) Estimate {
	ci := m.ComparisonIndex
	est := Estimate{
		CurrentToDate:  current.At(ci),
		PreviousToDate: previous.At(min(ci, previous.Days())),
		PreviousTotal:  previous.Last(),
	}
	est.GrowthRate = GrowthRate(est.CurrentToDate, est.PreviousToDate)

	projected := est.PreviousTotal.Mul(est.GrowthRate)
	if !projected.IsPositive() && ci > 0 {
		projected = est.CurrentToDate.Mul(decimal.NewFromInt(int64(m.Days))).Div(decimal.NewFromInt(int64(ci)))
	}
	projected = projected.Round(2)
	if projected.LessThan(est.CurrentToDate) {
		projected = est.CurrentToDate
	}
	est.ProjectedTotal = projected
	return est
}
