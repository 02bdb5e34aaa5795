package projection

import (
	"time"

	"github.com/shopspring/decimal"
)

// EstimateBudgetHit returns the date on which cumulative spend reaches budget.
//
// An actual breach on or before the comparison day wins over the forecast.
// Otherwise the remaining projected spend is spread evenly over the rest of
// the month; a forecast landing after the month end yields nil.
func EstimateBudgetHit(series CumulativeSeries, m Month, projected decimal.Decimal, budget decimal.NullDecimal) *time.Time {
	if !budget.Valid || !budget.Decimal.IsPositive() {
		return nil
	}
	limit := budget.Decimal
	ci := m.ComparisonIndex

	for day := 1; day <= ci; day++ {
		if series.At(day).GreaterThanOrEqual(limit) {
			hit := m.DayDate(day)
			return &hit
		}
	}

	remainingDays := m.Days - ci
	if remainingDays <= 0 {
		return nil
	}
	currentToDate := series.At(ci)
	extra := projected.Sub(currentToDate)
	if !extra.IsPositive() {
		return nil
	}

	// ceil(needed / (extra / remainingDays)), divided once so the quotient
	// stays exact.
	needed := limit.Sub(currentToDate)
	q, r := needed.Mul(decimal.NewFromInt(int64(remainingDays))).QuoRem(extra, 0)
	daysNeeded := q.IntPart()
	if r.IsPositive() {
		daysNeeded++
	}
	day := ci + int(daysNeeded)
	if day > m.Days {
		return nil
	}
	hit := m.DayDate(day)
	return &hit
}
