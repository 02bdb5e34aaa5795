package projection

import (
	"time"

	"github.com/shopspring/decimal"
)

// Input carries the per-day totals of the target month and the month before.
type Input struct {
	Month    Month
	Current  DailySeries
	Previous DailySeries
	Budget   decimal.NullDecimal
}

// Result is the immutable outcome of one projection.
type Result struct {
	Month          Month
	CurrentToDate  decimal.Decimal
	PreviousToDate decimal.Decimal
	PreviousTotal  decimal.Decimal
	GrowthRate     decimal.Decimal
	ProjectedTotal decimal.Decimal
	Budget         decimal.NullDecimal
	BudgetHit      *time.Time
	Series         CumulativeSeries
}

// Calculate runs the projection pipeline over already accumulated series.
func Calculate(in Input) Result {
	current := Cumulate(in.Current)
	previous := Cumulate(in.Previous)
	est := Project(in.Month, current, previous)

	return Result{
		Month:          in.Month,
		CurrentToDate:  est.CurrentToDate,
		PreviousToDate: est.PreviousToDate,
		PreviousTotal:  est.PreviousTotal,
		GrowthRate:     est.GrowthRate,
		ProjectedTotal: est.ProjectedTotal,
		Budget:         in.Budget,
		BudgetHit:      EstimateBudgetHit(current, in.Month, est.ProjectedTotal, in.Budget),
		Series:         current,
	}
}

// CalculateEntries accumulates one owner's entries for the month and the
// month before, then calculates.
func CalculateEntries(m Month, entries []Entry, budget decimal.NullDecimal) Result {
	return Calculate(Input{
		Month:    m,
		Current:  Accumulate(entries, m),
		Previous: Accumulate(entries, m.Previous()),
		Budget:   budget,
	})
}

// CalculateFamily is CalculateEntries over several members' entries.
func CalculateFamily(m Month, members [][]Entry, budget decimal.NullDecimal) Result {
	return Calculate(Input{
		Month:    m,
		Current:  AccumulateFamily(members, m),
		Previous: AccumulateFamily(members, m.Previous()),
		Budget:   budget,
	})
}

// ComparisonIndex is the day up to which both months are compared.
func (r Result) ComparisonIndex() int { return r.Month.ComparisonIndex }

// DaysInMonth is the length of the target month.
func (r Result) DaysInMonth() int { return r.Month.Days }

// IsCurrentMonth reports whether the target month contains "now".
func (r Result) IsCurrentMonth() bool { return r.Month.IsCurrent }

// ExceedsBudget reports whether the projected total is above the budget.
func (r Result) ExceedsBudget() bool {
	return r.Budget.Valid && r.Budget.Decimal.IsPositive() && r.ProjectedTotal.GreaterThan(r.Budget.Decimal)
}

// Remaining is the budget left after the spend to date; zero without a budget.
func (r Result) Remaining() decimal.Decimal {
	if !r.Budget.Valid {
		return decimal.Zero
	}
	return r.Budget.Decimal.Sub(r.CurrentToDate)
}
