package projection

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one dated monetary amount.
type Entry struct {
	At     time.Time
	Amount decimal.Decimal
}

// DailySeries holds a total per day-of-month, zero-filled for 1..Days.
type DailySeries struct {
	totals []decimal.Decimal // index 0 is day 1
}

// NewDailySeries returns a zero-filled series for the given number of days.
func NewDailySeries(days int) DailySeries {
	if days < 0 {
		days = 0
	}
	totals := make([]decimal.Decimal, days)
	for i := range totals {
		totals[i] = decimal.Zero
	}
	return DailySeries{totals: totals}
}

// DailySeriesFromTotals builds a series from per-day totals, day 1 first.
func DailySeriesFromTotals(totals ...decimal.Decimal) DailySeries {
	return DailySeries{totals: append([]decimal.Decimal(nil), totals...)}
}

// Days returns the number of days in the series.
func (s DailySeries) Days() int { return len(s.totals) }

// At returns the total for a day, or zero when the day is out of range.
func (s DailySeries) At(day int) decimal.Decimal {
	if day < 1 || day > len(s.totals) {
		return decimal.Zero
	}
	return s.totals[day-1]
}

// Add returns the day-wise sum of s and o. The result has s's length; extra
// days in o are dropped.
func (s DailySeries) Add(o DailySeries) DailySeries {
	out := NewDailySeries(s.Days())
	for day := 1; day <= s.Days(); day++ {
		out.totals[day-1] = s.At(day).Add(o.At(day))
	}
	return out
}

// Accumulate buckets entries into per-day totals for m. Entries outside
// [m.Start, m.End] are dropped.
func Accumulate(entries []Entry, m Month) DailySeries {
	series := NewDailySeries(m.Days)
	for _, e := range entries {
		if !m.Contains(e.At) {
			continue
		}
		day := e.At.In(m.Start.Location()).Day()
		if day < 1 || day > series.Days() {
			continue
		}
		series.totals[day-1] = series.totals[day-1].Add(e.Amount)
	}
	return series
}

// AccumulateFamily accumulates each member's entries and sums them into one
// shared series.
func AccumulateFamily(members [][]Entry, m Month) DailySeries {
	total := NewDailySeries(m.Days)
	for _, entries := range members {
		total = total.Add(Accumulate(entries, m))
	}
	return total
}

// CumulativeSeries is a running sum of a DailySeries.
type CumulativeSeries struct {
	sums []decimal.Decimal
}

// Cumulate converts per-day totals into running sums in day order.
func Cumulate(d DailySeries) CumulativeSeries {
	sums := make([]decimal.Decimal, d.Days())
	running := decimal.Zero
	for i, v := range d.totals {
		running = running.Add(v)
		sums[i] = running
	}
	return CumulativeSeries{sums: sums}
}

// Days returns the number of days in the series.
func (c CumulativeSeries) Days() int { return len(c.sums) }

// At returns the running sum at a day, or zero when the day is absent.
func (c CumulativeSeries) At(day int) decimal.Decimal {
	if day < 1 || day > len(c.sums) {
		return decimal.Zero
	}
	return c.sums[day-1]
}

// Last returns the final running sum, the month total.
func (c CumulativeSeries) Last() decimal.Decimal {
	return c.At(len(c.sums))
}

// Values returns a copy of the running sums, day 1 first.
func (c CumulativeSeries) Values() []decimal.Decimal {
	return append([]decimal.Decimal(nil), c.sums...)
}
