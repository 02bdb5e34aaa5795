// Package projection estimates month-end spending from daily expense totals.
//
// The pipeline is pure and request scoped: resolve the month, bucket the
// current and previous month's entries per day, turn them into running sums,
// project the month-end total and estimate when a budget is (or will be) hit.
// Callers supply fully materialized entries; nothing here performs I/O.
package projection

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the year-month key format accepted by ResolveMonth.
const KeyLayout = "2006-01"

// ErrInvalidMonthKey is returned for keys that are not "YYYY-MM".
var ErrInvalidMonthKey = errors.New("invalid month key")

// Month describes the boundaries of one calendar month relative to "now".
type Month struct {
	Start           time.Time // first day, 00:00:00
	End             time.Time // last day, 23:59:59
	Days            int
	IsCurrent       bool
	ComparisonIndex int // today's day-of-month when current, Days otherwise
}

// ResolveMonth resolves a "YYYY-MM" key in now's location. An empty key
// selects the month containing now.
func ResolveMonth(key string, now time.Time) (Month, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return newMonth(now.Year(), now.Month(), now), nil
	}
	t, err := time.ParseInLocation(KeyLayout, key, now.Location())
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return newMonth(t.Year(), t.Month(), now), nil
}

// ResolveMonthOrCurrent is ResolveMonth with a silent fallback to the current
// month for malformed keys.
func ResolveMonthOrCurrent(key string, now time.Time) Month {
	m, err := ResolveMonth(key, now)
	if err != nil {
		return newMonth(now.Year(), now.Month(), now)
	}
	return m
}

func newMonth(year int, month time.Month, now time.Time) Month {
	loc := now.Location()
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := start.AddDate(0, 1, -1)
	m := Month{
		Start: start,
		End:   time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, loc),
		Days:  last.Day(),
	}
	m.IsCurrent = now.Year() == year && now.Month() == month
	if m.IsCurrent {
		m.ComparisonIndex = now.Day()
	} else {
		m.ComparisonIndex = m.Days
	}
	return m
}

// Previous returns the calendar month before m. It is never the current month.
func (m Month) Previous() Month {
	p := m.Start.AddDate(0, -1, 0)
	// Any instant outside p works as "now" to get a non-current month.
	return newMonth(p.Year(), p.Month(), m.Start.AddDate(1, 0, 0))
}

// Key returns the "YYYY-MM" key of the month.
func (m Month) Key() string {
	return m.Start.Format(KeyLayout)
}

// Year returns the calendar year of the month.
func (m Month) Year() int { return m.Start.Year() }

// MonthNumber returns the month as 1-12.
func (m Month) MonthNumber() int { return int(m.Start.Month()) }

// Contains reports whether t falls inside [Start, End].
func (m Month) Contains(t time.Time) bool {
	return !t.Before(m.Start) && !t.After(m.End)
}

// DayDate returns midnight of the given day-of-month.
func (m Month) DayDate(day int) time.Time {
	return m.Start.AddDate(0, 0, day-1)
}
