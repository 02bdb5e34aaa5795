// Package sheets exports budget reports to a spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"
)

// ReportRow is one line of the yearly report: a budget alert or a month
// snapshot exported on demand. Amounts are in cents.
type ReportRow struct {
	Timestamp      time.Time
	Period         string // "YYYY-MM"
	Family         string
	Kind           string
	Category       string
	ProjectedCents int64
	LimitCents     int64 // budget or category threshold
	BudgetHit      *time.Time
}

// Values renders the row in column order.
func (r ReportRow) Values() []any {
	hit := ""
	if r.BudgetHit != nil {
		hit = r.BudgetHit.Format("2006-01-02")
	}
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Period,
		r.Family,
		r.Kind,
		r.Category,
		centsToEuros(r.ProjectedCents),
		centsToEuros(r.LimitCents),
		hit,
	}
}

// Header names the columns of Values.
var Header = []any{"Timestamp", "Period", "Family", "Kind", "Category", "Amount", "Limit", "Budget hit"}

type ReportWriter interface {
	AppendReport(ctx context.Context, row ReportRow) error
}

// centsToEuros keeps two decimals with a dot so USER_ENTERED parses a number.
func centsToEuros(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
