// Package chart renders projection and category charts as standalone SVG.
package chart

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"bilancio/internal/projection"
)

const (
	width   = 640
	height  = 320
	padLeft = 56
	padTop  = 16
	padBot  = 32
	padRgt  = 16
)

// ProjectionSVG draws the cumulative spend to the comparison day, a dashed
// segment to the projected month-end total, the budget line and the day
// the budget is hit.
func ProjectionSVG(r projection.Result) string {
	days := r.DaysInMonth()
	top := r.ProjectedTotal
	if r.Budget.Valid && r.Budget.Decimal.GreaterThan(top) {
		top = r.Budget.Decimal
	}
	if !top.IsPositive() {
		top = decimal.NewFromInt(1)
	}
	// Headroom above the highest value.
	top = top.Mul(decimal.NewFromFloat(1.1))

	plotW := float64(width - padLeft - padRgt)
	plotH := float64(height - padTop - padBot)
	x := func(day int) float64 {
		if days <= 1 {
			return padLeft
		}
		return padLeft + plotW*float64(day-1)/float64(days-1)
	}
	y := func(v decimal.Decimal) float64 {
		f, _ := v.Div(top).Float64()
		return padTop + plotH*(1-f)
	}

	var b strings.Builder
	open(&b, "Spending projection for "+r.Month.Key())
	axes(&b, top)

	ci := r.ComparisonIndex()
	if ci > 0 {
		pts := make([]string, 0, ci)
		for day := 1; day <= ci; day++ {
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", x(day), y(r.Series.At(day))))
		}
		fmt.Fprintf(&b, `<polyline class="spent" fill="none" stroke="#2563eb" stroke-width="2" points="%s"/>`, strings.Join(pts, " "))
	}
	if ci < days {
		fmt.Fprintf(&b, `<line class="projected" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#2563eb" stroke-width="2" stroke-dasharray="6 4"/>`,
			x(max(ci, 1)), y(r.CurrentToDate), x(days), y(r.ProjectedTotal))
	}
	if r.Budget.Valid && r.Budget.Decimal.IsPositive() {
		by := y(r.Budget.Decimal)
		fmt.Fprintf(&b, `<line class="budget" x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#dc2626" stroke-width="1"/>`,
			padLeft, by, width-padRgt, by)
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" font-size="11" fill="#dc2626" text-anchor="end">budget %s</text>`,
			width-padRgt, by-4, r.Budget.Decimal.StringFixed(2))
	}
	if r.BudgetHit != nil {
		hx := x(r.BudgetHit.Day())
		fmt.Fprintf(&b, `<circle class="hit" cx="%.1f" cy="%.1f" r="4" fill="#dc2626"><title>%s</title></circle>`,
			hx, y(r.Budget.Decimal), r.BudgetHit.Format("2006-01-02"))
	}
	for _, day := range []int{1, (days + 1) / 2, days} {
		fmt.Fprintf(&b, `<text x="%.1f" y="%d" font-size="11" text-anchor="middle">%d</text>`, x(day), height-padBot+16, day)
	}
	b.WriteString("</svg>")
	return b.String()
}

// Bar is one category of CategoriesSVG. Limit is drawn as a tick when valid.
type Bar struct {
	Label string
	Value decimal.Decimal
	Limit decimal.NullDecimal
}

// CategoriesSVG draws one horizontal bar per category, red when it reached
// its limit.
func CategoriesSVG(title string, bars []Bar) string {
	const rowH = 28
	labelW := 120
	h := padTop + padBot + rowH*max(len(bars), 1)

	top := decimal.Zero
	for _, bar := range bars {
		top = decimal.Max(top, bar.Value)
		if bar.Limit.Valid {
			top = decimal.Max(top, bar.Limit.Decimal)
		}
	}
	if !top.IsPositive() {
		top = decimal.NewFromInt(1)
	}
	plotW := float64(width - labelW - padRgt - 64)
	w := func(v decimal.Decimal) float64 {
		f, _ := v.Div(top).Float64()
		return plotW * f
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`, width, h, width, h)
	fmt.Fprintf(&b, `<title>%s</title>`, html.EscapeString(title))
	for i, bar := range bars {
		ry := padTop + i*rowH
		color := "#2563eb"
		if bar.Limit.Valid && bar.Limit.Decimal.IsPositive() && bar.Value.GreaterThanOrEqual(bar.Limit.Decimal) {
			color = "#dc2626"
		}
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="12" text-anchor="end">%s</text>`, labelW-8, ry+16, html.EscapeString(bar.Label))
		fmt.Fprintf(&b, `<rect class="bar" x="%d" y="%d" width="%.1f" height="%d" fill="%s"/>`, labelW, ry+4, w(bar.Value), rowH-10, color)
		fmt.Fprintf(&b, `<text x="%.1f" y="%d" font-size="11">%s</text>`, float64(labelW)+w(bar.Value)+6, ry+16, bar.Value.StringFixed(2))
		if bar.Limit.Valid {
			lx := float64(labelW) + w(bar.Limit.Decimal)
			fmt.Fprintf(&b, `<line class="limit" x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="#111827" stroke-width="2"/>`, lx, ry+1, lx, ry+rowH-3)
		}
	}
	b.WriteString("</svg>")
	return b.String()
}

func open(b *strings.Builder, title string) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`, width, height, width, height)
	fmt.Fprintf(b, `<title>%s</title>`, html.EscapeString(title))
}

func axes(b *strings.Builder, top decimal.Decimal) {
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#9ca3af"/>`, padLeft, height-padBot, width-padRgt, height-padBot)
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#9ca3af"/>`, padLeft, padTop, padLeft, height-padBot)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" text-anchor="end">%s</text>`, padLeft-4, padTop+10, top.Round(0).String())
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" text-anchor="end">0</text>`, padLeft-4, height-padBot)
}
