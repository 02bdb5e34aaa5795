package projection

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateBudgetHit_AlreadyBreached(t *testing.T) {
	// 31-day month with 28 days of data: 10, 0, 20, then 25 a day.
	m, err := ResolveMonth("", time.Date(2025, 3, 28, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 31, m.Days)

	totals := map[int]string{1: "10", 2: "0", 3: "20"}
	for day := 4; day <= 28; day++ {
		totals[day] = "25"
	}
	series := Cumulate(seriesWith(31, totals))
	require.True(t, series.At(21).LessThan(d("500")))
	require.True(t, series.At(22).GreaterThanOrEqual(d("500")))

	hit := EstimateBudgetHit(series, m, series.At(28), decimal.NewNullDecimal(d("500")))
	require.NotNil(t, hit)
	assert.Equal(t, time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC), *hit)
}

func TestEstimateBudgetHit_Forecast(t *testing.T) {
	m, err := ResolveMonth("", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	series := Cumulate(seriesWith(30, map[int]string{5: "100"}))

	tests := []struct {
		name      string
		projected string
		budget    decimal.NullDecimal
		want      *time.Time
	}{
		{
			name:      "forecast inside the month",
			projected: "300",
			budget:    decimal.NewNullDecimal(d("200")),
			want:      ptr(time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:      "forecast past month end",
			projected: "300",
			budget:    decimal.NewNullDecimal(d("400")),
			want:      nil,
		},
		{
			name:      "fractional day rounds up",
			projected: "130",
			budget:    decimal.NewNullDecimal(d("105")),
			want:      ptr(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:      "flat pace never hits",
			projected: "100",
			budget:    decimal.NewNullDecimal(d("150")),
			want:      nil,
		},
		{
			name:      "no budget",
			projected: "300",
			budget:    decimal.NullDecimal{},
			want:      nil,
		},
		{
			name:      "zero budget",
			projected: "300",
			budget:    decimal.NewNullDecimal(decimal.Zero),
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateBudgetHit(series, m, d(tt.projected), tt.budget)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestEstimateBudgetHit_InexactPace(t *testing.T) {
	// Day 2 of June with 1 spent: 8 more over 28 days is a pace of 2/7 a day.
	m, err := ResolveMonth("", time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2, m.ComparisonIndex)
	series := Cumulate(seriesWith(30, map[int]string{1: "1"}))

	tests := []struct {
		name      string
		projected string
		budget    string
		want      time.Time
	}{
		{
			name:      "whole number of days",
			projected: "9",
			budget:    "3",
			want:      time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "budget equal to projection lands on the last day",
			projected: "9",
			budget:    "9",
			want:      time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "partial day rounds up once",
			projected: "9",
			budget:    "3.01",
			want:      time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "cent amounts",
			projected: "10.00",
			budget:    "4.00",
			want:      time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateBudgetHit(series, m, d(tt.projected), decimal.NewNullDecimal(d(tt.budget)))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestEstimateBudgetHit_PastMonthWithoutBreach(t *testing.T) {
	m, err := ResolveMonth("2025-01", time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	series := Cumulate(seriesWith(31, map[int]string{3: "100"}))

	assert.Nil(t, EstimateBudgetHit(series, m, d("100"), decimal.NewNullDecimal(d("150"))))
}

func ptr(t time.Time) *time.Time { return &t }
