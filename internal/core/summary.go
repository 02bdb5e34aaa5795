package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}

// NewMonthOverview sums the expenses into a per-category overview, keeping
// categories in first-seen order.
func NewMonthOverview(year, month int, expenses []Expense) MonthOverview {
	ov := MonthOverview{Year: year, Month: month}
	index := make(map[string]int)
	for _, e := range expenses {
		ov.Total.Cents += e.Amount.Cents
		i, ok := index[e.Category]
		if !ok {
			i = len(ov.ByCategory)
			index[e.Category] = i
			ov.ByCategory = append(ov.ByCategory, CategoryAmount{Name: e.Category})
		}
		ov.ByCategory[i].Amount.Cents += e.Amount.Cents
	}
	return ov
}
