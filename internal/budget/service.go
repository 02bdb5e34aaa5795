// Package budget loads stored expenses, runs the projection calculator over
// them and decides which budget events families should hear about.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/projection"
	"bilancio/internal/storage"
)

// Store is the read side of the repository the service needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetFamily(ctx context.Context, id int64) (core.Family, error)
	ListExpenses(ctx context.Context, userID int64, from, to time.Time) ([]core.Expense, error)
	LoadFamilyExpenses(ctx context.Context, familyID int64, from, to time.Time) ([]storage.MemberExpenses, error)
	ListThresholds(ctx context.Context, familyID int64) ([]core.CategoryThreshold, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// MemberTotal is one member's spend to date in the projected month.
type MemberTotal struct {
	Member core.Member
	Spent  decimal.Decimal
}

type FamilyReport struct {
	Family  core.Family
	Result  projection.Result
	Members []MemberTotal
}

// CategoryStatus is one category of a family month. Limit is invalid when the
// category has no threshold.
type CategoryStatus struct {
	Category string
	Spent    decimal.Decimal
	Limit    decimal.NullDecimal
	Breached bool
}

type ThresholdReport struct {
	Family     core.Family
	Month      projection.Month
	Overview   core.MonthOverview
	Categories []CategoryStatus
	Breaches   []projection.ThresholdBreach
}

// UserProjection projects a user's own spending for monthKey ("" means the
// current month) against the personal budget.
func (s *Service) UserProjection(ctx context.Context, userID int64, monthKey string) (projection.Result, error) {
	m, err := projection.ResolveMonth(monthKey, s.now())
	if err != nil {
		return projection.Result{}, err
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return projection.Result{}, err
	}
	expenses, err := s.store.ListExpenses(ctx, userID, m.Previous().Start, m.End)
	if err != nil {
		return projection.Result{}, fmt.Errorf("load expenses: %w", err)
	}
	return projection.CalculateEntries(m, toEntries(expenses, m.Start.Location()), budgetOf(u.MonthlyBudget)), nil
}

// FamilyProjection projects the combined spending of every member.
func (s *Service) FamilyProjection(ctx context.Context, familyID int64, monthKey string) (FamilyReport, error) {
	m, err := projection.ResolveMonth(monthKey, s.now())
	if err != nil {
		return FamilyReport{}, err
	}
	return s.familyProjection(ctx, familyID, m)
}

func (s *Service) familyProjection(ctx context.Context, familyID int64, m projection.Month) (FamilyReport, error) {
	f, err := s.store.GetFamily(ctx, familyID)
	if err != nil {
		return FamilyReport{}, err
	}
	loaded, err := s.store.LoadFamilyExpenses(ctx, familyID, m.Previous().Start, m.End)
	if err != nil {
		return FamilyReport{}, err
	}

	loc := m.Start.Location()
	members := make([][]projection.Entry, len(loaded))
	report := FamilyReport{Family: f, Members: make([]MemberTotal, len(loaded))}
	for i, me := range loaded {
		members[i] = toEntries(me.Expenses, loc)
		series := projection.Cumulate(projection.Accumulate(members[i], m))
		report.Members[i] = MemberTotal{Member: me.Member, Spent: series.At(m.ComparisonIndex)}
	}
	report.Result = projection.CalculateFamily(m, members, budgetOf(f.MonthlyBudget))
	return report, nil
}

// ThresholdStatus compares the family's per-category spend in the month
// with the configured category limits.
func (s *Service) ThresholdStatus(ctx context.Context, familyID int64, monthKey string) (ThresholdReport, error) {
	m, err := projection.ResolveMonth(monthKey, s.now())
	if err != nil {
		return ThresholdReport{}, err
	}
	return s.thresholdStatus(ctx, familyID, m)
}

func (s *Service) thresholdStatus(ctx context.Context, familyID int64, m projection.Month) (ThresholdReport, error) {
	f, err := s.store.GetFamily(ctx, familyID)
	if err != nil {
		return ThresholdReport{}, err
	}
	loaded, err := s.store.LoadFamilyExpenses(ctx, familyID, m.Start, m.End)
	if err != nil {
		return ThresholdReport{}, err
	}
	thresholds, err := s.store.ListThresholds(ctx, familyID)
	if err != nil {
		return ThresholdReport{}, err
	}

	var all []core.Expense
	perMember := make([]map[string]decimal.Decimal, len(loaded))
	for i, me := range loaded {
		all = append(all, me.Expenses...)
		perMember[i] = categorySums(me.Expenses)
	}
	sums := projection.SumByCategory(perMember...)

	limits := make(map[string]decimal.Decimal, len(thresholds))
	for _, t := range thresholds {
		limits[t.Category] = t.Limit.Decimal()
	}

	report := ThresholdReport{
		Family:   f,
		Month:    m,
		Overview: core.NewMonthOverview(m.Year(), m.MonthNumber(), all),
		Breaches: projection.CheckThresholds(sums, limits),
	}
	breached := make(map[string]bool, len(report.Breaches))
	for _, b := range report.Breaches {
		breached[b.Category] = true
	}

	seen := make(map[string]bool)
	for _, c := range report.Overview.ByCategory {
		seen[c.Name] = true
		st := CategoryStatus{Category: c.Name, Spent: c.Amount.Decimal(), Breached: breached[c.Name]}
		if l, ok := limits[c.Name]; ok {
			st.Limit = decimal.NewNullDecimal(l)
		}
		report.Categories = append(report.Categories, st)
	}
	for _, t := range thresholds {
		if !seen[t.Category] {
			report.Categories = append(report.Categories, CategoryStatus{
				Category: t.Category,
				Spent:    decimal.Zero,
				Limit:    decimal.NewNullDecimal(t.Limit.Decimal()),
			})
		}
	}
	return report, nil
}

// toEntries pins each expense date to midnight in loc so day bucketing does
// not shift across time zones.
func toEntries(expenses []core.Expense, loc *time.Location) []projection.Entry {
	out := make([]projection.Entry, len(expenses))
	for i, e := range expenses {
		out[i] = projection.Entry{
			At:     time.Date(e.Date.Year(), time.Month(e.Date.Month()), e.Date.Day(), 0, 0, 0, 0, loc),
			Amount: e.Amount.Decimal(),
		}
	}
	return out
}

func categorySums(expenses []core.Expense) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		out[e.Category] = out[e.Category].Add(e.Amount.Decimal())
	}
	return out
}

func budgetOf(m *core.Money) decimal.NullDecimal {
	if m == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(m.Decimal())
}
