package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/projection"
)

const dateLayout = "2006-01-02"

// Amounts travel as decimal strings with two places ("12.34"); requests also
// accept a comma separator.

type (
	userJSON struct {
		ID            int64   `json:"id"`
		Email         string  `json:"email"`
		Name          string  `json:"name"`
		MonthlyBudget *string `json:"monthly_budget"`
	}

	registerRequest struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	tokenJSON struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	// budgetRequest clears the budget when Amount is null.
	budgetRequest struct {
		Amount *string `json:"amount"`
	}

	expenseRequest struct {
		Date        string `json:"date"` // defaults to today
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
	}

	expenseJSON struct {
		ID             int64  `json:"id"`
		Date           string `json:"date"`
		Description    string `json:"description"`
		Amount         string `json:"amount"`
		Category       string `json:"category"`
		SubscriptionID int64  `json:"subscription_id,omitempty"`
	}

	expenseListJSON struct {
		Month      string               `json:"month"`
		Total      string               `json:"total"`
		ByCategory []categoryAmountJSON `json:"by_category"`
		Expenses   []expenseJSON        `json:"expenses"`
	}

	categoryAmountJSON struct {
		Category string `json:"category"`
		Amount   string `json:"amount"`
	}

	subscriptionRequest struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Every       string `json:"every"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
	}

	subscriptionJSON struct {
		ID          int64  `json:"id"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date,omitempty"`
		Every       string `json:"every"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
	}

	familyRequest struct {
		Name          string  `json:"name"`
		MonthlyBudget *string `json:"monthly_budget"`
	}

	familyJSON struct {
		ID            int64     `json:"id"`
		Name          string    `json:"name"`
		OwnerID       int64     `json:"owner_id"`
		MonthlyBudget *string   `json:"monthly_budget"`
		CreatedAt     time.Time `json:"created_at"`
	}

	familyDetailJSON struct {
		familyJSON
		Members []memberJSON `json:"members"`
	}

	memberRequest struct {
		Email string `json:"email"`
	}

	memberJSON struct {
		UserID   int64     `json:"user_id"`
		Email    string    `json:"email"`
		Name     string    `json:"name"`
		JoinedAt time.Time `json:"joined_at"`
	}

	thresholdRequest struct {
		Limit string `json:"limit"`
	}

	thresholdJSON struct {
		Category string `json:"category"`
		Limit    string `json:"limit"`
	}

	projectionJSON struct {
		Month           string   `json:"month"`
		IsCurrentMonth  bool     `json:"is_current_month"`
		ComparisonIndex int      `json:"comparison_index"`
		DaysInMonth     int      `json:"days_in_month"`
		CurrentToDate   string   `json:"current_to_date"`
		PreviousToDate  string   `json:"previous_to_date"`
		PreviousTotal   string   `json:"previous_total"`
		GrowthRate      string   `json:"growth_rate"`
		ProjectedTotal  string   `json:"projected_total"`
		Budget          *string  `json:"budget"`
		ExceedsBudget   bool     `json:"exceeds_budget"`
		Remaining       *string  `json:"remaining"`
		BudgetHit       *string  `json:"budget_hit"`
		Series          []string `json:"series"`
	}

	memberSpendJSON struct {
		UserID int64  `json:"user_id"`
		Name   string `json:"name"`
		Spent  string `json:"spent"`
	}

	familyProjectionJSON struct {
		Family     familyJSON        `json:"family"`
		Projection projectionJSON    `json:"projection"`
		Members    []memberSpendJSON `json:"members"`
	}

	categoryStatusJSON struct {
		Category string  `json:"category"`
		Spent    string  `json:"spent"`
		Limit    *string `json:"limit"`
		Breached bool    `json:"breached"`
	}

	breachJSON struct {
		Category string `json:"category"`
		Spent    string `json:"spent"`
		Limit    string `json:"limit"`
		Over     string `json:"over"`
	}

	thresholdStatusJSON struct {
		Month      string               `json:"month"`
		Total      string               `json:"total"`
		Categories []categoryStatusJSON `json:"categories"`
		Breaches   []breachJSON         `json:"breaches"`
	}
)

func amount(d decimal.Decimal) string { return d.StringFixed(2) }

func moneyJSON(m *core.Money) *string {
	if m == nil {
		return nil
	}
	s := amount(m.Decimal())
	return &s
}

func nullAmount(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := amount(d.Decimal)
	return &s
}

func parseMoney(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// parseBudget maps null to "no budget" and rejects non-positive amounts.
func parseBudget(s *string) (*core.Money, error) {
	if s == nil {
		return nil, nil
	}
	m, err := parseMoney(*s)
	if err != nil {
		return nil, core.ErrInvalidBudget
	}
	return &m, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return core.Date{Time: t}, nil
}

func formatDate(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(dateLayout)
}

func toUserJSON(u core.User) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, Name: u.Name, MonthlyBudget: moneyJSON(u.MonthlyBudget)}
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:             e.ID,
		Date:           formatDate(e.Date),
		Description:    e.Description,
		Amount:         amount(e.Amount.Decimal()),
		Category:       e.Category,
		SubscriptionID: e.SubscriptionID,
	}
}

func toSubscriptionJSON(s core.Subscription) subscriptionJSON {
	return subscriptionJSON{
		ID:          s.ID,
		StartDate:   formatDate(s.StartDate),
		EndDate:     formatDate(s.EndDate),
		Every:       string(s.Every),
		Description: s.Description,
		Amount:      amount(s.Amount.Decimal()),
		Category:    s.Category,
	}
}

func toFamilyJSON(f core.Family) familyJSON {
	return familyJSON{
		ID:            f.ID,
		Name:          f.Name,
		OwnerID:       f.OwnerID,
		MonthlyBudget: moneyJSON(f.MonthlyBudget),
		CreatedAt:     f.CreatedAt,
	}
}

func toMemberJSON(m core.Member) memberJSON {
	return memberJSON{UserID: m.UserID, Email: m.Email, Name: m.Name, JoinedAt: m.JoinedAt}
}

func toProjectionJSON(r projection.Result) projectionJSON {
	out := projectionJSON{
		Month:           r.Month.Key(),
		IsCurrentMonth:  r.IsCurrentMonth(),
		ComparisonIndex: r.ComparisonIndex(),
		DaysInMonth:     r.DaysInMonth(),
		CurrentToDate:   amount(r.CurrentToDate),
		PreviousToDate:  amount(r.PreviousToDate),
		PreviousTotal:   amount(r.PreviousTotal),
		GrowthRate:      r.GrowthRate.StringFixed(4),
		ProjectedTotal:  amount(r.ProjectedTotal),
		Budget:          nullAmount(r.Budget),
		ExceedsBudget:   r.ExceedsBudget(),
	}
	if r.Budget.Valid {
		rem := amount(r.Remaining())
		out.Remaining = &rem
	}
	if r.BudgetHit != nil {
		hit := r.BudgetHit.Format(dateLayout)
		out.BudgetHit = &hit
	}
	values := r.Series.Values()
	out.Series = make([]string, len(values))
	for i, v := range values {
		out.Series[i] = amount(v)
	}
	return out
}

func toFamilyProjectionJSON(rep budget.FamilyReport) familyProjectionJSON {
	out := familyProjectionJSON{
		Family:     toFamilyJSON(rep.Family),
		Projection: toProjectionJSON(rep.Result),
		Members:    make([]memberSpendJSON, len(rep.Members)),
	}
	for i, m := range rep.Members {
		out.Members[i] = memberSpendJSON{UserID: m.Member.UserID, Name: m.Member.Name, Spent: amount(m.Spent)}
	}
	return out
}

func toThresholdStatusJSON(rep budget.ThresholdReport) thresholdStatusJSON {
	out := thresholdStatusJSON{
		Month:      rep.Month.Key(),
		Total:      amount(rep.Overview.Total.Decimal()),
		Categories: make([]categoryStatusJSON, len(rep.Categories)),
		Breaches:   make([]breachJSON, len(rep.Breaches)),
	}
	for i, c := range rep.Categories {
		out.Categories[i] = categoryStatusJSON{
			Category: c.Category,
			Spent:    amount(c.Spent),
			Limit:    nullAmount(c.Limit),
			Breached: c.Breached,
		}
	}
	for i, b := range rep.Breaches {
		out.Breaches[i] = breachJSON{
			Category: b.Category,
			Spent:    amount(b.Spent),
			Limit:    amount(b.Limit),
			Over:     amount(b.Over()),
		}
	}
	return out
}
