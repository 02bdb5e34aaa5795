package http

import (
	"net/http"
	"strings"
	"time"

	"bilancio/internal/chart"
	"bilancio/internal/core"
	"bilancio/internal/projection"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	m, err := projection.ResolveMonth(monthParam(r), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.store.ListExpenses(r.Context(), currentUser(r), m.Start, m.End)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ov := core.NewMonthOverview(m.Year(), m.MonthNumber(), expenses)
	out := expenseListJSON{
		Month:      m.Key(),
		Total:      amount(ov.Total.Decimal()),
		ByCategory: make([]categoryAmountJSON, len(ov.ByCategory)),
		Expenses:   make([]expenseJSON, len(expenses)),
	}
	for i, c := range ov.ByCategory {
		out.ByCategory[i] = categoryAmountJSON{Category: c.Name, Amount: amount(c.Amount.Decimal())}
	}
	for i, e := range expenses {
		out.Expenses[i] = toExpenseJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date := core.Date{Time: today(s.now())}
	if strings.TrimSpace(req.Date) != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = d
	}
	amt, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.expenses.CreateExpense(r.Context(), core.Expense{
		UserID:      currentUser(r),
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		Amount:      amt,
		Category:    strings.TrimSpace(req.Category),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseJSON(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.DeleteExpense(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubscriptions(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]subscriptionJSON, len(subs))
	for i, sub := range subs {
		out[i] = toSubscriptionJSON(sub)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var end core.Date
	if strings.TrimSpace(req.EndDate) != "" {
		if end, err = parseDate(req.EndDate); err != nil {
			writeError(w, r, err)
			return
		}
	}
	amt, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := s.expenses.CreateSubscription(r.Context(), core.Subscription{
		UserID:      currentUser(r),
		StartDate:   start,
		EndDate:     end,
		Every:       core.Frequency(strings.ToLower(strings.TrimSpace(req.Every))),
		Description: strings.TrimSpace(req.Description),
		Amount:      amt,
		Category:    strings.TrimSpace(req.Category),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionJSON(sub))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.DeleteSubscription(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMyProjection(w http.ResponseWriter, r *http.Request) {
	res, err := s.budget.UserProjection(r.Context(), currentUser(r), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectionJSON(res))
}

func (s *Server) handleMyProjectionChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.budget.UserProjection(r.Context(), currentUser(r), monthParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSVG(w, chart.ProjectionSVG(res))
}

func writeSVG(w http.ResponseWriter, svg string) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
