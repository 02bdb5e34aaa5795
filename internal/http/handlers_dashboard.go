package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/chart"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/projection"
)

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return core.MoneyFromDecimal(d).String() },
	"cents": func(m core.Money) string { return m.String() },
	"budget": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return "no budget"
		}
		return core.MoneyFromDecimal(d.Decimal).String()
	},
	"ratio": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"day": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2 Jan")
	},
}

type familyCard struct {
	Family   core.Family
	Result   projection.Result
	Breaches []projection.ThresholdBreach
	Month    string
}

type dashboardPage struct {
	User       core.User
	Month      string
	PrevMonth  string
	NextMonth  string
	Projection projection.Result
	Chart      template.HTML
	Overview   core.MonthOverview
	Families   []familyCard
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := currentUser(r)

	res, err := s.budget.UserProjection(ctx, uid, monthParam(r))
	if errors.Is(err, projection.ErrInvalidMonthKey) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	m := res.Month
	expenses, err := s.store.ListExpenses(ctx, uid, m.Start, m.End)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	page := dashboardPage{
		User:       u,
		Month:      m.Key(),
		PrevMonth:  m.Previous().Key(),
		NextMonth:  m.End.AddDate(0, 0, 1).Format(projection.KeyLayout),
		Projection: res,
		Chart:      template.HTML(chart.ProjectionSVG(res)),
		Overview:   core.NewMonthOverview(m.Year(), m.MonthNumber(), expenses),
	}

	families, err := s.store.ListFamiliesForUser(ctx, uid)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	for _, f := range families {
		rep, err := s.budget.FamilyProjection(ctx, f.ID, m.Key())
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		status, err := s.budget.ThresholdStatus(ctx, f.ID, m.Key())
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		page.Families = append(page.Families, familyCard{
			Family:   f,
			Result:   rep.Result,
			Breaches: status.Breaches,
			Month:    m.Key(),
		})
	}

	s.render(w, r, http.StatusOK, "dashboard.html", page)
}

// render buffers the template so a failing execute never leaves a half
// written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard failed", log.FieldError, err)
	}
	http.Error(w, http.StatusText(status), status)
}
