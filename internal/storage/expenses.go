package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/core"
)

const expenseColumns = `id, user_id, date, description, amount_cents, category, subscription_id`

// CreateExpense inserts e and fills its ID.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	var subID sql.NullInt64
	if e.SubscriptionID != 0 {
		subID = sql.NullInt64{Int64: e.SubscriptionID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO expenses (user_id, date, description, amount_cents, category, subscription_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		e.UserID, formatDate(e.Date.Time), e.Description, e.Amount.Cents, e.Category, subID).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// ListExpenses returns the user's expenses dated within [from, to], oldest
// first. Only the calendar day of from and to is considered.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, from, to time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE user_id = ? AND date BETWEEN ? AND ?
		ORDER BY date, id`, userID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e     core.Expense
			date  string
			subID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &date, &e.Description, &e.Amount.Cents, &e.Category, &subID); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		t, err := parseDate(date)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		e.Date = core.Date{Time: t}
		e.SubscriptionID = subID.Int64
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExpense removes an expense owned by userID. Someone else's expense
// is reported as ErrNotFound.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

// CategorySums totals the user's expenses per category within [from, to],
// largest first.
func (r *SQLiteRepository) CategorySums(ctx context.Context, userID int64, from, to time.Time) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total
		FROM expenses
		WHERE user_id = ? AND date BETWEEN ? AND ?
		GROUP BY category
		ORDER BY total DESC, category`, userID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MemberExpenses is one member's expenses inside a family load.
type MemberExpenses struct {
	Member   core.Member
	Expenses []core.Expense
}

// LoadFamilyExpenses fetches every member's expenses within [from, to]
// concurrently. The result follows ListMembers order.
func (r *SQLiteRepository) LoadFamilyExpenses(ctx context.Context, familyID int64, from, to time.Time) ([]MemberExpenses, error) {
	members, err := r.ListMembers(ctx, familyID)
	if err != nil {
		return nil, err
	}

	out := make([]MemberExpenses, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, m := range members {
		i, m := i, m
		g.Go(func() error {
			expenses, err := r.ListExpenses(gctx, m.UserID, from, to)
			if err != nil {
				return fmt.Errorf("member %d: %w", m.UserID, err)
			}
			out[i] = MemberExpenses{Member: m, Expenses: expenses}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load family %d expenses: %w", familyID, err)
	}
	return out, nil
}
