package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bilancio/internal/core"
)

const subscriptionColumns = `id, user_id, start_date, end_date, every, description, amount_cents, category, last_execution_date`

// DueCandidate is a subscription together with the day it last produced an
// expense. LastExecution is zero when it never ran.
type DueCandidate struct {
	Subscription  core.Subscription
	LastExecution time.Time
}

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s *core.Subscription) error {
	var end sql.NullString
	if !s.EndDate.IsEmpty() {
		end = sql.NullString{String: formatDate(s.EndDate.Time), Valid: true}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (user_id, start_date, end_date, every, description, amount_cents, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		s.UserID, formatDate(s.StartDate.Time), end, string(s.Every), s.Description, s.Amount.Cents, s.Category).
		Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, userID int64) ([]core.Subscription, error) {
	candidates, err := r.querySubscriptions(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Subscription, len(candidates))
	for i, c := range candidates {
		out[i] = c.Subscription
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("delete subscription %d: %w", id, err)
	}
	return nil
}

// ListActiveSubscriptions returns subscriptions started on or before now
// whose end date, if any, is not in the past.
func (r *SQLiteRepository) ListActiveSubscriptions(ctx context.Context, now time.Time) ([]DueCandidate, error) {
	today := formatDate(now)
	return r.querySubscriptions(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id`, today, today)
}

// UpdateLastExecution stamps the day a subscription last produced an expense.
func (r *SQLiteRepository) UpdateLastExecution(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET last_execution_date = ? WHERE id = ?`, formatDate(at), id)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("update last execution %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) querySubscriptions(ctx context.Context, query string, args ...any) ([]DueCandidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []DueCandidate
	for rows.Next() {
		var (
			c           DueCandidate
			s           = &c.Subscription
			start, freq string
			end, last   sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.UserID, &start, &end, &freq, &s.Description, &s.Amount.Cents, &s.Category, &last); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.Every = core.Frequency(freq)

		t, err := parseDate(start)
		if err != nil {
			return nil, fmt.Errorf("subscription %d: %w", s.ID, err)
		}
		s.StartDate = core.Date{Time: t}
		if end.Valid {
			t, err := parseDate(end.String)
			if err != nil {
				return nil, fmt.Errorf("subscription %d: %w", s.ID, err)
			}
			s.EndDate = core.Date{Time: t}
		}
		if last.Valid {
			t, err := parseDate(last.String)
			if err != nil {
				return nil, fmt.Errorf("subscription %d: %w", s.ID, err)
			}
			c.LastExecution = t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
