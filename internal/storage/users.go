package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

const userColumns = `id, email, name, password_hash, monthly_budget_cents, created_at`

// CreateUser inserts u and fills its ID and CreatedAt. A duplicate email
// returns ErrConflict.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, monthly_budget_cents)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at`
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, u.Email, u.Name, u.PasswordHash, nullableCents(u.MonthlyBudget)).
		Scan(&u.ID, &createdAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create user %s: %w", u.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// SetUserBudget sets or clears (nil) the personal monthly budget.
func (r *SQLiteRepository) SetUserBudget(ctx context.Context, userID int64, budget *core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET monthly_budget_cents = ? WHERE id = ?`, nullableCents(budget), userID)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("set user budget %d: %w", userID, err)
	}
	return nil
}

func scanUser(row *sql.Row) (core.User, error) {
	var (
		u         core.User
		budget    sql.NullInt64
		createdAt string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &budget, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, err
	}
	u.MonthlyBudget = moneyPtr(budget)
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}
