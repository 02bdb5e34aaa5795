package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

const familyColumns = `f.id, f.name, f.owner_id, f.monthly_budget_cents, f.created_at`

// CreateFamily inserts f and enrolls its owner as the first member.
func (r *SQLiteRepository) CreateFamily(ctx context.Context, f *core.Family) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create family: %w", err)
	}
	defer tx.Rollback()

	var createdAt string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO families (name, owner_id, monthly_budget_cents)
		VALUES (?, ?, ?)
		RETURNING id, created_at`,
		f.Name, f.OwnerID, nullableCents(f.MonthlyBudget)).Scan(&f.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("create family: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO family_members (family_id, user_id) VALUES (?, ?)`, f.ID, f.OwnerID); err != nil {
		return fmt.Errorf("add family owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create family: %w", err)
	}
	f.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) GetFamily(ctx context.Context, id int64) (core.Family, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+familyColumns+` FROM families f WHERE f.id = ?`, id)
	var (
		f         core.Family
		budget    sql.NullInt64
		createdAt string
	)
	err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &budget, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Family{}, fmt.Errorf("get family %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Family{}, fmt.Errorf("get family %d: %w", id, err)
	}
	f.MonthlyBudget = moneyPtr(budget)
	f.CreatedAt = parseTimestamp(createdAt)
	return f, nil
}

// ListFamiliesForUser returns the families the user belongs to.
func (r *SQLiteRepository) ListFamiliesForUser(ctx context.Context, userID int64) ([]core.Family, error) {
	return r.queryFamilies(ctx, `
		SELECT `+familyColumns+`
		FROM families f
		JOIN family_members m ON m.family_id = f.id
		WHERE m.user_id = ?
		ORDER BY f.id`, userID)
}

// ListFamilies returns every family, used by the scheduled checks.
func (r *SQLiteRepository) ListFamilies(ctx context.Context) ([]core.Family, error) {
	return r.queryFamilies(ctx, `SELECT `+familyColumns+` FROM families f ORDER BY f.id`)
}

func (r *SQLiteRepository) queryFamilies(ctx context.Context, query string, args ...any) ([]core.Family, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []core.Family
	for rows.Next() {
		var (
			f         core.Family
			budget    sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.OwnerID, &budget, &createdAt); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		f.MonthlyBudget = moneyPtr(budget)
		f.CreatedAt = parseTimestamp(createdAt)
		families = append(families, f)
	}
	return families, rows.Err()
}

// SetFamilyBudget sets or clears (nil) the shared monthly budget.
func (r *SQLiteRepository) SetFamilyBudget(ctx context.Context, familyID int64, budget *core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE families SET monthly_budget_cents = ? WHERE id = ?`, nullableCents(budget), familyID)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("set family budget %d: %w", familyID, err)
	}
	return nil
}

// AddMember enrolls a user. Enrolling twice returns ErrConflict.
func (r *SQLiteRepository) AddMember(ctx context.Context, familyID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO family_members (family_id, user_id) VALUES (?, ?)`, familyID, userID)
	if isUniqueViolation(err) {
		return fmt.Errorf("add member %d to family %d: %w", userID, familyID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("add member %d to family %d: %w", userID, familyID, err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveMember(ctx context.Context, familyID, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM family_members WHERE family_id = ? AND user_id = ?`, familyID, userID)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("remove member %d from family %d: %w", userID, familyID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, familyID int64) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.name, m.joined_at
		FROM family_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.family_id = ?
		ORDER BY u.id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members of family %d: %w", familyID, err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var (
			m        core.Member
			joinedAt string
		)
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.JoinedAt = parseTimestamp(joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) IsMember(ctx context.Context, familyID, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM family_members WHERE family_id = ? AND user_id = ?`, familyID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}
