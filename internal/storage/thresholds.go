package storage

import (
	"context"
	"fmt"

	"bilancio/internal/core"
)

// SetThreshold creates or replaces the limit of a family category.
func (r *SQLiteRepository) SetThreshold(ctx context.Context, t core.CategoryThreshold) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_thresholds (family_id, category, limit_cents)
		VALUES (?, ?, ?)
		ON CONFLICT (family_id, category) DO UPDATE SET limit_cents = excluded.limit_cents`,
		t.FamilyID, t.Category, t.Limit.Cents)
	if err != nil {
		return fmt.Errorf("set threshold %s: %w", t.Category, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteThreshold(ctx context.Context, familyID int64, category string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM category_thresholds WHERE family_id = ? AND category = ?`, familyID, category)
	if err := expectOneRow(res, err); err != nil {
		return fmt.Errorf("delete threshold %s: %w", category, err)
	}
	return nil
}

func (r *SQLiteRepository) ListThresholds(ctx context.Context, familyID int64) ([]core.CategoryThreshold, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT family_id, category, limit_cents
		FROM category_thresholds
		WHERE family_id = ?
		ORDER BY category`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryThreshold
	for rows.Next() {
		var t core.CategoryThreshold
		if err := rows.Scan(&t.FamilyID, &t.Category, &t.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
