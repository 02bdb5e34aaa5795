package storage

import (
	"context"
	"fmt"

	"bilancio/internal/core"
)

// AlertKey identifies one alert per family, kind, month and category.
// Category is empty for budget warnings.
type AlertKey struct {
	FamilyID int64
	Kind     core.AlertKind
	Period   string // "YYYY-MM"
	Category string
}

// RecordAlert logs an alert and reports whether it is new. A key that was
// already recorded returns false without error.
func (r *SQLiteRepository) RecordAlert(ctx context.Context, k AlertKey) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_log (family_id, kind, period, category)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (family_id, kind, period, category) DO NOTHING`,
		k.FamilyID, string(k.Kind), k.Period, k.Category)
	if err != nil {
		return false, fmt.Errorf("record alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record alert rows affected: %w", err)
	}
	return n == 1, nil
}

// ReleaseAlert forgets a recorded alert so the next check can retry it.
func (r *SQLiteRepository) ReleaseAlert(ctx context.Context, k AlertKey) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM alert_log
		WHERE family_id = ? AND kind = ? AND period = ? AND category = ?`,
		k.FamilyID, string(k.Kind), k.Period, k.Category)
	if err != nil {
		return fmt.Errorf("release alert: %w", err)
	}
	return nil
}
