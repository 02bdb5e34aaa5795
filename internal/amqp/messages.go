package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// NotificationMessage asks the worker to tell a family's members about a
// budget event. Amounts are in cents.
type NotificationMessage struct {
	Kind       core.AlertKind `json:"kind"`
	FamilyID   int64          `json:"family_id"`
	FamilyName string         `json:"family_name"`
	Period     string         `json:"period"` // "YYYY-MM"

	// budget_warning
	Exceeds        bool       `json:"exceeds,omitempty"`
	ProjectedCents int64      `json:"projected_cents,omitempty"`
	BudgetCents    int64      `json:"budget_cents,omitempty"`
	BudgetHit      *time.Time `json:"budget_hit,omitempty"`

	// threshold_breach
	Category   string `json:"category,omitempty"`
	SpentCents int64  `json:"spent_cents,omitempty"`
	LimitCents int64  `json:"limit_cents,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Key is the idempotency key of the event: one message per family, kind,
// month and category.
func (m *NotificationMessage) Key() string {
	return fmt.Sprintf("%d/%s/%s/%s", m.FamilyID, m.Kind, m.Period, m.Category)
}

func (m *NotificationMessage) Validate() error {
	if m.FamilyID <= 0 {
		return errors.New("missing family id")
	}
	if _, err := time.Parse("2006-01", m.Period); err != nil {
		return fmt.Errorf("invalid period %q", m.Period)
	}
	switch m.Kind {
	case core.AlertBudgetWarning:
		if m.BudgetCents <= 0 {
			return errors.New("budget warning without budget")
		}
	case core.AlertThresholdBreach:
		if m.Category == "" || m.LimitCents <= 0 {
			return errors.New("threshold breach without category limit")
		}
	default:
		return fmt.Errorf("unknown notification kind %q", m.Kind)
	}
	return nil
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
