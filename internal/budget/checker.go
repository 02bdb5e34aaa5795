package budget

import (
	"context"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/projection"
	"bilancio/internal/storage"
)

// AlertLog records which alerts were already sent.
type AlertLog interface {
	ListFamilies(ctx context.Context) ([]core.Family, error)
	RecordAlert(ctx context.Context, k storage.AlertKey) (bool, error)
	ReleaseAlert(ctx context.Context, k storage.AlertKey) error
}

type Publisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// Checker is the scheduled side of budgeting: it finds families over budget
// or over a category threshold and enqueues one notification per event.
type Checker struct {
	svc       *Service
	alerts    AlertLog
	publisher Publisher
	logger    *log.Logger
}

func NewChecker(svc *Service, alerts AlertLog, publisher Publisher, logger *log.Logger) *Checker {
	return &Checker{svc: svc, alerts: alerts, publisher: publisher, logger: logger.WithComponent(log.ComponentBudget)}
}

// CheckSummary counts the outcome of one run.
type CheckSummary struct {
	Families int
	Sent     int
	Skipped  int // already notified this month
	Failed   int
}

// CheckFamilies projects the month containing now for every family with a
// budget and enqueues a budget warning when the projection exceeds it.
// One family failing never stops the others.
func (c *Checker) CheckFamilies(ctx context.Context, now time.Time) (CheckSummary, error) {
	var sum CheckSummary
	m := projection.ResolveMonthOrCurrent("", now)

	families, err := c.alerts.ListFamilies(ctx)
	if err != nil {
		return sum, err
	}
	for _, f := range families {
		if f.MonthlyBudget == nil {
			continue
		}
		sum.Families++

		report, err := c.svc.familyProjection(ctx, f.ID, m)
		if err != nil {
			sum.Failed++
			c.logger.ErrorContext(ctx, "Family projection failed", log.FieldFamilyID, f.ID, log.FieldError, err)
			continue
		}
		r := report.Result
		fields := log.NewFields().WithProjection(f.ID, m.Key(),
			core.MoneyFromDecimal(r.ProjectedTotal).Cents, f.MonthlyBudget.Cents).WithOperation(log.OpCheck)
		if !r.ExceedsBudget() {
			c.logger.Fields(ctx, slog.LevelDebug, "Family within budget", fields)
			continue
		}

		msg := &amqp.NotificationMessage{
			Kind:           core.AlertBudgetWarning,
			FamilyID:       f.ID,
			FamilyName:     f.Name,
			Period:         m.Key(),
			Exceeds:        true,
			ProjectedCents: core.MoneyFromDecimal(r.ProjectedTotal).Cents,
			BudgetCents:    f.MonthlyBudget.Cents,
			BudgetHit:      r.BudgetHit,
			Timestamp:      now,
		}
		c.notify(ctx, storage.AlertKey{FamilyID: f.ID, Kind: core.AlertBudgetWarning, Period: m.Key()}, msg, &sum, fields)
	}

	c.logger.InfoContext(ctx, "Budget check complete",
		"families", sum.Families, "sent", sum.Sent, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}

// CheckThresholds enqueues one threshold breach per family category whose
// month spend reached its limit.
func (c *Checker) CheckThresholds(ctx context.Context, now time.Time) (CheckSummary, error) {
	var sum CheckSummary
	m := projection.ResolveMonthOrCurrent("", now)

	families, err := c.alerts.ListFamilies(ctx)
	if err != nil {
		return sum, err
	}
	for _, f := range families {
		sum.Families++
		report, err := c.svc.thresholdStatus(ctx, f.ID, m)
		if err != nil {
			sum.Failed++
			c.logger.ErrorContext(ctx, "Threshold status failed", log.FieldFamilyID, f.ID, log.FieldError, err)
			continue
		}
		for _, b := range report.Breaches {
			msg := &amqp.NotificationMessage{
				Kind:       core.AlertThresholdBreach,
				FamilyID:   f.ID,
				FamilyName: f.Name,
				Period:     m.Key(),
				Category:   b.Category,
				SpentCents: core.MoneyFromDecimal(b.Spent).Cents,
				LimitCents: core.MoneyFromDecimal(b.Limit).Cents,
				Timestamp:  now,
			}
			fields := log.NewFields().WithOperation(log.OpCheck)
			fields[log.FieldFamilyID] = f.ID
			fields[log.FieldMonth] = m.Key()
			fields[log.FieldCategory] = b.Category
			key := storage.AlertKey{FamilyID: f.ID, Kind: core.AlertThresholdBreach, Period: m.Key(), Category: b.Category}
			c.notify(ctx, key, msg, &sum, fields)
		}
	}

	c.logger.InfoContext(ctx, "Threshold check complete",
		"families", sum.Families, "sent", sum.Sent, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}

// notify records the alert first so concurrent or repeated runs send it at
// most once, and releases the record when publishing fails so the next run
// retries.
func (c *Checker) notify(ctx context.Context, key storage.AlertKey, msg *amqp.NotificationMessage, sum *CheckSummary, fields log.LogFields) {
	fields[log.FieldAlertKind] = string(key.Kind)

	fresh, err := c.alerts.RecordAlert(ctx, key)
	if err != nil {
		sum.Failed++
		c.logger.Fields(ctx, slog.LevelError, "Recording alert failed", fields.WithError(err))
		return
	}
	if !fresh {
		sum.Skipped++
		c.logger.Fields(ctx, slog.LevelDebug, "Alert already sent this month", fields)
		return
	}

	if err := c.publisher.PublishNotification(ctx, msg); err != nil {
		sum.Failed++
		if rerr := c.alerts.ReleaseAlert(ctx, key); rerr != nil {
			c.logger.ErrorContext(ctx, "Releasing alert failed", log.FieldError, rerr)
		}
		c.logger.Fields(ctx, slog.LevelError, "Publishing notification failed", fields.WithError(err))
		return
	}
	sum.Sent++
	c.logger.Fields(ctx, slog.LevelWarn, "Budget alert enqueued", fields)
}
