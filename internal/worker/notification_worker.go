// Package worker consumes queued budget notifications.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
)

type Members interface {
	ListMembers(ctx context.Context, familyID int64) ([]core.Member, error)
}

type Notifier interface {
	Notify(ctx context.Context, to core.Member, msg *amqp.NotificationMessage) error
}

// NotificationWorker mails every member of the family a message is about
// and records the alert in the report.
type NotificationWorker struct {
	members  Members
	notifier Notifier
	reports  sheets.ReportWriter // optional
	logger   *log.Logger
}

func NewNotificationWorker(members Members, notifier Notifier, reports sheets.ReportWriter, logger *log.Logger) *NotificationWorker {
	return &NotificationWorker{
		members:  members,
		notifier: notifier,
		reports:  reports,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Handle is an amqp.Handler. It fails, and the message is requeued, only
// when nobody could be notified; partial delivery is logged.
func (w *NotificationWorker) Handle(ctx context.Context, msg *amqp.NotificationMessage) error {
	fields := log.NewFields().WithOperation(log.OpNotify)
	fields[log.FieldFamilyID] = msg.FamilyID
	fields[log.FieldMonth] = msg.Period
	fields[log.FieldAlertKind] = string(msg.Kind)

	members, err := w.members.ListMembers(ctx, msg.FamilyID)
	if err != nil {
		return fmt.Errorf("list members of family %d: %w", msg.FamilyID, err)
	}
	if len(members) == 0 {
		w.logger.Fields(ctx, slog.LevelWarn, "Family has no members, nothing to send", fields)
		return nil
	}

	var errs []error
	for _, m := range members {
		if err := w.notifier.Notify(ctx, m, msg); err != nil {
			errs = append(errs, fmt.Errorf("member %d: %w", m.UserID, err))
		}
	}
	if len(errs) == len(members) {
		return errors.Join(errs...)
	}
	if len(errs) > 0 {
		w.logger.Fields(ctx, slog.LevelWarn, "Notification partially delivered",
			fields.WithError(errors.Join(errs...)))
	}

	if w.reports != nil {
		if err := w.reports.AppendReport(ctx, ReportRow(msg)); err != nil {
			w.logger.Fields(ctx, slog.LevelError, "Failed to append report row", fields.WithError(err))
		}
	}

	fields["recipients"] = len(members) - len(errs)
	w.logger.Fields(ctx, slog.LevelInfo, "Notification delivered", fields)
	return nil
}

// ReportRow converts a notification into its report line.
func ReportRow(msg *amqp.NotificationMessage) sheets.ReportRow {
	row := sheets.ReportRow{
		Timestamp: msg.Timestamp,
		Period:    msg.Period,
		Family:    msg.FamilyName,
		Kind:      string(msg.Kind),
		Category:  msg.Category,
		BudgetHit: msg.BudgetHit,
	}
	switch msg.Kind {
	case core.AlertThresholdBreach:
		row.ProjectedCents = msg.SpentCents
		row.LimitCents = msg.LimitCents
	default:
		row.ProjectedCents = msg.ProjectedCents
		row.LimitCents = msg.BudgetCents
	}
	return row
}
