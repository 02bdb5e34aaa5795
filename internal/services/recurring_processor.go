package services

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// SubscriptionStore lists subscriptions that may be due and marks them done.
type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context, now time.Time) ([]storage.DueCandidate, error)
	UpdateLastExecution(ctx context.Context, id int64, at time.Time) error
}

// RecurringProcessor materializes due subscriptions into expenses.
type RecurringProcessor struct {
	subscriptions SubscriptionStore
	expenses      *ExpenseService
	logger        *log.Logger
}

func NewRecurringProcessor(subscriptions SubscriptionStore, expenses *ExpenseService, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		subscriptions: subscriptions,
		expenses:      expenses,
		logger:        logger.WithComponent(log.ComponentWorker),
	}
}

// ProcessDue creates today's expense for every subscription whose frequency
// says it is due and returns how many were created. A subscription that
// fails is logged and skipped.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.subscriptions == nil || p.expenses == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	candidates, err := p.subscriptions.ListActiveSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list active subscriptions: %w", err)
	}
	p.logger.InfoContext(ctx, "Processing subscriptions",
		"total_active", len(candidates),
		"processing_date", now.Format("2006-01-02"))

	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	processed := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		sub := c.Subscription
		if !sub.ActiveOn(now) {
			continue
		}

		checker, err := GetDuenessChecker(sub.Every)
		if err != nil {
			p.logger.ErrorContext(ctx, "Skipping subscription", "subscription_id", sub.ID, log.FieldError, err)
			continue
		}
		if !checker.IsDue(c.LastExecution, now, sub.StartDate) {
			continue
		}

		e, err := p.expenses.CreateExpense(ctx, core.Expense{
			UserID:         sub.UserID,
			Date:           today,
			Description:    sub.Description,
			Amount:         sub.Amount,
			Category:       sub.Category,
			SubscriptionID: sub.ID,
		})
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to create expense from subscription",
				"subscription_id", sub.ID, log.FieldError, err)
			continue
		}

		// The expense exists either way; a failed stamp means it may be
		// produced again on the next run.
		if err := p.subscriptions.UpdateLastExecution(ctx, sub.ID, now); err != nil {
			p.logger.ErrorContext(ctx, "Failed to update last execution date",
				"subscription_id", sub.ID, log.FieldError, err)
		}

		processed++
		p.logger.InfoContext(ctx, "Created expense from subscription",
			"subscription_id", sub.ID,
			"expense_id", e.ID,
			log.FieldAmountCents, sub.Amount.Cents,
			"frequency", sub.Every)
	}

	p.logger.InfoContext(ctx, "Subscription processing complete",
		"processed", processed,
		"total_checked", len(candidates))
	return processed, nil
}
