package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// ExpenseStore is the write side of the repository.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *core.Expense) error
	DeleteExpense(ctx context.Context, userID, id int64) error
	CreateSubscription(ctx context.Context, s *core.Subscription) error
	DeleteSubscription(ctx context.Context, userID, id int64) error
}

// ExpenseService validates user expenses and subscriptions before storing them.
type ExpenseService struct {
	store  ExpenseStore
	logger *log.Logger
}

func NewExpenseService(store ExpenseStore, logger *log.Logger) *ExpenseService {
	return &ExpenseService{store: store, logger: logger.WithComponent(log.ComponentExpense)}
}

// CreateExpense validates e and stores it, returning it with its ID set.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.UserID <= 0 {
		return core.Expense{}, fmt.Errorf("create expense: missing owner")
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.CreateExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.FieldUserID, e.UserID,
		"expense_id", e.ID,
		log.FieldCategory, e.Category,
		log.FieldAmountCents, e.Amount.Cents)
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldUserID, userID, "expense_id", id)
	return nil
}

// CreateSubscription validates sub and stores it. The first expense is
// produced by the recurring worker, not here.
func (s *ExpenseService) CreateSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if sub.UserID <= 0 {
		return core.Subscription{}, fmt.Errorf("create subscription: missing owner")
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	if err := s.store.CreateSubscription(ctx, &sub); err != nil {
		return core.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "Subscription created",
		log.FieldUserID, sub.UserID,
		"subscription_id", sub.ID,
		"frequency", sub.Every,
		log.FieldAmountCents, sub.Amount.Cents)
	return sub, nil
}

func (s *ExpenseService) DeleteSubscription(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteSubscription(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Subscription deleted", log.FieldUserID, userID, "subscription_id", id)
	return nil
}
