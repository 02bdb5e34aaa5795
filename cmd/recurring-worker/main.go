package main

import (
	"context"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/scheduler"
	"bilancio/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentScheduler, (*config.Config).Validate)
	logger.Info("Starting recurring-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	processor := services.NewRecurringProcessor(repo, services.NewExpenseService(repo, logger), logger)
	sched := scheduler.New(logger, time.Local)

	err := sched.Add("recurring", cfg.RecurringSchedule, func(ctx context.Context, now time.Time) error {
		count, err := processor.ProcessDue(ctx, now)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Recurring expenses processed", "expenses_created", count)
		return nil
	})
	if err != nil {
		logger.Error("Failed to schedule recurring job", log.FieldError, err)
		os.Exit(1)
	}

	// Budget checks publish to the broker; without one only recurring
	// expenses run.
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - budget checks are not scheduled")
	} else if client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Warn("Failed to initialize AMQP client, budget checks are not scheduled", log.FieldError, err)
	} else {
		defer client.Close()
		checker := budget.NewChecker(budget.NewService(repo), repo, client, logger)
		err := sched.Add("budget-check", cfg.CheckSchedule, func(ctx context.Context, now time.Time) error {
			families, err := checker.CheckFamilies(ctx, now)
			if err != nil {
				return err
			}
			thresholds, err := checker.CheckThresholds(ctx, now)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "Budget check complete",
				"families", families.Families,
				"budget_alerts", families.Sent,
				"threshold_alerts", thresholds.Sent,
				"skipped", families.Skipped+thresholds.Skipped,
				"failed", families.Failed+thresholds.Failed)
			return nil
		})
		if err != nil {
			logger.Error("Failed to schedule budget check", log.FieldError, err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		sched.Stop()
	})
	sched.Start(ctx)

	// Catch up on anything due since the last run.
	if err := sched.RunNow("recurring"); err != nil {
		logger.Error("Initial recurring run failed", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}
