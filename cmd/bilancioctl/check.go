package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/services"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the budget and threshold checks now and publish alerts",
	RunE:  runCheck,
}

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Create the expenses of subscriptions due today",
	RunE:  runRecurring,
}

func init() {
	rootCmd.AddCommand(checkCmd, recurringCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()
	if e.cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required to publish alerts")
	}

	client, err := amqp.NewClient(e.cfg.AMQPURL, e.cfg.AMQPExchange, e.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	checker := budget.NewChecker(budget.NewService(e.repo), e.repo, client, e.logger)
	now := time.Now()
	families, err := checker.CheckFamilies(cmd.Context(), now)
	if err != nil {
		return err
	}
	thresholds, err := checker.CheckThresholds(cmd.Context(), now)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "budgets:    %d families, %d sent, %d already sent, %d failed\n",
		families.Families, families.Sent, families.Skipped, families.Failed)
	fmt.Fprintf(out, "thresholds: %d families, %d sent, %d already sent, %d failed\n",
		thresholds.Families, thresholds.Sent, thresholds.Skipped, thresholds.Failed)
	if families.Failed+thresholds.Failed > 0 {
		return errors.New("some alerts could not be published")
	}
	return nil
}

func runRecurring(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	p := services.NewRecurringProcessor(e.repo, services.NewExpenseService(e.repo, e.logger), e.logger)
	n, err := p.ProcessDue(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d expenses created\n", n)
	return nil
}
