package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/projection"
)

var (
	flagFamily int64
	flagUser   int64
)

var projectionCmd = &cobra.Command{
	Use:   "projection",
	Short: "Print the month-end projection of a family or a user",
	RunE:  runProjection,
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Print per-category spend against the family thresholds",
	RunE:  runThresholds,
}

func init() {
	projectionCmd.Flags().Int64Var(&flagFamily, "family", 0, "Family ID")
	projectionCmd.Flags().Int64Var(&flagUser, "user", 0, "User ID")
	thresholdsCmd.Flags().Int64Var(&flagFamily, "family", 0, "Family ID")
	_ = thresholdsCmd.MarkFlagRequired("family")
	rootCmd.AddCommand(projectionCmd, thresholdsCmd)
}

func runProjection(cmd *cobra.Command, _ []string) error {
	if (flagFamily == 0) == (flagUser == 0) {
		return errors.New("exactly one of --family or --user is required")
	}
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	svc := budget.NewService(e.repo)
	out := cmd.OutOrStdout()
	if flagUser != 0 {
		res, err := svc.UserProjection(cmd.Context(), flagUser, flagMonth)
		if err != nil {
			return err
		}
		printProjection(out, fmt.Sprintf("user %d", flagUser), res)
		sums, err := e.repo.CategorySums(cmd.Context(), flagUser, res.Month.Start, res.Month.End)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		return printCategories(out, sums)
	}

	rep, err := svc.FamilyProjection(cmd.Context(), flagFamily, flagMonth)
	if err != nil {
		return err
	}
	printProjection(out, "family "+rep.Family.Name, rep.Result)
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Member\tSpent\t")
	for _, m := range rep.Members {
		fmt.Fprintf(tw, "%s\t%s\t\n", m.Member.Name, money(m.Spent))
	}
	return tw.Flush()
}

func runThresholds(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	rep, err := budget.NewService(e.repo).ThresholdStatus(cmd.Context(), flagFamily, flagMonth)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s  total %s\n\n", rep.Family.Name, rep.Month.Key(), rep.Overview.Total)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tSpent\tLimit\tStatus")
	for _, c := range rep.Categories {
		limit, status := "-", ""
		if c.Limit.Valid {
			limit = money(c.Limit.Decimal)
		}
		if c.Breached {
			status = "BREACHED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Category, money(c.Spent), limit, status)
	}
	return tw.Flush()
}

func printProjection(w io.Writer, title string, r projection.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", title, r.Month.Key())
	fmt.Fprintf(tw, "Spent to day %d\t%s\n", r.ComparisonIndex(), money(r.CurrentToDate))
	fmt.Fprintf(tw, "Previous month to day\t%s\n", money(r.PreviousToDate))
	fmt.Fprintf(tw, "Previous month total\t%s\n", money(r.PreviousTotal))
	fmt.Fprintf(tw, "Growth\tx%s\n", r.GrowthRate.StringFixed(2))
	fmt.Fprintf(tw, "Projected total\t%s\n", money(r.ProjectedTotal))
	if r.Budget.Valid {
		fmt.Fprintf(tw, "Budget\t%s\n", money(r.Budget.Decimal))
		fmt.Fprintf(tw, "Exceeds budget\t%s\n", strconv.FormatBool(r.ExceedsBudget()))
	}
	if r.BudgetHit != nil {
		fmt.Fprintf(tw, "Budget hit\t%s\n", r.BudgetHit.Format("2006-01-02"))
	}
	tw.Flush()
}

// printCategories lists per-category totals, largest first as stored.
func printCategories(w io.Writer, sums []core.CategoryAmount) error {
	if len(sums) == 0 {
		_, err := fmt.Fprintln(w, "No expenses this month")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tSpent")
	for _, c := range sums {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Amount)
	}
	return tw.Flush()
}

func money(d decimal.Decimal) string { return core.MoneyFromDecimal(d).String() }
