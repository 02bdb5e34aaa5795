package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bilancio/internal/budget"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
	"bilancio/internal/sheets/memory"
)

// snapshotKind marks report rows exported on demand rather than by an alert.
const snapshotKind = "snapshot"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a projection snapshot of every family to the report sheet",
	Long: "Appends one row per family with its projected total and budget for the month. " +
		"Without GOOGLE_SPREADSHEET_ID the rows are printed instead.",
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	writer, err := cli.ReportWriter(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	var printed *memory.Store
	if writer == nil {
		printed = memory.New()
		writer = printed
	}

	n, err := exportSnapshots(ctx, budget.NewService(e.repo), e.repo, writer, flagMonth, time.Now(), e.logger)
	if err != nil {
		return err
	}
	if printed != nil {
		return printRows(cmd.OutOrStdout(), printed.Rows(""))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d rows exported\n", n)
	return nil
}

type familyLister interface {
	ListFamilies(ctx context.Context) ([]core.Family, error)
}

// exportSnapshots appends a row per family. Families whose projection fails
// are logged and skipped.
func exportSnapshots(ctx context.Context, svc *budget.Service, families familyLister, w sheets.ReportWriter, month string, now time.Time, logger *log.Logger) (int, error) {
	list, err := families.ListFamilies(ctx)
	if err != nil {
		return 0, fmt.Errorf("list families: %w", err)
	}
	n := 0
	for _, f := range list {
		rep, err := svc.FamilyProjection(ctx, f.ID, month)
		if err != nil {
			logger.ErrorContext(ctx, "Projection failed", log.FieldFamilyID, f.ID, log.FieldError, err)
			continue
		}
		if err := w.AppendReport(ctx, snapshotRow(rep, now)); err != nil {
			return n, fmt.Errorf("append report for family %d: %w", f.ID, err)
		}
		n++
	}
	return n, nil
}

func snapshotRow(rep budget.FamilyReport, now time.Time) sheets.ReportRow {
	row := sheets.ReportRow{
		Timestamp:      now,
		Period:         rep.Result.Month.Key(),
		Family:         rep.Family.Name,
		Kind:           snapshotKind,
		ProjectedCents: core.MoneyFromDecimal(rep.Result.ProjectedTotal).Cents,
		BudgetHit:      rep.Result.BudgetHit,
	}
	if rep.Family.MonthlyBudget != nil {
		row.LimitCents = rep.Family.MonthlyBudget.Cents
	}
	return row
}

func printRows(out io.Writer, rows []sheets.ReportRow) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, h := range sheets.Header {
		fmt.Fprintf(tw, "%v\t", h)
	}
	fmt.Fprintln(tw)
	for _, r := range rows {
		for _, v := range r.Values() {
			fmt.Fprintf(tw, "%v\t", v)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
