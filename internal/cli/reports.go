package cli

import (
	"context"

	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/sheets"
	"bilancio/internal/sheets/google"
)

// ReportWriter connects to the report spreadsheet. It returns nil without an
// error when export is disabled.
func ReportWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.ReportWriter, error) {
	if !cfg.SheetsEnabled() {
		return nil, nil
	}
	c, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleReportSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}
