package cli

import (
	"context"

	"carteira/internal/config"
	"carteira/internal/log"
	"carteira/internal/sheets"
	gsheet "carteira/internal/sheets/google"
)

// NewSnapshotExporter returns the Google Sheets exporter when a
// spreadsheet is configured and nil otherwise. A client that cannot be
// created disables the export instead of stopping the process.
func NewSnapshotExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) sheets.SnapshotExporter {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client, export disabled",
			log.FieldComponent, log.ComponentSheets,
			log.FieldError, err)
		return nil
	}
	logger.Info("Google Sheets export enabled",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client
}
