// Package google exports invoice snapshots to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"carteira/internal/ports"
	"carteira/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base sheet name without year (e.g. "Invoices"); the period's year is
	// prefixed.
	sheetBase string
}

// Ensure interface conformance
var _ sheets.SnapshotExporter = (*Client)(nil)

// Options configures New. Credentials come from CredentialsJSON, then
// CredentialsFile, then GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, opts.SheetName), nil
}

// NewFromEnv creates a client from GOOGLE_SPREADSHEET_ID and
// GOOGLE_SHEET_NAME (default "Invoices").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	return New(ctx, Options{
		SpreadsheetID: spreadsheetID,
		SheetName:     os.Getenv("GOOGLE_SHEET_NAME"),
	})
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	base := strings.TrimSpace(sheetName)
	if base == "" {
		base = "Invoices"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     base,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	inline := strings.TrimSpace(credentialsJSON)
	file := strings.TrimSpace(credentialsFile)
	if inline == "" && file == "" {
		inline = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
		file = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	}
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		creds = []byte(inline)
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		var err error
		creds, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// ExportSnapshots appends one row per snapshot to the sheet of the
// snapshot's year.
func (c *Client) ExportSnapshots(ctx context.Context, snaps []ports.InvoiceSnapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(snaps) == 0 {
		return nil
	}

	byYear := make(map[int][][]any)
	for _, s := range snaps {
		byYear[s.Period.Year] = append(byYear[s.Period.Year], snapshotRow(s))
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	slices.Sort(years)

	for _, year := range years {
		sheetName := yearPrefixedName(c.sheetBase, year)
		rng := fmt.Sprintf("%s!A:F", sheetName)
		vr := &gsheet.ValueRange{Values: byYear[year]}
		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append to sheet %s: %w", sheetName, err)
		}
		updated := ""
		if resp.Updates != nil {
			updated = resp.Updates.UpdatedRange
		}
		slog.InfoContext(ctx, "Exported invoice snapshots",
			"sheet", sheetName,
			"rows", len(vr.Values),
			"range", updated)
	}
	return nil
}

// ReadRows returns the rows exported for year, skipping the header and
// rows that do not parse.
func (c *Client) ReadRows(ctx context.Context, year int) ([]Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:F", yearPrefixedName(c.sheetBase, year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

// snapshotRow formats the columns Period, Card, Total, Status, Outstanding
// and Computed at.
func snapshotRow(s ports.InvoiceSnapshot) []any {
	return []any{
		s.Period.String(),
		s.CardName,
		s.Total.String(),
		s.Status,
		s.Outstanding.String(),
		s.ComputedAt.UTC().Format(time.RFC3339),
	}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
