package google

import (
	"fmt"
	"strings"
	"time"

	"carteira/internal/core"
)

// Row is one exported snapshot as read back from the sheet.
type Row struct {
	Period      core.Period
	Card        string
	Total       core.Money
	Status      string
	Outstanding core.Money
	ComputedAt  time.Time
}

// parseRows converts a values matrix (as returned by Sheets API) into rows.
// Header and malformed rows are skipped.
func parseRows(values [][]interface{}) []Row {
	var out []Row
	for _, v := range values {
		r, err := parseRow(toStrings(v))
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

func parseRow(cols []string) (Row, error) {
	if len(cols) < 6 {
		return Row{}, fmt.Errorf("row has %d columns, want 6", len(cols))
	}
	p, err := core.ParsePeriod(cols[0])
	if err != nil {
		return Row{}, err
	}
	total, err := parseAmount(cols[2])
	if err != nil {
		return Row{}, fmt.Errorf("total: %w", err)
	}
	outstanding, err := parseAmount(cols[4])
	if err != nil {
		return Row{}, fmt.Errorf("outstanding: %w", err)
	}
	at, err := time.Parse(time.RFC3339, cols[5])
	if err != nil {
		return Row{}, fmt.Errorf("computed at: %w", err)
	}
	return Row{
		Period:      p,
		Card:        cols[1],
		Total:       total,
		Status:      strings.ToUpper(cols[3]),
		Outstanding: outstanding,
		ComputedAt:  at,
	}, nil
}

// parseAmount accepts the sheet's rendering of an amount, which may use a
// decimal comma depending on the spreadsheet locale.
func parseAmount(s string) (core.Money, error) {
	m, err := core.ParseMoney(s)
	if err != nil {
		return core.Money{}, err
	}
	if m.Cents < 0 {
		return core.Money{}, core.ErrInvalidAmount
	}
	return m, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
