// Package memory is an in-process snapshot exporter for local runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"carteira/internal/ports"
	"carteira/internal/sheets"
)

var (
	_ sheets.SnapshotExporter = (*Exporter)(nil)
	_ sheets.SnapshotLister   = (*Exporter)(nil)
)

// Exporter keeps every exported row, like an append-only sheet.
type Exporter struct {
	mu   sync.Mutex
	rows []ports.InvoiceSnapshot
	fail error
}

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes subsequent exports fail with err until called with nil.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

func (e *Exporter) ExportSnapshots(_ context.Context, snaps []ports.InvoiceSnapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return fmt.Errorf("export: %w", e.fail)
	}
	e.rows = append(e.rows, snaps...)
	return nil
}

// ListExported returns the owner's rows in export order.
func (e *Exporter) ListExported(_ context.Context, owner string) ([]ports.InvoiceSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []ports.InvoiceSnapshot
	for _, r := range e.rows {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

// Latest returns the most recent row of every owner, card and period,
// ordered by period then card name.
func (e *Exporter) Latest(owner string) []ports.InvoiceSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	type key struct{ card, period string }
	latest := make(map[key]ports.InvoiceSnapshot)
	for _, r := range e.rows {
		if r.OwnerID == owner {
			latest[key{r.CardID, r.Period.String()}] = r
		}
	}
	out := make([]ports.InvoiceSnapshot, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Period.Compare(out[j].Period); c != 0 {
			return c < 0
		}
		return out[i].CardName < out[j].CardName
	})
	return out
}
