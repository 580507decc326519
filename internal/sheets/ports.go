package sheets

import (
	"context"

	"carteira/internal/ports"
)

// Ports for outbound adapters.
type (
	// SnapshotExporter publishes invoice snapshots to an external sheet.
	SnapshotExporter interface {
		ExportSnapshots(ctx context.Context, snaps []ports.InvoiceSnapshot) error
	}

	// SnapshotLister reads back what was exported, for checks and tests.
	SnapshotLister interface {
		ListExported(ctx context.Context, owner string) ([]ports.InvoiceSnapshot, error)
	}
)
