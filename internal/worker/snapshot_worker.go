// Package worker hosts the out-of-process consumers of transaction events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carteira/internal/amqp"
	"carteira/internal/core"
	"carteira/internal/events"
)

// Recomputer rebuilds the invoice snapshots affected by an event.
type Recomputer interface {
	Recompute(ctx context.Context, e events.Event) error
	SweepAll(ctx context.Context, p core.Period) (int, error)
}

// SnapshotWorker keeps invoice snapshots current from broker messages.
type SnapshotWorker struct {
	snapshots Recomputer
	now       func() time.Time
}

func NewSnapshotWorker(snapshots Recomputer) *SnapshotWorker {
	return &SnapshotWorker{
		snapshots: snapshots,
		now:       time.Now,
	}
}

// HandleMessage processes one transaction event. A returned error makes
// the consumer requeue the message.
func (w *SnapshotWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"type", msg.Type,
		"owner_id", msg.OwnerID,
		"transactions", len(msg.TransactionIDs))

	e, err := msg.Event()
	if err != nil {
		// a malformed date will not get better on redelivery
		slog.ErrorContext(ctx, "Dropping event with invalid payload",
			"owner_id", msg.OwnerID,
			"error", err)
		return nil
	}

	if err := w.snapshots.Recompute(ctx, e); err != nil {
		return fmt.Errorf("recompute snapshots: %w", err)
	}

	slog.InfoContext(ctx, "Invoice snapshots updated",
		"owner_id", msg.OwnerID,
		"latency", w.now().Sub(msg.Timestamp).Round(time.Millisecond))
	return nil
}

// StartupSweep recomputes the periods adjacent to now for every owner, since
// a purchase made today may bill in the next one. It recovers from messages
// missed while the worker was down.
func (w *SnapshotWorker) StartupSweep(ctx context.Context) error {
	current := core.PeriodOf(w.now())
	total := 0
	for _, p := range []core.Period{current.Prev(), current, current.Next()} {
		n, err := w.snapshots.SweepAll(ctx, p)
		if err != nil {
			return fmt.Errorf("sweep %s: %w", p, err)
		}
		total += n
	}
	slog.InfoContext(ctx, "Startup snapshot sweep completed",
		"current_period", current.String(),
		"owner_periods", total)
	return nil
}
