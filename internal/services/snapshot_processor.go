package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/invoice"
	"carteira/internal/ports"
	"carteira/internal/sheets"
)

// SnapshotProcessorConfig holds configuration for the snapshot processor
type SnapshotProcessorConfig struct {
	// PollInterval is how often dirty owners are recomputed (default: 10s)
	PollInterval time.Duration

	// MaxRetries is how many failed recomputations of an owner are
	// attempted before it is dropped until its next change (default: 3)
	MaxRetries int
}

func DefaultSnapshotProcessorConfig() SnapshotProcessorConfig {
	return SnapshotProcessorConfig{
		PollInterval: 10 * time.Second,
		MaxRetries:   3,
	}
}

// SnapshotProcessor keeps the persisted invoice snapshots in line with the
// transactions. Snapshots are always rebuilt from the paid flags of the
// transactions, never read back as input.
type SnapshotProcessor struct {
	store    ports.Store
	exporter sheets.SnapshotExporter
	config   SnapshotProcessorConfig
	now      func() time.Time

	mu    sync.Mutex
	dirty map[string]*dirtyOwner

	runner runner
}

type dirtyOwner struct {
	periods  map[core.Period]bool
	attempts int
}

// NewSnapshotProcessor returns a processor writing to store. A nil
// exporter only updates the store.
func NewSnapshotProcessor(store ports.Store, exporter sheets.SnapshotExporter, config SnapshotProcessorConfig) *SnapshotProcessor {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	return &SnapshotProcessor{
		store:    store,
		exporter: exporter,
		config:   config,
		now:      time.Now,
		dirty:    make(map[string]*dirtyOwner),
		runner:   runner{name: "snapshot processor"},
	}
}

// Subscribe marks owners dirty whenever bus reports a change.
func (p *SnapshotProcessor) Subscribe(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe("invoice-snapshots", p.HandleEvent)
}

// HandleEvent queues the invoices affected by e for recomputation.
func (p *SnapshotProcessor) HandleEvent(ctx context.Context, e events.Event) error {
	periods, err := p.affectedPeriods(ctx, e)
	if err != nil {
		return err
	}
	p.MarkDirty(e.OwnerID, periods...)
	return nil
}

// Recompute immediately rebuilds the invoices affected by e.
func (p *SnapshotProcessor) Recompute(ctx context.Context, e events.Event) error {
	periods, err := p.affectedPeriods(ctx, e)
	if err != nil {
		return err
	}
	_, err = p.RecomputeOwner(ctx, e.OwnerID, periods)
	return err
}

// MarkDirty queues periods of owner. Without periods the owner's current
// period is queued.
func (p *SnapshotProcessor) MarkDirty(owner string, periods ...core.Period) {
	if owner == "" {
		return
	}
	if len(periods) == 0 {
		periods = []core.Period{core.PeriodOf(p.now())}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.dirty[owner]
	if !ok {
		d = &dirtyOwner{periods: make(map[core.Period]bool)}
		p.dirty[owner] = d
	}
	d.attempts = 0
	for _, period := range periods {
		d.periods[period] = true
	}
}

// Pending returns the number of owners waiting for recomputation.
func (p *SnapshotProcessor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dirty)
}

// affectedPeriods resolves the event's dates to the invoice periods of
// its cards.
func (p *SnapshotProcessor) affectedPeriods(ctx context.Context, e events.Event) ([]core.Period, error) {
	if e.OwnerID == "" {
		return nil, core.ErrEmptyOwner
	}
	set := make(map[core.Period]bool)
	for _, cardID := range e.CardIDs {
		card, err := p.store.GetCard(ctx, e.OwnerID, cardID)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get card %s: %w", cardID, err)
		}
		for _, d := range e.Dates {
			period, err := invoice.CardPeriod(card, d)
			if err != nil {
				return nil, err
			}
			set[period] = true
		}
	}
	return slices.SortedFunc(maps.Keys(set), core.Period.Compare), nil
}

// Flush recomputes every dirty owner once. Failed owners stay queued until
// MaxRetries is reached.
func (p *SnapshotProcessor) Flush(ctx context.Context) int {
	p.mu.Lock()
	batch := p.dirty
	p.dirty = make(map[string]*dirtyOwner)
	p.mu.Unlock()

	done := 0
	for _, owner := range slices.Sorted(maps.Keys(batch)) {
		if ctx.Err() != nil {
			p.requeue(owner, batch[owner])
			continue
		}
		d := batch[owner]
		periods := slices.SortedFunc(maps.Keys(d.periods), core.Period.Compare)
		if _, err := p.RecomputeOwner(ctx, owner, periods); err != nil {
			p.handleFailure(ctx, owner, d, err)
			continue
		}
		done++
	}
	return done
}

func (p *SnapshotProcessor) handleFailure(ctx context.Context, owner string, d *dirtyOwner, err error) {
	d.attempts++
	slog.WarnContext(ctx, "Snapshot recomputation failed",
		"owner_id", owner,
		"attempt", d.attempts,
		"error", err)
	if d.attempts >= p.config.MaxRetries {
		slog.ErrorContext(ctx, "Snapshot recomputation failed permanently after max retries",
			"owner_id", owner,
			"attempts", d.attempts)
		return
	}
	p.requeue(owner, d)
}

// requeue merges d back, keeping periods queued meanwhile.
func (p *SnapshotProcessor) requeue(owner string, d *dirtyOwner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.dirty[owner]
	if !ok {
		p.dirty[owner] = d
		return
	}
	for period := range d.periods {
		cur.periods[period] = true
	}
}

// RecomputeOwner rebuilds the snapshots of every card of owner for the
// given periods, stores them and exports them.
func (p *SnapshotProcessor) RecomputeOwner(ctx context.Context, owner string, periods []core.Period) ([]ports.InvoiceSnapshot, error) {
	cards, err := p.store.ListCards(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	if len(cards) == 0 || len(periods) == 0 {
		return nil, nil
	}

	computedAt := p.now().UTC()
	var snaps []ports.InvoiceSnapshot
	for _, period := range periods {
		from, to, err := cycleBounds(cards, period)
		if err != nil {
			return nil, err
		}
		txs, err := p.store.ListTransactions(ctx, ports.TransactionFilter{
			OwnerID:  owner,
			From:     from,
			To:       to,
			CardOnly: true,
		})
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}

		groups, err := invoice.Group(cards, txs)
		if err != nil {
			slog.WarnContext(ctx, "Card transactions without a card",
				"owner_id", owner,
				"error", err)
		}

		for _, card := range cards {
			summary := invoice.Classify(groups[invoice.Key{CardID: card.ID, Period: period}])
			snaps = append(snaps, ports.InvoiceSnapshot{
				OwnerID:     owner,
				CardID:      card.ID,
				CardName:    card.Name,
				Period:      period,
				Total:       summary.Total,
				Outstanding: summary.Outstanding,
				Status:      string(summary.Status),
				Count:       summary.Count,
				ComputedAt:  computedAt,
			})
		}
	}

	for _, snap := range snaps {
		if err := p.store.UpsertSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("save snapshot %s/%s: %w", snap.CardID, snap.Period, err)
		}
	}

	if p.exporter != nil {
		if err := p.exporter.ExportSnapshots(ctx, snaps); err != nil {
			return nil, fmt.Errorf("export snapshots: %w", err)
		}
	}

	slog.InfoContext(ctx, "Invoice snapshots recomputed",
		"owner_id", owner,
		"periods", len(periods),
		"snapshots", len(snaps))
	return snaps, nil
}

// SweepAll recomputes period for every owner that has a card. It is the
// recovery path for events lost while no worker was running.
func (p *SnapshotProcessor) SweepAll(ctx context.Context, period core.Period) (int, error) {
	cards, err := p.store.ListAllCards(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cards: %w", err)
	}
	owners := make(map[string]bool)
	for _, c := range cards {
		owners[c.OwnerID] = true
	}

	var errs []error
	done := 0
	for _, owner := range slices.Sorted(maps.Keys(owners)) {
		if _, err := p.RecomputeOwner(ctx, owner, []core.Period{period}); err != nil {
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// Start flushes dirty owners every PollInterval.
func (p *SnapshotProcessor) Start(ctx context.Context) error {
	return p.runner.start(ctx, p.config.PollInterval, func(ctx context.Context) {
		if n := p.Flush(ctx); n > 0 {
			slog.DebugContext(ctx, "Flushed dirty owners", "count", n)
		}
	})
}

// Stop stops the loop and flushes what is still queued.
func (p *SnapshotProcessor) Stop(ctx context.Context) error {
	if err := p.runner.stop(ctx); err != nil {
		return err
	}
	p.Flush(ctx)
	return nil
}

func (p *SnapshotProcessor) IsRunning() bool {
	return p.runner.isRunning()
}

// cycleBounds returns the smallest date range covering the billing cycle
// of period for every card.
func cycleBounds(cards []core.Card, period core.Period) (from, to core.Date, err error) {
	for i, c := range cards {
		start, end, err := invoice.PeriodRange(period, c.ClosingDay)
		if err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("card %s: %w", c.ID, err)
		}
		if i == 0 || start.Before(from) {
			from = start
		}
		if i == 0 || end.After(to) {
			to = end
		}
	}
	return from, to, nil
}
