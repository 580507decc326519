package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carteira/internal/core"
	"carteira/internal/ports"
)

// CommitmentProcessor generates the current month's commitment
// transactions for every owner that has commitments.
type CommitmentProcessor struct {
	owners      ports.CommitmentStore
	commitments *CommitmentService
	now         func() time.Time

	runner runner
}

func NewCommitmentProcessor(owners ports.CommitmentStore, commitments *CommitmentService) *CommitmentProcessor {
	return &CommitmentProcessor{
		owners:      owners,
		commitments: commitments,
		now:         time.Now,
		runner:      runner{name: "commitment processor"},
	}
}

// ProcessMonth generates p for every owner. A failing owner does not stop
// the others; all failures are returned joined.
func (p *CommitmentProcessor) ProcessMonth(ctx context.Context, period core.Period) (int, error) {
	if p.owners == nil || p.commitments == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	owners, err := p.owners.ListCommitmentOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list commitment owners: %w", err)
	}

	slog.InfoContext(ctx, "Processing commitments",
		"owners", len(owners),
		"period", period.String())

	created := 0
	var errs []error
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		txs, err := p.commitments.GenerateMonth(ctx, owner, period)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to generate commitment transactions",
				"owner_id", owner,
				"period", period.String(),
				"error", err)
			errs = append(errs, fmt.Errorf("owner %s: %w", owner, err))
			continue
		}
		created += len(txs)
	}

	slog.InfoContext(ctx, "Commitment processing complete",
		"created", created,
		"owners", len(owners),
		"failed", len(errs))

	return created, errors.Join(errs...)
}

// ProcessDue generates the month containing now.
func (p *CommitmentProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	return p.ProcessMonth(ctx, core.PeriodOf(now))
}

// Start runs ProcessDue immediately and then every interval.
func (p *CommitmentProcessor) Start(ctx context.Context, interval time.Duration) error {
	return p.runner.start(ctx, interval, func(ctx context.Context) {
		if _, err := p.ProcessDue(ctx, p.now()); err != nil {
			slog.ErrorContext(ctx, "Periodic commitment processing failed", "error", err)
		}
	})
}

func (p *CommitmentProcessor) Stop(ctx context.Context) error {
	return p.runner.stop(ctx)
}

func (p *CommitmentProcessor) IsRunning() bool {
	return p.runner.isRunning()
}
