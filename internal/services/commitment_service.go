package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/planning"
	"carteira/internal/ports"
)

// CommitmentService manages recurring commitments and turns them into
// the transactions of a month.
type CommitmentService struct {
	store ports.Store
	bus   events.Publisher
}

func NewCommitmentService(store ports.Store, bus events.Publisher) *CommitmentService {
	return &CommitmentService{
		store: store,
		bus:   bus,
	}
}

func (s *CommitmentService) Create(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	c = normalizeCommitment(c)
	if err := c.Validate(); err != nil {
		return core.Commitment{}, err
	}
	if err := s.store.CreateCommitment(ctx, c); err != nil {
		return core.Commitment{}, fmt.Errorf("save commitment: %w", err)
	}
	slog.InfoContext(ctx, "Commitment created",
		"id", c.ID,
		"owner_id", c.OwnerID,
		"expected_day", c.ExpectedDay,
		"variable", c.Variable)
	return c, nil
}

// Update replaces a commitment. Transactions already generated from it
// are left as they are.
func (s *CommitmentService) Update(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	c = normalizeCommitment(c)
	if err := c.Validate(); err != nil {
		return core.Commitment{}, err
	}
	if err := s.store.UpdateCommitment(ctx, c); err != nil {
		return core.Commitment{}, err
	}
	return s.store.GetCommitment(ctx, c.OwnerID, c.ID)
}

func (s *CommitmentService) Delete(ctx context.Context, owner, id string) error {
	return s.store.DeleteCommitment(ctx, owner, id)
}

func (s *CommitmentService) List(ctx context.Context, owner string) ([]core.Commitment, error) {
	return s.store.ListCommitments(ctx, owner)
}

// GenerateMonth creates the owner's commitment transactions for p.
// Commitments that already produced an occurrence for p are skipped, so
// the call is idempotent even after occurrences are moved to other dates.
func (s *CommitmentService) GenerateMonth(ctx context.Context, owner string, p core.Period) ([]core.Transaction, error) {
	commitments, err := s.store.ListCommitments(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	if len(commitments) == 0 {
		return nil, nil
	}
	existing, err := s.store.ListTransactions(ctx, ports.TransactionFilter{
		OwnerID:          owner,
		CommitmentPeriod: p,
	})
	if err != nil {
		return nil, fmt.Errorf("list generated occurrences: %w", err)
	}

	txs, err := planning.GenerateMonth(commitments, existing, p, owner)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	if err := s.store.InsertTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("save generated transactions: %w", err)
	}

	slog.InfoContext(ctx, "Generated commitment transactions",
		"owner_id", owner,
		"period", p.String(),
		"created", len(txs))

	if s.bus != nil {
		s.bus.Publish(ctx, events.FromTransactions(events.TransactionsCreated, owner, txs))
	}
	return txs, nil
}

func normalizeCommitment(c core.Commitment) core.Commitment {
	c.Name = strings.TrimSpace(c.Name)
	if c.Kind == "" {
		c.Kind = core.Expense
	}
	if c.Variable {
		c.DefaultAmount = core.Money{}
	}
	return c
}
