package services

import (
	"context"
	"fmt"
	"slices"

	"carteira/internal/core"
	"carteira/internal/ports"
	"carteira/internal/report"
)

// TransactionKind selects which transactions a month listing returns.
type TransactionKind string

const (
	KindAll  TransactionKind = ""
	KindCard TransactionKind = "card"
	KindCash TransactionKind = "cash"
)

func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(s); k {
	case KindAll, KindCard, KindCash:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, s)
	}
}

// ReportService serves the read side of a month: listings, running
// balance and summary.
type ReportService struct {
	store ports.Store
}

func NewReportService(store ports.Store) *ReportService {
	return &ReportService{store: store}
}

// Transactions lists the owner's transactions dated in p, ordered by date.
func (s *ReportService) Transactions(ctx context.Context, owner string, p core.Period, kind TransactionKind) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, ports.TransactionFilter{
		OwnerID:     owner,
		From:        p.First(),
		To:          p.Last(),
		CardOnly:    kind == KindCard,
		NonCardOnly: kind == KindCash,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return report.SortByDate(txs), nil
}

// CardTransactions lists the purchases of one of the owner's cards dated
// in p. An unknown card is ErrNotFound.
func (s *ReportService) CardTransactions(ctx context.Context, owner, cardID string, p core.Period) ([]core.Transaction, error) {
	if _, err := s.store.GetCard(ctx, owner, cardID); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, ports.TransactionFilter{
		OwnerID: owner,
		From:    p.First(),
		To:      p.Last(),
		CardID:  cardID,
	})
	if err != nil {
		return nil, fmt.Errorf("list card %s transactions: %w", cardID, err)
	}
	return report.SortByDate(txs), nil
}

// Balance returns the running balance over the month, starting at zero.
func (s *ReportService) Balance(ctx context.Context, owner string, p core.Period) ([]core.BalancePoint, error) {
	txs, err := s.Transactions(ctx, owner, p, KindAll)
	if err != nil {
		return nil, err
	}
	return slices.Collect(report.RunningBalance(txs)), nil
}

func (s *ReportService) Summary(ctx context.Context, owner string, p core.Period) (core.MonthSummary, error) {
	txs, err := s.Transactions(ctx, owner, p, KindAll)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return report.Summarize(p, txs), nil
}
