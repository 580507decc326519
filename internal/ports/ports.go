// Package ports declares the storage contracts shared by every backend.
package ports

import (
	"context"
	"time"

	"carteira/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero fields do not filter.
// From and To are inclusive.
type TransactionFilter struct {
	OwnerID     string
	From        core.Date
	To          core.Date
	CardID      string
	CardOnly    bool
	NonCardOnly bool
	// CommitmentPeriod keeps only commitment occurrences generated for
	// that month, wherever they are dated now.
	CommitmentPeriod core.Period
}

// Match reports whether t passes the filter.
func (f TransactionFilter) Match(t core.Transaction) bool {
	switch {
	case f.OwnerID != "" && t.OwnerID != f.OwnerID:
		return false
	case !f.From.IsZero() && t.Date.Before(f.From):
		return false
	case !f.To.IsZero() && t.Date.After(f.To):
		return false
	case f.CardID != "" && t.CardID != f.CardID:
		return false
	case f.CardOnly && !t.IsCard():
		return false
	case f.NonCardOnly && t.IsCard():
		return false
	case !f.CommitmentPeriod.IsZero() && (t.CommitmentID == "" || t.CommitmentPeriod != f.CommitmentPeriod):
		return false
	}
	return true
}

// InvoiceSnapshot is a cached copy of a computed invoice. It is rebuilt
// from the transactions whenever they change and never read back as the
// source of an invoice status.
type InvoiceSnapshot struct {
	OwnerID     string
	CardID      string
	CardName    string
	Period      core.Period
	Total       core.Money
	Outstanding core.Money
	Status      string
	Count       int
	ComputedAt  time.Time
}

// TransactionUpdate carries the editable fields of a transaction. Nil
// fields are left unchanged. Setting Amount clears AmountPending.
type TransactionUpdate struct {
	Description *string
	Amount      *core.Money
	Date        *core.Date
}

type (
	CardStore interface {
		CreateCard(ctx context.Context, c core.Card) error
		GetCard(ctx context.Context, owner, id string) (core.Card, error)
		ListCards(ctx context.Context, owner string) ([]core.Card, error)
		ListAllCards(ctx context.Context) ([]core.Card, error)
	}

	TransactionStore interface {
		// InsertTransactions stores all of txs or none of them.
		InsertTransactions(ctx context.Context, txs []core.Transaction) error
		GetTransaction(ctx context.Context, owner, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, owner, id string, u TransactionUpdate) (core.Transaction, error)
		// SetPaid updates the paid flag of the owner's transactions and
		// returns how many were found.
		SetPaid(ctx context.Context, owner string, ids []string, paid bool) (int, error)
		DeleteTransaction(ctx context.Context, owner, id string) (core.Transaction, error)
	}

	CommitmentStore interface {
		CreateCommitment(ctx context.Context, c core.Commitment) error
		UpdateCommitment(ctx context.Context, c core.Commitment) error
		DeleteCommitment(ctx context.Context, owner, id string) error
		GetCommitment(ctx context.Context, owner, id string) (core.Commitment, error)
		ListCommitments(ctx context.Context, owner string) ([]core.Commitment, error)
		ListCommitmentOwners(ctx context.Context) ([]string, error)
	}

	InvoiceSnapshotStore interface {
		UpsertSnapshot(ctx context.Context, s InvoiceSnapshot) error
		ListSnapshots(ctx context.Context, owner string, p core.Period) ([]InvoiceSnapshot, error)
	}

	// Store is a complete backend.
	Store interface {
		CardStore
		TransactionStore
		CommitmentStore
		InvoiceSnapshotStore
		// ResetOwner removes every record of owner.
		ResetOwner(ctx context.Context, owner string) error
		Ping(ctx context.Context) error
		Close() error
	}
)
