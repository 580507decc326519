package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/invoice"
	"carteira/internal/planning"
	"carteira/internal/ports"
)

// TransactionService is the write path for transactions. Every committed
// change is announced on the event publisher so that caches and workers can
// react to it.
type TransactionService struct {
	store ports.Store
	bus   events.Publisher
}

func NewTransactionService(store ports.Store, bus events.Publisher) *TransactionService {
	return &TransactionService{
		store: store,
		bus:   bus,
	}
}

// Create validates and stores a one-off transaction. A card transaction
// must reference one of the owner's cards.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = core.NewID()
	}
	if t.Kind == "" {
		t.Kind = core.Expense
	}
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.CardID != "" {
		if _, err := s.card(ctx, t.OwnerID, t.CardID, t.ID); err != nil {
			return core.Transaction{}, err
		}
	}

	if err := s.store.InsertTransactions(ctx, []core.Transaction{t}); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"owner_id", t.OwnerID,
		"card_id", t.CardID,
		"amount_cents", t.Amount.Cents)

	s.publish(ctx, events.FromTransactions(events.TransactionsCreated, t.OwnerID, []core.Transaction{t}))
	return t, nil
}

// CreateCardPurchase stores every installment of a card purchase in one
// atomic insert.
func (s *TransactionService) CreateCardPurchase(ctx context.Context, p planning.Purchase) ([]core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	card, err := s.card(ctx, p.OwnerID, p.CardID, "")
	if err != nil {
		return nil, err
	}

	txs, err := planning.Installments(card, p)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("save installments: %w", err)
	}

	slog.InfoContext(ctx, "Card purchase created",
		"owner_id", p.OwnerID,
		"card_id", card.ID,
		"installments", len(txs),
		"installment_cents", p.InstallmentAmount.Cents)

	s.publish(ctx, events.FromTransactions(events.TransactionsCreated, p.OwnerID, txs))
	return txs, nil
}

// SetPaid sets the paid flag of the owner's transactions. All ids must
// exist, otherwise nothing is changed.
func (s *TransactionService) SetPaid(ctx context.Context, owner string, ids []string, paid bool) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(ids))
	for _, id := range ids {
		t, err := s.store.GetTransaction(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		t.Paid = paid
		txs = append(txs, t)
	}
	if len(txs) == 0 {
		return nil, nil
	}

	if _, err := s.store.SetPaid(ctx, owner, ids, paid); err != nil {
		return nil, fmt.Errorf("set paid: %w", err)
	}

	typ := events.TransactionsPaid
	if !paid {
		typ = events.TransactionsUnpaid
	}
	s.publish(ctx, events.FromTransactions(typ, owner, txs))
	return txs, nil
}

// Update edits a transaction. Both the previous and the new date are part
// of the published event so invoices of either period are refreshed.
func (s *TransactionService) Update(ctx context.Context, owner, id string, u ports.TransactionUpdate) (core.Transaction, error) {
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		if d == "" {
			return core.Transaction{}, core.ErrEmptyDescription
		}
		u.Description = &d
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return core.Transaction{}, err
		}
	}
	if u.Date != nil {
		if err := u.Date.Validate(); err != nil {
			return core.Transaction{}, err
		}
	}

	before, err := s.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}
	after, err := s.store.UpdateTransaction(ctx, owner, id, u)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	e := events.FromTransactions(events.TransactionsUpdated, owner, []core.Transaction{after})
	if !before.Date.Equal(after.Date.Time) {
		e.Dates = append(e.Dates, before.Date)
	}
	s.publish(ctx, e)
	return after, nil
}

func (s *TransactionService) Delete(ctx context.Context, owner, id string) error {
	t, err := s.store.DeleteTransaction(ctx, owner, id)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "owner_id", owner)
	s.publish(ctx, events.FromTransactions(events.TransactionsDeleted, owner, []core.Transaction{t}))
	return nil
}

// PayInvoice marks every unpaid transaction billed on the card's invoice
// for p as paid and returns them. Paying an empty or already paid invoice
// is a no-op.
func (s *TransactionService) PayInvoice(ctx context.Context, owner, cardID string, p core.Period) ([]core.Transaction, error) {
	card, err := s.store.GetCard(ctx, owner, cardID)
	if err != nil {
		return nil, err
	}
	start, end, err := invoice.PeriodRange(p, card.ClosingDay)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, ports.TransactionFilter{
		OwnerID: owner,
		CardID:  card.ID,
		From:    start,
		To:      end,
	})
	if err != nil {
		return nil, fmt.Errorf("list invoice transactions: %w", err)
	}

	var ids []string
	for _, t := range txs {
		if !t.Paid {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	paid, err := s.SetPaid(ctx, owner, ids, true)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Invoice paid",
		"owner_id", owner,
		"card_id", card.ID,
		"period", p.String(),
		"transactions", len(paid))
	return paid, nil
}

// ResetOwner removes all of the owner's data.
func (s *TransactionService) ResetOwner(ctx context.Context, owner string) error {
	if strings.TrimSpace(owner) == "" {
		return core.ErrEmptyOwner
	}
	if err := s.store.ResetOwner(ctx, owner); err != nil {
		return fmt.Errorf("reset owner: %w", err)
	}
	slog.WarnContext(ctx, "Owner data reset", "owner_id", owner)
	s.publish(ctx, events.Event{Type: events.CardsChanged, OwnerID: owner})
	return nil
}

// card loads the referenced card, reporting an unknown card as a dangling
// reference.
func (s *TransactionService) card(ctx context.Context, owner, cardID, txID string) (core.Card, error) {
	card, err := s.store.GetCard(ctx, owner, cardID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Card{}, &invoice.DanglingReferenceError{TransactionID: txID, CardID: cardID}
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

func (s *TransactionService) publish(ctx context.Context, e events.Event) {
	if s.bus == nil {
		slog.DebugContext(ctx, "No event publisher, skipping event", "type", string(e.Type))
		return
	}
	s.bus.Publish(ctx, e)
}
