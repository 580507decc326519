package services

import (
	"context"
	"errors"
	"testing"

	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/invoice"
	"carteira/internal/planning"
	"carteira/internal/ports"
)

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("one-off defaults to expense", func(t *testing.T) {
		env := newTestEnv(t)
		tx, err := env.transactions.Create(ctx, core.Transaction{
			OwnerID:     "u1",
			Description: "  Groceries ",
			Amount:      core.Money{Cents: 4590},
			Date:        core.NewDate(2024, 3, 2),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if tx.ID == "" || tx.Kind != core.Expense || tx.Description != "Groceries" {
			t.Errorf("Create() = %+v", tx)
		}

		stored, err := env.store.GetTransaction(ctx, "u1", tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction() error = %v", err)
		}
		if stored.Amount.Cents != 4590 {
			t.Errorf("stored amount = %d", stored.Amount.Cents)
		}

		e := env.lastEvent(t)
		if e.Type != events.TransactionsCreated || e.OwnerID != "u1" || len(e.TransactionIDs) != 1 {
			t.Errorf("event = %+v", e)
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		env := newTestEnv(t)
		tests := []struct {
			name string
			tx   core.Transaction
			want error
		}{
			{"empty description", core.Transaction{OwnerID: "u1", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}, core.ErrEmptyDescription},
			{"zero amount", core.Transaction{OwnerID: "u1", Description: "x", Date: core.NewDate(2024, 1, 1)}, core.ErrInvalidAmount},
			{"no owner", core.Transaction{Description: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}, core.ErrEmptyOwner},
			{"bad kind", core.Transaction{OwnerID: "u1", Description: "x", Kind: "gift", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)}, core.ErrInvalidKind},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := env.transactions.Create(ctx, tt.tx); !errors.Is(err, tt.want) {
					t.Errorf("Create() error = %v, want %v", err, tt.want)
				}
			})
		}
		if n := len(env.recorded()); n != 0 {
			t.Errorf("published %d events for rejected transactions", n)
		}
	})

	t.Run("unknown card is a dangling reference", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.transactions.Create(ctx, core.Transaction{
			OwnerID:     "u1",
			CardID:      "missing",
			Description: "TV",
			Amount:      core.Money{Cents: 100},
			Date:        core.NewDate(2024, 3, 2),
		})
		var dangling *invoice.DanglingReferenceError
		if !errors.As(err, &dangling) || dangling.CardID != "missing" {
			t.Fatalf("Create() error = %v, want DanglingReferenceError", err)
		}
		if !errors.Is(err, core.ErrDanglingReference) {
			t.Error("error should match ErrDanglingReference")
		}
	})

	t.Run("card of another owner is a dangling reference", func(t *testing.T) {
		env := newTestEnv(t)
		other := env.card(t, "u2", "Visa", 10, 20)
		_, err := env.transactions.Create(ctx, core.Transaction{
			OwnerID:     "u1",
			CardID:      other.ID,
			Description: "TV",
			Amount:      core.Money{Cents: 100},
			Date:        core.NewDate(2024, 3, 2),
		})
		if !errors.Is(err, core.ErrDanglingReference) {
			t.Fatalf("Create() error = %v", err)
		}
	})
}

func TestTransactionService_CreateCardPurchase(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "u1", "Visa", 10, 20)

	txs, err := env.transactions.CreateCardPurchase(ctx, planning.Purchase{
		OwnerID:           "u1",
		CardID:            card.ID,
		Description:       "Laptop",
		InstallmentAmount: core.Money{Cents: 10000},
		Installments:      3,
		Date:              core.NewDate(2024, 3, 15),
	})
	if err != nil {
		t.Fatalf("CreateCardPurchase() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("CreateCardPurchase() = %d transactions, want 3", len(txs))
	}

	stored, err := env.store.ListTransactions(ctx, ports.TransactionFilter{OwnerID: "u1", CardID: card.ID})
	if err != nil || len(stored) != 3 {
		t.Fatalf("stored = %d, err %v", len(stored), err)
	}

	e := env.lastEvent(t)
	if len(e.TransactionIDs) != 3 || !e.Touches(card.ID) {
		t.Errorf("event = %+v", e)
	}

	_, err = env.transactions.CreateCardPurchase(ctx, planning.Purchase{
		OwnerID:           "u1",
		CardID:            "missing",
		Description:       "Laptop",
		InstallmentAmount: core.Money{Cents: 10000},
		Installments:      3,
		Date:              core.NewDate(2024, 3, 15),
	})
	if !errors.Is(err, core.ErrDanglingReference) {
		t.Errorf("CreateCardPurchase(unknown card) error = %v", err)
	}
}

func TestTransactionService_SetPaid(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "u1", "Visa", 10, 20)
	tx := env.purchase(t, "u1", card.ID, "Shoes", 1500, core.NewDate(2024, 3, 5))

	paid, err := env.transactions.SetPaid(ctx, "u1", []string{tx.ID}, true)
	if err != nil || len(paid) != 1 || !paid[0].Paid {
		t.Fatalf("SetPaid(true) = %+v, %v", paid, err)
	}
	if e := env.lastEvent(t); e.Type != events.TransactionsPaid {
		t.Errorf("event type = %s", e.Type)
	}

	if _, err := env.transactions.SetPaid(ctx, "u1", []string{tx.ID}, false); err != nil {
		t.Fatalf("SetPaid(false) error = %v", err)
	}
	if e := env.lastEvent(t); e.Type != events.TransactionsUnpaid {
		t.Errorf("event type = %s", e.Type)
	}
	stored, _ := env.store.GetTransaction(ctx, "u1", tx.ID)
	if stored.Paid {
		t.Error("transaction should be unpaid")
	}

	if _, err := env.transactions.SetPaid(ctx, "u1", []string{tx.ID, "missing"}, true); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetPaid(missing) error = %v", err)
	}
	stored, _ = env.store.GetTransaction(ctx, "u1", tx.ID)
	if stored.Paid {
		t.Error("a failed SetPaid must not change anything")
	}

	if _, err := env.transactions.SetPaid(ctx, "u2", []string{tx.ID}, true); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetPaid(other owner) error = %v", err)
	}
}

func TestTransactionService_PayInvoice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "u1", "Visa", 10, 20)

	march := env.purchase(t, "u1", card.ID, "Before closing", 1000, core.NewDate(2024, 3, 10))
	april1 := env.purchase(t, "u1", card.ID, "After closing", 2000, core.NewDate(2024, 3, 11))
	april2 := env.purchase(t, "u1", card.ID, "On closing", 3000, core.NewDate(2024, 4, 10))
	cash, err := env.transactions.Create(ctx, core.Transaction{
		OwnerID: "u1", Description: "Cash", Amount: core.Money{Cents: 50}, Date: core.NewDate(2024, 3, 20),
	})
	if err != nil {
		t.Fatal(err)
	}

	paid, err := env.transactions.PayInvoice(ctx, "u1", card.ID, core.NewPeriod(2024, 4))
	if err != nil {
		t.Fatalf("PayInvoice() error = %v", err)
	}
	if len(paid) != 2 {
		t.Fatalf("PayInvoice() paid %d, want 2", len(paid))
	}

	for _, tc := range []struct {
		id   string
		paid bool
	}{
		{march.ID, false},
		{april1.ID, true},
		{april2.ID, true},
		{cash.ID, false},
	} {
		got, _ := env.store.GetTransaction(ctx, "u1", tc.id)
		if got.Paid != tc.paid {
			t.Errorf("transaction %q paid = %v, want %v", got.Description, got.Paid, tc.paid)
		}
	}

	again, err := env.transactions.PayInvoice(ctx, "u1", card.ID, core.NewPeriod(2024, 4))
	if err != nil || len(again) != 0 {
		t.Errorf("second PayInvoice() = %d, %v", len(again), err)
	}

	if _, err := env.transactions.PayInvoice(ctx, "u1", "missing", core.NewPeriod(2024, 4)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("PayInvoice(missing card) error = %v", err)
	}
}

func TestTransactionService_Update(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.commitments.Create(ctx, core.Commitment{OwnerID: "u1", Name: "Power", ExpectedDay: 8, Variable: true})
	if err != nil {
		t.Fatal(err)
	}
	txs, err := env.commitments.GenerateMonth(ctx, "u1", core.NewPeriod(2024, 3))
	if err != nil || len(txs) != 1 || !txs[0].AmountPending {
		t.Fatalf("GenerateMonth() = %+v, %v", txs, err)
	}

	amount := core.Money{Cents: 12345}
	date := core.NewDate(2024, 3, 9)
	updated, err := env.transactions.Update(ctx, "u1", txs[0].ID, ports.TransactionUpdate{Amount: &amount, Date: &date})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.AmountPending || updated.Amount != amount || !updated.Date.Equal(date.Time) {
		t.Errorf("Update() = %+v", updated)
	}

	e := env.lastEvent(t)
	if e.Type != events.TransactionsUpdated || len(e.Dates) != 2 {
		t.Errorf("event = %+v, want both dates", e)
	}

	blank := "  "
	if _, err := env.transactions.Update(ctx, "u1", txs[0].ID, ports.TransactionUpdate{Description: &blank}); !errors.Is(err, core.ErrEmptyDescription) {
		t.Errorf("Update(blank description) error = %v", err)
	}
	zero := core.Money{}
	if _, err := env.transactions.Update(ctx, "u1", txs[0].ID, ports.TransactionUpdate{Amount: &zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("Update(zero amount) error = %v", err)
	}
	if _, err := env.transactions.Update(ctx, "u1", "missing", ports.TransactionUpdate{Amount: &amount}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update(missing) error = %v", err)
	}
}

func TestTransactionService_DeleteAndReset(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "u1", "Visa", 10, 20)
	tx := env.purchase(t, "u1", card.ID, "Shoes", 1500, core.NewDate(2024, 3, 5))

	if err := env.transactions.Delete(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if e := env.lastEvent(t); e.Type != events.TransactionsDeleted || !e.Touches(card.ID) {
		t.Errorf("event = %+v", e)
	}
	if err := env.transactions.Delete(ctx, "u1", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}

	env.purchase(t, "u1", card.ID, "Hat", 500, core.NewDate(2024, 3, 6))
	if err := env.transactions.ResetOwner(ctx, "u1"); err != nil {
		t.Fatalf("ResetOwner() error = %v", err)
	}
	cards, _ := env.store.ListCards(ctx, "u1")
	txs, _ := env.store.ListTransactions(ctx, ports.TransactionFilter{OwnerID: "u1"})
	if len(cards) != 0 || len(txs) != 0 {
		t.Errorf("after reset: %d cards, %d transactions", len(cards), len(txs))
	}
	if e := env.lastEvent(t); e.Type != events.CardsChanged || e.OwnerID != "u1" {
		t.Errorf("event = %+v", e)
	}
	if err := env.transactions.ResetOwner(ctx, " "); !errors.Is(err, core.ErrEmptyOwner) {
		t.Errorf("ResetOwner(blank) error = %v", err)
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	env := newTestEnv(t)
	s := NewTransactionService(env.store, nil)
	_, err := s.Create(context.Background(), core.Transaction{
		OwnerID: "u1", Description: "x", Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("Create() without publisher error = %v", err)
	}
}
