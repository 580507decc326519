// Package porttest holds the behaviour every ports.Store must satisfy.
// Backends call Run from their own tests.
package porttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"carteira/internal/core"
	"carteira/internal/ports"
)

// Run exercises a fresh store returned by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("cards", func(t *testing.T) { testCards(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("atomic insert", func(t *testing.T) { testAtomicInsert(t, newStore(t)) })
	t.Run("update transaction", func(t *testing.T) { testUpdateTransaction(t, newStore(t)) })
	t.Run("commitments", func(t *testing.T) { testCommitments(t, newStore(t)) })
	t.Run("snapshots", func(t *testing.T) { testSnapshots(t, newStore(t)) })
	t.Run("reset owner", func(t *testing.T) { testResetOwner(t, newStore(t)) })
}

func card(id, owner, name string) core.Card {
	return core.Card{ID: id, OwnerID: owner, Name: name, Limit: core.Money{Cents: 500000}, ClosingDay: 10, DueDay: 17}
}

func expense(id, owner, card string, date core.Date, cents int64) core.Transaction {
	return core.Transaction{ID: id, OwnerID: owner, Description: "tx " + id, Amount: core.Money{Cents: cents}, Kind: core.Expense, Date: date, CardID: card}
}

func testCards(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if err := s.CreateCard(ctx, card("c2", "u1", "Visa")); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if err := s.CreateCard(ctx, card("c1", "u1", "Amex")); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if err := s.CreateCard(ctx, card("c3", "u2", "Other")); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	bad := card("c4", "u1", "Bad")
	bad.ClosingDay = 0
	if err := s.CreateCard(ctx, bad); !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}

	got, err := s.GetCard(ctx, "u1", "c2")
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.Name != "Visa" || got.ClosingDay != 10 || got.DueDay != 17 || got.Limit.Cents != 500000 || got.CreatedAt.IsZero() {
		t.Errorf("GetCard = %+v", got)
	}
	if _, err := s.GetCard(ctx, "u2", "c2"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other owner: expected ErrNotFound, got %v", err)
	}

	list, err := s.ListCards(ctx, "u1")
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Amex" || list[1].Name != "Visa" {
		t.Errorf("ListCards = %+v", list)
	}
	all, err := s.ListAllCards(ctx)
	if err != nil {
		t.Fatalf("ListAllCards: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListAllCards returned %d cards", len(all))
	}
}

func testTransactions(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if err := s.CreateCard(ctx, card("c1", "u1", "Visa")); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	txs := []core.Transaction{
		expense("t3", "u1", "c1", core.NewDate(2024, 3, 20), 300),
		expense("t1", "u1", "", core.NewDate(2024, 3, 1), 100),
		expense("t2", "u1", "c1", core.NewDate(2024, 3, 10), 200),
		expense("t4", "u2", "", core.NewDate(2024, 3, 10), 400),
	}
	pending := core.Transaction{ID: "t5", OwnerID: "u1", Description: "Luz 03/2024", Kind: core.Expense, Date: core.NewDate(2024, 3, 31), CommitmentID: "k1", CommitmentPeriod: core.NewPeriod(2024, 3), AmountPending: true}
	txs = append(txs, pending)
	if err := s.InsertTransactions(ctx, txs); err != nil {
		t.Fatalf("InsertTransactions: %v", err)
	}

	got, err := s.GetTransaction(ctx, "u1", "t5")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !got.AmountPending || got.CommitmentID != "k1" || got.CommitmentPeriod != core.NewPeriod(2024, 3) || got.Date.String() != "2024-03-31" {
		t.Errorf("GetTransaction = %+v", got)
	}
	if _, err := s.GetTransaction(ctx, "u2", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	tests := []struct {
		name   string
		filter ports.TransactionFilter
		want   []string
	}{
		{"owner", ports.TransactionFilter{OwnerID: "u1"}, []string{"t1", "t2", "t3", "t5"}},
		{"range", ports.TransactionFilter{OwnerID: "u1", From: core.NewDate(2024, 3, 10), To: core.NewDate(2024, 3, 20)}, []string{"t2", "t3"}},
		{"card", ports.TransactionFilter{OwnerID: "u1", CardID: "c1"}, []string{"t2", "t3"}},
		{"card only", ports.TransactionFilter{OwnerID: "u1", CardOnly: true}, []string{"t2", "t3"}},
		{"cash only", ports.TransactionFilter{OwnerID: "u1", NonCardOnly: true}, []string{"t1", "t5"}},
		{"commitment period", ports.TransactionFilter{OwnerID: "u1", CommitmentPeriod: core.NewPeriod(2024, 3)}, []string{"t5"}},
		{"other commitment period", ports.TransactionFilter{OwnerID: "u1", CommitmentPeriod: core.NewPeriod(2024, 4)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			if !sameIDs(list, tt.want) {
				t.Errorf("ListTransactions = %v, want %v", ids(list), tt.want)
			}
		})
	}

	n, err := s.SetPaid(ctx, "u1", []string{"t2", "t3", "t4", "missing"}, true)
	if err != nil {
		t.Fatalf("SetPaid: %v", err)
	}
	if n != 2 {
		t.Errorf("SetPaid updated %d, want 2", n)
	}
	if got, _ := s.GetTransaction(ctx, "u1", "t2"); !got.Paid {
		t.Error("t2 not paid")
	}
	if got, _ := s.GetTransaction(ctx, "u2", "t4"); got.Paid {
		t.Error("t4 of another owner was paid")
	}
	if _, err := s.SetPaid(ctx, "u1", []string{"t2"}, false); err != nil {
		t.Fatalf("SetPaid: %v", err)
	}
	if got, _ := s.GetTransaction(ctx, "u1", "t2"); got.Paid {
		t.Error("t2 still paid")
	}

	deleted, err := s.DeleteTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if deleted.ID != "t1" {
		t.Errorf("deleted = %+v", deleted)
	}
	if _, err := s.DeleteTransaction(ctx, "u1", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func testAtomicInsert(t *testing.T, s ports.Store) {
	ctx := context.Background()
	txs := []core.Transaction{
		expense("a", "u1", "", core.NewDate(2024, 3, 1), 100),
		expense("b", "u1", "ghost", core.NewDate(2024, 3, 1), 100),
	}
	if err := s.InsertTransactions(ctx, txs); !errors.Is(err, core.ErrDanglingReference) {
		t.Fatalf("expected ErrDanglingReference, got %v", err)
	}
	list, _ := s.ListTransactions(ctx, ports.TransactionFilter{OwnerID: "u1"})
	if len(list) != 0 {
		t.Fatalf("partial insert left %d transactions", len(list))
	}

	invalid := expense("c", "u1", "", core.NewDate(2024, 3, 1), 0)
	if err := s.InsertTransactions(ctx, []core.Transaction{invalid}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func testUpdateTransaction(t *testing.T, s ports.Store) {
	ctx := context.Background()
	pending := core.Transaction{ID: "p", OwnerID: "u1", Description: "Agua", Kind: core.Expense, Date: core.NewDate(2024, 3, 5), CommitmentID: "k", AmountPending: true}
	if err := s.InsertTransactions(ctx, []core.Transaction{pending}); err != nil {
		t.Fatalf("InsertTransactions: %v", err)
	}

	amount := core.Money{Cents: 8950}
	desc := "Agua 03/2024"
	got, err := s.UpdateTransaction(ctx, "u1", "p", ports.TransactionUpdate{Amount: &amount, Description: &desc})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if got.AmountPending || got.Amount.Cents != 8950 || got.Description != desc {
		t.Errorf("UpdateTransaction = %+v", got)
	}
	stored, _ := s.GetTransaction(ctx, "u1", "p")
	if stored.AmountPending || stored.Amount.Cents != 8950 {
		t.Errorf("stored = %+v", stored)
	}

	zero := core.Money{}
	if _, err := s.UpdateTransaction(ctx, "u1", "p", ports.TransactionUpdate{Amount: &zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, "u2", "p", ports.TransactionUpdate{Amount: &amount}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testCommitments(t *testing.T, s ports.Store) {
	ctx := context.Background()
	rent := core.Commitment{ID: "k1", OwnerID: "u1", Name: "Aluguel", ExpectedDay: 5, DefaultAmount: core.Money{Cents: 150000}, Kind: core.Expense}
	power := core.Commitment{ID: "k2", OwnerID: "u1", Name: "Luz", ExpectedDay: 2, Variable: true, Kind: core.Expense}
	other := core.Commitment{ID: "k3", OwnerID: "u2", Name: "Net", ExpectedDay: 9, DefaultAmount: core.Money{Cents: 100}, Kind: core.Expense}
	for _, c := range []core.Commitment{rent, power, other} {
		if err := s.CreateCommitment(ctx, c); err != nil {
			t.Fatalf("CreateCommitment(%s): %v", c.ID, err)
		}
	}

	list, err := s.ListCommitments(ctx, "u1")
	if err != nil {
		t.Fatalf("ListCommitments: %v", err)
	}
	if len(list) != 2 || list[0].ID != "k2" || list[1].ID != "k1" {
		t.Errorf("ListCommitments = %+v", list)
	}
	if !list[0].Variable || list[1].DefaultAmount.Cents != 150000 {
		t.Errorf("fields lost: %+v", list)
	}

	rent.DefaultAmount = core.Money{Cents: 160000}
	rent.ExpectedDay = 31
	if err := s.UpdateCommitment(ctx, rent); err != nil {
		t.Fatalf("UpdateCommitment: %v", err)
	}
	got, err := s.GetCommitment(ctx, "u1", "k1")
	if err != nil {
		t.Fatalf("GetCommitment: %v", err)
	}
	if got.DefaultAmount.Cents != 160000 || got.ExpectedDay != 31 {
		t.Errorf("GetCommitment = %+v", got)
	}

	stolen := other
	stolen.OwnerID = "u1"
	if err := s.UpdateCommitment(ctx, stolen); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("update of another owner's commitment: expected ErrNotFound, got %v", err)
	}

	owners, err := s.ListCommitmentOwners(ctx)
	if err != nil {
		t.Fatalf("ListCommitmentOwners: %v", err)
	}
	if len(owners) != 2 || owners[0] != "u1" || owners[1] != "u2" {
		t.Errorf("owners = %v", owners)
	}

	if err := s.DeleteCommitment(ctx, "u1", "k2"); err != nil {
		t.Fatalf("DeleteCommitment: %v", err)
	}
	if err := s.DeleteCommitment(ctx, "u1", "k2"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testSnapshots(t *testing.T, s ports.Store) {
	ctx := context.Background()
	april := core.Period{Year: 2024, Month: time.April}
	at := time.Date(2024, 4, 11, 8, 0, 0, 0, time.UTC)

	snap := ports.InvoiceSnapshot{OwnerID: "u1", CardID: "c1", CardName: "Visa", Period: april, Total: core.Money{Cents: 500}, Outstanding: core.Money{Cents: 500}, Status: "OPEN", Count: 2, ComputedAt: at}
	if err := s.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("UpsertSnapshot: %v", err)
	}
	snap.Status = "PAID"
	snap.Outstanding = core.Money{}
	if err := s.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("UpsertSnapshot: %v", err)
	}

	list, err := s.ListSnapshots(ctx, "u1", april)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 1 || list[0].Status != "PAID" || list[0].Total.Cents != 500 || list[0].Count != 2 || !list[0].ComputedAt.Equal(at) {
		t.Errorf("ListSnapshots = %+v", list)
	}
	if other, _ := s.ListSnapshots(ctx, "u1", april.Next()); len(other) != 0 {
		t.Errorf("unexpected snapshots for another period: %+v", other)
	}
}

func testResetOwner(t *testing.T, s ports.Store) {
	ctx := context.Background()
	_ = s.CreateCard(ctx, card("c1", "u1", "Visa"))
	_ = s.CreateCard(ctx, card("c2", "u2", "Visa"))
	_ = s.InsertTransactions(ctx, []core.Transaction{
		expense("t1", "u1", "c1", core.NewDate(2024, 3, 1), 100),
		expense("t2", "u2", "c2", core.NewDate(2024, 3, 1), 100),
	})
	_ = s.CreateCommitment(ctx, core.Commitment{ID: "k1", OwnerID: "u1", Name: "Rent", ExpectedDay: 1, DefaultAmount: core.Money{Cents: 1}, Kind: core.Expense})

	if err := s.ResetOwner(ctx, "u1"); err != nil {
		t.Fatalf("ResetOwner: %v", err)
	}

	if cards, _ := s.ListCards(ctx, "u1"); len(cards) != 0 {
		t.Errorf("cards left: %+v", cards)
	}
	if txs, _ := s.ListTransactions(ctx, ports.TransactionFilter{OwnerID: "u1"}); len(txs) != 0 {
		t.Errorf("transactions left: %+v", txs)
	}
	if cs, _ := s.ListCommitments(ctx, "u1"); len(cs) != 0 {
		t.Errorf("commitments left: %+v", cs)
	}
	if txs, _ := s.ListTransactions(ctx, ports.TransactionFilter{OwnerID: "u2"}); len(txs) != 1 {
		t.Errorf("other owner lost data: %+v", txs)
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func sameIDs(txs []core.Transaction, want []string) bool {
	got := ids(txs)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
