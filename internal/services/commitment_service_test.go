package services

import (
	"context"
	"errors"
	"testing"

	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/ports"
)

func TestCommitmentService_CRUD(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	rent, err := env.commitments.Create(ctx, core.Commitment{
		OwnerID:       "u1",
		Name:          " Rent ",
		ExpectedDay:   5,
		DefaultAmount: core.Money{Cents: 150000},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rent.ID == "" || rent.Name != "Rent" || rent.Kind != core.Expense {
		t.Errorf("Create() = %+v", rent)
	}

	power, err := env.commitments.Create(ctx, core.Commitment{
		OwnerID:       "u1",
		Name:          "Power",
		ExpectedDay:   31,
		Variable:      true,
		DefaultAmount: core.Money{Cents: 999},
	})
	if err != nil {
		t.Fatalf("Create(variable) error = %v", err)
	}
	if power.DefaultAmount.Cents != 0 {
		t.Errorf("variable commitment kept default amount %d", power.DefaultAmount.Cents)
	}

	tests := []struct {
		name string
		c    core.Commitment
		want error
	}{
		{"day zero", core.Commitment{OwnerID: "u1", Name: "x", ExpectedDay: 0, DefaultAmount: core.Money{Cents: 1}}, core.ErrInvalidDay},
		{"day 32", core.Commitment{OwnerID: "u1", Name: "x", ExpectedDay: 32, DefaultAmount: core.Money{Cents: 1}}, core.ErrInvalidDay},
		{"fixed without amount", core.Commitment{OwnerID: "u1", Name: "x", ExpectedDay: 1}, core.ErrInvalidAmount},
		{"blank name", core.Commitment{OwnerID: "u1", Name: " ", ExpectedDay: 1, DefaultAmount: core.Money{Cents: 1}}, core.ErrEmptyDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.commitments.Create(ctx, tt.c); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}

	rent.DefaultAmount = core.Money{Cents: 160000}
	rent.Kind = ""
	updated, err := env.commitments.Update(ctx, rent)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.DefaultAmount.Cents != 160000 || updated.Kind != core.Expense || updated.CreatedAt.IsZero() {
		t.Errorf("Update() = %+v", updated)
	}

	list, err := env.commitments.List(ctx, "u1")
	if err != nil || len(list) != 2 || list[0].ID != rent.ID {
		t.Fatalf("List() = %+v, %v", list, err)
	}

	if err := env.commitments.Delete(ctx, "u1", power.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := env.commitments.Delete(ctx, "u1", power.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
	if _, err := env.commitments.Update(ctx, power); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update(deleted) error = %v", err)
	}
}

func TestCommitmentService_GenerateMonth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	feb := core.NewPeriod(2024, 2)

	for _, c := range []core.Commitment{
		{OwnerID: "u1", Name: "Rent", ExpectedDay: 5, DefaultAmount: core.Money{Cents: 150000}},
		{OwnerID: "u1", Name: "Power", ExpectedDay: 31, Variable: true},
		{OwnerID: "u1", Name: "Salary", ExpectedDay: 30, Kind: core.Income, DefaultAmount: core.Money{Cents: 500000}},
		{OwnerID: "u2", Name: "Gym", ExpectedDay: 1, DefaultAmount: core.Money{Cents: 9000}},
	} {
		if _, err := env.commitments.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	txs, err := env.commitments.GenerateMonth(ctx, "u1", feb)
	if err != nil {
		t.Fatalf("GenerateMonth() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("GenerateMonth() = %d transactions, want 3", len(txs))
	}

	byName := make(map[string]core.Transaction)
	for _, tx := range txs {
		byName[tx.Description] = tx
	}
	power, ok := byName["Power 02/2024"]
	if !ok {
		t.Fatalf("missing Power 02/2024 in %v", byName)
	}
	if !power.AmountPending || power.Amount.Cents != 0 || power.Date != core.NewDate(2024, 2, 29) {
		t.Errorf("Power = %+v", power)
	}
	salary := byName["Salary 02/2024"]
	if salary.Kind != core.Income || salary.Date != core.NewDate(2024, 2, 29) {
		t.Errorf("Salary = %+v", salary)
	}
	if rent := byName["Rent 02/2024"]; rent.Amount.Cents != 150000 || rent.Paid {
		t.Errorf("Rent = %+v", rent)
	}

	if e := env.lastEvent(t); e.Type != events.TransactionsCreated || len(e.TransactionIDs) != 3 {
		t.Errorf("event = %+v", e)
	}

	again, err := env.commitments.GenerateMonth(ctx, "u1", feb)
	if err != nil || len(again) != 0 {
		t.Errorf("second GenerateMonth() = %d, %v", len(again), err)
	}

	none, err := env.commitments.GenerateMonth(ctx, "nobody", feb)
	if err != nil || len(none) != 0 {
		t.Errorf("GenerateMonth(no commitments) = %d, %v", len(none), err)
	}
}

func TestCommitmentService_GenerateMonthAfterDateEdit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	march, april := core.NewPeriod(2024, 3), core.NewPeriod(2024, 4)

	if _, err := env.commitments.Create(ctx, core.Commitment{
		OwnerID:       "u1",
		Name:          "Rent",
		ExpectedDay:   28,
		DefaultAmount: core.Money{Cents: 150000},
	}); err != nil {
		t.Fatal(err)
	}

	generated, err := env.commitments.GenerateMonth(ctx, "u1", march)
	if err != nil || len(generated) != 1 {
		t.Fatalf("GenerateMonth(march) = %d, %v", len(generated), err)
	}

	moved := core.NewDate(2024, 4, 2)
	updated, err := env.transactions.Update(ctx, "u1", generated[0].ID, ports.TransactionUpdate{Date: &moved})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.CommitmentPeriod != march {
		t.Errorf("CommitmentPeriod after edit = %v, want %v", updated.CommitmentPeriod, march)
	}

	again, err := env.commitments.GenerateMonth(ctx, "u1", march)
	if err != nil || len(again) != 0 {
		t.Errorf("GenerateMonth(march) after edit = %d, %v, want none", len(again), err)
	}
	next, err := env.commitments.GenerateMonth(ctx, "u1", april)
	if err != nil || len(next) != 1 {
		t.Fatalf("GenerateMonth(april) = %d, %v, want 1", len(next), err)
	}
	if next[0].Date != core.NewDate(2024, 4, 28) || next[0].CommitmentPeriod != april {
		t.Errorf("april occurrence = %+v", next[0])
	}
}
