package services

import (
	"context"
	"testing"
	"time"

	"carteira/internal/core"
	"carteira/internal/ports"
)

func TestCommitmentProcessor_ProcessMonth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, c := range []core.Commitment{
		{OwnerID: "u1", Name: "Rent", ExpectedDay: 5, DefaultAmount: core.Money{Cents: 1000}},
		{OwnerID: "u1", Name: "Power", ExpectedDay: 10, Variable: true},
		{OwnerID: "u2", Name: "Gym", ExpectedDay: 1, DefaultAmount: core.Money{Cents: 900}},
	} {
		if _, err := env.commitments.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	p := NewCommitmentProcessor(env.store, env.commitments)
	created, err := p.ProcessMonth(ctx, core.NewPeriod(2024, 5))
	if err != nil {
		t.Fatalf("ProcessMonth() error = %v", err)
	}
	if created != 3 {
		t.Errorf("ProcessMonth() = %d, want 3", created)
	}

	created, err = p.ProcessDue(ctx, time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC))
	if err != nil || created != 0 {
		t.Errorf("ProcessDue() in the same month = %d, %v", created, err)
	}

	created, err = p.ProcessDue(ctx, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	if err != nil || created != 3 {
		t.Errorf("ProcessDue() next month = %d, %v", created, err)
	}
}

func TestCommitmentProcessor_NotInitialized(t *testing.T) {
	p := NewCommitmentProcessor(nil, nil)
	if _, err := p.ProcessMonth(context.Background(), core.NewPeriod(2024, 1)); err == nil {
		t.Error("expected error from uninitialized processor")
	}
}

func TestCommitmentProcessor_StartStop(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	if _, err := env.commitments.Create(ctx, core.Commitment{
		OwnerID: "u1", Name: "Rent", ExpectedDay: 5, DefaultAmount: core.Money{Cents: 1000},
	}); err != nil {
		t.Fatal(err)
	}

	p := NewCommitmentProcessor(env.store, env.commitments)
	p.now = func() time.Time { return time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC) }

	if p.IsRunning() {
		t.Error("processor should not be running initially")
	}
	if err := p.Start(ctx, time.Hour); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(ctx, time.Hour); err == nil {
		t.Error("expected error when starting already running processor")
	}
	if !p.IsRunning() {
		t.Error("processor should be running")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	// the first tick runs before the loop waits
	txs, _ := env.store.ListTransactions(ctx, ports.TransactionFilter{OwnerID: "u1"})
	if len(txs) != 1 || txs[0].Date != core.NewDate(2024, 7, 5) {
		t.Errorf("generated = %+v", txs)
	}

	if err := p.Start(ctx, 0); err == nil {
		t.Error("expected error for a zero interval")
	}
}
