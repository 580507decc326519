package services

import (
	"context"
	"sync"
	"testing"

	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/memory"
)

type testEnv struct {
	store        *memory.Store
	bus          *events.Bus
	cards        *CardService
	transactions *TransactionService
	commitments  *CommitmentService
	reports      *ReportService

	mu     sync.Mutex
	events []events.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: memory.New(),
		bus:   events.NewBus(),
	}
	env.cards = NewCardService(env.store, env.bus)
	env.transactions = NewTransactionService(env.store, env.bus)
	env.commitments = NewCommitmentService(env.store, env.bus)
	env.reports = NewReportService(env.store)
	unsubscribe := env.bus.Subscribe("recorder", func(_ context.Context, e events.Event) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.events = append(env.events, e)
		return nil
	})
	t.Cleanup(unsubscribe)
	return env
}

func (env *testEnv) recorded() []events.Event {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]events.Event(nil), env.events...)
}

func (env *testEnv) lastEvent(t *testing.T) events.Event {
	t.Helper()
	evs := env.recorded()
	if len(evs) == 0 {
		t.Fatal("no event published")
	}
	return evs[len(evs)-1]
}

func (env *testEnv) card(t *testing.T, owner, name string, closing, due int) core.Card {
	t.Helper()
	c, err := env.cards.Create(context.Background(), core.Card{
		OwnerID:    owner,
		Name:       name,
		Limit:      core.Money{Cents: 500000},
		ClosingDay: closing,
		DueDay:     due,
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	return c
}

func (env *testEnv) purchase(t *testing.T, owner, cardID, desc string, cents int64, date core.Date) core.Transaction {
	t.Helper()
	tx, err := env.transactions.Create(context.Background(), core.Transaction{
		OwnerID:     owner,
		CardID:      cardID,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Date:        date,
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	return tx
}
