package storage

import (
	"context"
	"path/filepath"
	"testing"

	"carteira/internal/core"
	"carteira/internal/ports"
	"carteira/internal/ports/porttest"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "carteira.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	porttest.Run(t, func(t *testing.T) ports.Store { return newTestRepo(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carteira.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("version = %d dirty = %v, want 2 clean", version, dirty)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carteira.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	card := core.Card{ID: "c1", OwnerID: "u1", Name: "Visa", ClosingDay: 31, DueDay: 7}
	if err := repo.CreateCard(ctx, card); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	tx := core.Transaction{ID: "t1", OwnerID: "u1", Description: "Mercado", Amount: core.Money{Cents: 12345}, Kind: core.Expense, Date: core.NewDate(2024, 2, 29), CardID: "c1"}
	if err := repo.InsertTransactions(ctx, []core.Transaction{tx}); err != nil {
		t.Fatalf("InsertTransactions: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	got, err := repo.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Date.String() != "2024-02-29" || got.Amount.Cents != 12345 || got.CardID != "c1" || got.CreatedAt.IsZero() {
		t.Errorf("GetTransaction = %+v", got)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
