package memory

import (
	"context"
	"errors"
	"testing"

	"carteira/internal/core"
	"carteira/internal/ports"
)

func TestExporterExportAndList(t *testing.T) {
	ctx := context.Background()
	e := New()

	march := core.NewPeriod(2024, 3)
	april := core.NewPeriod(2024, 4)
	err := e.ExportSnapshots(ctx, []ports.InvoiceSnapshot{
		{OwnerID: "u1", CardID: "c1", CardName: "Visa", Period: april, Status: "OPEN"},
		{OwnerID: "u1", CardID: "c2", CardName: "Amex", Period: april, Status: "EMPTY"},
		{OwnerID: "u2", CardID: "c3", CardName: "Visa", Period: march, Status: "OPEN"},
		{OwnerID: "u1", CardID: "c1", CardName: "Visa", Period: march, Status: "PAID"},
	})
	if err != nil {
		t.Fatalf("ExportSnapshots() error = %v", err)
	}
	if err := e.ExportSnapshots(ctx, []ports.InvoiceSnapshot{
		{OwnerID: "u1", CardID: "c1", CardName: "Visa", Period: april, Status: "PAID"},
	}); err != nil {
		t.Fatalf("ExportSnapshots() error = %v", err)
	}

	rows, err := e.ListExported(ctx, "u1")
	if err != nil || len(rows) != 4 {
		t.Fatalf("ListExported() = %d rows, err %v", len(rows), err)
	}

	latest := e.Latest("u1")
	if len(latest) != 3 {
		t.Fatalf("Latest() = %+v", latest)
	}
	want := []string{"2024-03 Visa PAID", "2024-04 Amex EMPTY", "2024-04 Visa PAID"}
	for i, r := range latest {
		if got := r.Period.String() + " " + r.CardName + " " + r.Status; got != want[i] {
			t.Errorf("Latest()[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestExporterFailWith(t *testing.T) {
	ctx := context.Background()
	e := New()
	boom := errors.New("quota exceeded")
	e.FailWith(boom)

	err := e.ExportSnapshots(ctx, []ports.InvoiceSnapshot{{OwnerID: "u1"}})
	if !errors.Is(err, boom) {
		t.Fatalf("ExportSnapshots() error = %v, want %v", err, boom)
	}

	e.FailWith(nil)
	if err := e.ExportSnapshots(ctx, []ports.InvoiceSnapshot{{OwnerID: "u1"}}); err != nil {
		t.Fatalf("ExportSnapshots() error = %v", err)
	}
	if rows, _ := e.ListExported(ctx, "u1"); len(rows) != 1 {
		t.Errorf("ListExported() = %d rows, want 1", len(rows))
	}
}
