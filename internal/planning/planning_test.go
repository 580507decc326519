package planning

import (
	"errors"
	"testing"
	"time"

	"carteira/internal/core"
	"carteira/internal/invoice"
)

func TestInstallments(t *testing.T) {
	card := core.Card{ID: "card-1", OwnerID: "u1", Name: "Nubank", ClosingDay: 10, DueDay: 17}
	p := Purchase{
		OwnerID:           "u1",
		CardID:            "card-1",
		Description:       "Notebook",
		InstallmentAmount: core.Money{Cents: 25000},
		Installments:      3,
		Date:              core.NewDate(2024, 3, 15),
	}

	txs, err := Installments(card, p)
	if err != nil {
		t.Fatalf("Installments() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d installments, want 3", len(txs))
	}

	wantDates := []string{"2024-03-15", "2024-04-11", "2024-05-11"}
	wantNames := []string{"Notebook (1/3)", "Notebook (2/3)", "Notebook (3/3)"}
	wantPeriods := []string{"2024-04", "2024-05", "2024-06"}
	ids := make(map[string]bool)
	for i, tx := range txs {
		if tx.Date.String() != wantDates[i] {
			t.Errorf("installment %d date = %s, want %s", i+1, tx.Date, wantDates[i])
		}
		if tx.Description != wantNames[i] {
			t.Errorf("installment %d name = %q, want %q", i+1, tx.Description, wantNames[i])
		}
		if tx.Amount.Cents != 25000 || tx.Kind != core.Expense || tx.CardID != "card-1" || tx.Paid {
			t.Errorf("installment %d unexpected fields: %+v", i+1, tx)
		}
		got, _ := invoice.CardPeriod(card, tx.Date)
		if got.String() != wantPeriods[i] {
			t.Errorf("installment %d billed in %s, want %s", i+1, got, wantPeriods[i])
		}
		if tx.ID == "" || ids[tx.ID] {
			t.Errorf("installment %d has empty or duplicate id %q", i+1, tx.ID)
		}
		ids[tx.ID] = true
	}
}

func TestInstallments_ClampedClosingDay(t *testing.T) {
	card := core.Card{ID: "c", OwnerID: "u1", Name: "X", ClosingDay: 31, DueDay: 8}
	p := Purchase{OwnerID: "u1", CardID: "c", Description: "TV", InstallmentAmount: core.Money{Cents: 100}, Installments: 3, Date: core.NewDate(2024, 1, 31)}

	txs, err := Installments(card, p)
	if err != nil {
		t.Fatalf("Installments() error = %v", err)
	}
	want := []string{"2024-01-31", "2024-02-01", "2024-03-01"}
	for i, tx := range txs {
		if tx.Date.String() != want[i] {
			t.Errorf("installment %d date = %s, want %s", i+1, tx.Date, want[i])
		}
	}
}

func TestInstallments_Single(t *testing.T) {
	card := core.Card{ID: "c", OwnerID: "u1", Name: "X", ClosingDay: 5, DueDay: 12}
	p := Purchase{OwnerID: "u1", CardID: "c", Description: "Coffee", InstallmentAmount: core.Money{Cents: 900}, Installments: 1, Date: core.NewDate(2024, 6, 1)}

	txs, err := Installments(card, p)
	if err != nil {
		t.Fatalf("Installments() error = %v", err)
	}
	if len(txs) != 1 || txs[0].Description != "Coffee" {
		t.Fatalf("unexpected result: %+v", txs)
	}
}

func TestInstallments_Errors(t *testing.T) {
	card := core.Card{ID: "c", OwnerID: "u1", Name: "X", ClosingDay: 5, DueDay: 12}
	base := Purchase{OwnerID: "u1", CardID: "c", Description: "Thing", InstallmentAmount: core.Money{Cents: 100}, Installments: 2, Date: core.NewDate(2024, 6, 1)}

	tests := []struct {
		name   string
		mutate func(*Purchase)
		target error
	}{
		{"zero amount", func(p *Purchase) { p.InstallmentAmount = core.Money{} }, core.ErrInvalidAmount},
		{"empty description", func(p *Purchase) { p.Description = " " }, core.ErrEmptyDescription},
		{"empty owner", func(p *Purchase) { p.OwnerID = "" }, core.ErrEmptyOwner},
		{"other card", func(p *Purchase) { p.CardID = "other" }, core.ErrDanglingReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if _, err := Installments(card, p); !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}

	p := base
	p.Installments = 0
	if _, err := Installments(card, p); err == nil {
		t.Error("expected error for zero installments")
	}

	bad := card
	bad.ClosingDay = 40
	if _, err := Installments(bad, base); !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestGenerateMonth(t *testing.T) {
	april := core.Period{Year: 2024, Month: time.April}
	commitments := []core.Commitment{
		{ID: "rent", OwnerID: "u1", Name: "Aluguel", ExpectedDay: 5, DefaultAmount: core.Money{Cents: 150000}, Kind: core.Expense},
		{ID: "power", OwnerID: "u1", Name: "Luz", ExpectedDay: 31, Variable: true, Kind: core.Expense},
		{ID: "salary", OwnerID: "u1", Name: "Salario", ExpectedDay: 30, DefaultAmount: core.Money{Cents: 500000}, Kind: core.Income},
		{ID: "foreign", OwnerID: "u2", Name: "Other", ExpectedDay: 1, DefaultAmount: core.Money{Cents: 1}},
	}

	txs, err := GenerateMonth(commitments, nil, april, "u1")
	if err != nil {
		t.Fatalf("GenerateMonth() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}

	tests := []struct {
		desc    string
		date    string
		cents   int64
		pending bool
		kind    core.Kind
	}{
		{"Aluguel 04/2024", "2024-04-05", 150000, false, core.Expense},
		{"Luz 04/2024", "2024-04-30", 0, true, core.Expense},
		{"Salario 04/2024", "2024-04-30", 500000, false, core.Income},
	}
	for i, tt := range tests {
		tx := txs[i]
		if tx.Description != tt.desc || tx.Date.String() != tt.date || tx.Amount.Cents != tt.cents ||
			tx.AmountPending != tt.pending || tx.Kind != tt.kind || tx.Paid || tx.OwnerID != "u1" {
			t.Errorf("transaction %d = %+v, want %+v", i, tx, tt)
		}
		if err := tx.Validate(); err != nil {
			t.Errorf("transaction %d invalid: %v", i, err)
		}
	}
}

func TestGenerateMonth_Idempotent(t *testing.T) {
	may := core.Period{Year: 2024, Month: time.May}
	commitments := []core.Commitment{
		{ID: "rent", OwnerID: "u1", Name: "Aluguel", ExpectedDay: 5, DefaultAmount: core.Money{Cents: 100}, Kind: core.Expense},
		{ID: "gym", OwnerID: "u1", Name: "Academia", ExpectedDay: 10, DefaultAmount: core.Money{Cents: 100}, Kind: core.Expense},
	}

	first, err := GenerateMonth(commitments, nil, may, "u1")
	if err != nil {
		t.Fatalf("GenerateMonth() error = %v", err)
	}
	second, err := GenerateMonth(commitments, first, may, "u1")
	if err != nil {
		t.Fatalf("GenerateMonth() error = %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second run generated %d transactions", len(second))
	}

	// An occurrence generated for another month does not count.
	previous := first[0]
	previous.Date = core.NewDate(2024, 4, 5)
	previous.CommitmentPeriod = core.Period{Year: 2024, Month: time.April}
	again, _ := GenerateMonth(commitments, []core.Transaction{previous}, may, "u1")
	if len(again) != 2 {
		t.Fatalf("got %d transactions, want 2", len(again))
	}
}

func TestGenerateMonth_MovedOccurrence(t *testing.T) {
	march := core.Period{Year: 2024, Month: time.March}
	april := core.Period{Year: 2024, Month: time.April}
	rent := []core.Commitment{
		{ID: "rent", OwnerID: "u1", Name: "Aluguel", ExpectedDay: 28, DefaultAmount: core.Money{Cents: 100}, Kind: core.Expense},
	}

	generated, err := GenerateMonth(rent, nil, march, "u1")
	if err != nil || len(generated) != 1 {
		t.Fatalf("GenerateMonth(march) = %d, %v", len(generated), err)
	}
	if generated[0].CommitmentPeriod != march {
		t.Errorf("CommitmentPeriod = %v, want %v", generated[0].CommitmentPeriod, march)
	}

	moved := generated[0]
	moved.Date = core.NewDate(2024, 4, 2)

	tests := []struct {
		name   string
		period core.Period
		want   int
	}{
		{"original month", march, 0},
		{"destination month", april, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := GenerateMonth(rent, []core.Transaction{moved}, tt.period, "u1")
			if err != nil {
				t.Fatalf("GenerateMonth() error = %v", err)
			}
			if len(txs) != tt.want {
				t.Errorf("GenerateMonth(%v) = %d transactions, want %d", tt.period, len(txs), tt.want)
			}
		})
	}
}

func TestOccurrencePeriod(t *testing.T) {
	legacy := core.Transaction{CommitmentID: "rent", Date: core.NewDate(2024, 3, 28)}
	if got := OccurrencePeriod(legacy); got != core.NewPeriod(2024, 3) {
		t.Errorf("OccurrencePeriod(legacy) = %v", got)
	}
	legacy.CommitmentPeriod = core.NewPeriod(2024, 2)
	if got := OccurrencePeriod(legacy); got != core.NewPeriod(2024, 2) {
		t.Errorf("OccurrencePeriod() = %v", got)
	}
}

func TestGenerateMonth_DefaultKind(t *testing.T) {
	c := []core.Commitment{{ID: "x", OwnerID: "u1", Name: "Net", ExpectedDay: 2, DefaultAmount: core.Money{Cents: 100}}}
	txs, err := GenerateMonth(c, nil, core.Period{Year: 2024, Month: time.June}, "u1")
	if err != nil {
		t.Fatalf("GenerateMonth() error = %v", err)
	}
	if txs[0].Kind != core.Expense {
		t.Errorf("kind = %s, want expense", txs[0].Kind)
	}
}

func TestGenerateMonth_Errors(t *testing.T) {
	if _, err := GenerateMonth(nil, nil, core.Period{Year: 2024, Month: time.June}, ""); !errors.Is(err, core.ErrEmptyOwner) {
		t.Errorf("expected ErrEmptyOwner, got %v", err)
	}
	if _, err := GenerateMonth(nil, nil, core.Period{}, "u1"); err == nil {
		t.Error("expected error for zero period")
	}
	bad := []core.Commitment{{ID: "x", OwnerID: "u1", Name: "Bad", ExpectedDay: 0}}
	if _, err := GenerateMonth(bad, nil, core.Period{Year: 2024, Month: time.June}, "u1"); !errors.Is(err, core.ErrInvalidDay) {
		t.Errorf("expected ErrInvalidDay, got %v", err)
	}
}
