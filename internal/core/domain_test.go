package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestClampedDate(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		day   int
		want  string
	}{
		{2024, time.February, 31, "2024-02-29"},
		{2023, time.February, 31, "2023-02-28"},
		{2024, time.April, 31, "2024-04-30"},
		{2024, time.March, 31, "2024-03-31"},
		{2024, time.March, 10, "2024-03-10"},
	}
	for _, tc := range cases {
		if got := ClampedDate(tc.year, tc.month, tc.day).String(); got != tc.want {
			t.Errorf("ClampedDate(%d, %v, %d) = %s, want %s", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-03-11"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D != NewDate(2024, 3, 11) {
		t.Fatalf("got %v", v.D)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"d":"2024-03-11"}` {
		t.Fatalf("unexpected json %s", out)
	}
	if err := json.Unmarshal([]byte(`{"d":"11/03/2024"}`), &v); err == nil {
		t.Fatal("expected error for bad layout")
	}
}

func TestTransactionSigned(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want int64
	}{
		{"income", Transaction{Kind: Income, Amount: Money{Cents: 500}}, 500},
		{"expense", Transaction{Kind: Expense, Amount: Money{Cents: 500}}, -500},
		{"negative expense stored signed", Transaction{Kind: Expense, Amount: Money{Cents: -500}}, -500},
		{"card purchase typed as income", Transaction{Kind: Income, CardID: "c1", Amount: Money{Cents: 500}}, -500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tx.Signed().Cents; got != tc.want {
				t.Errorf("Signed() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		OwnerID:     "u1",
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		Kind:        Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	pending := good
	pending.Amount = Money{}
	pending.AmountPending = true
	if err := pending.Validate(); err != nil {
		t.Fatalf("pending amount should be valid, got %v", err)
	}

	bads := []Transaction{
		{OwnerID: "u1", Date: Date{}, Description: "a", Amount: Money{Cents: 1}, Kind: Expense},
		{OwnerID: "u1", Date: NewDate(2025, 1, 1), Description: "", Amount: Money{Cents: 1}, Kind: Expense},
		{OwnerID: "u1", Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Kind: Expense},
		{OwnerID: "u1", Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Kind: "entrada"},
		{OwnerID: "", Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Kind: Expense},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCardValidate(t *testing.T) {
	card := Card{OwnerID: "u1", Name: "Nubank", Limit: Money{Cents: 500000}, ClosingDay: 10, DueDay: 17}
	if err := card.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, day := range []int{0, 32, -1} {
		c := card
		c.ClosingDay = day
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("closing day %d: expected ErrInvalidConfiguration, got %v", day, err)
		}
	}
	c := card
	c.DueDay = 40
	if err := c.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("due day 40: expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestCommitmentValidate(t *testing.T) {
	fixed := Commitment{OwnerID: "u1", Name: "Aluguel", ExpectedDay: 5, DefaultAmount: Money{Cents: 150000}, Kind: Expense}
	if err := fixed.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	variable := Commitment{OwnerID: "u1", Name: "Luz", ExpectedDay: 20, Variable: true, Kind: Expense}
	if err := variable.Validate(); err != nil {
		t.Fatalf("variable commitment without amount should be valid, got %v", err)
	}
	noAmount := fixed
	noAmount.DefaultAmount = Money{}
	if err := noAmount.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	badDay := fixed
	badDay.ExpectedDay = 0
	if err := badDay.Validate(); !errors.Is(err, ErrInvalidDay) {
		t.Fatalf("expected ErrInvalidDay, got %v", err)
	}
}
