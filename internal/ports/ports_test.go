package ports

import (
	"testing"

	"carteira/internal/core"
)

func TestTransactionFilter_Match(t *testing.T) {
	card := core.Transaction{OwnerID: "u1", CardID: "c1", Date: core.NewDate(2024, 3, 10)}
	cash := core.Transaction{OwnerID: "u1", Date: core.NewDate(2024, 3, 31)}

	tests := []struct {
		name   string
		filter TransactionFilter
		tx     core.Transaction
		want   bool
	}{
		{"empty filter", TransactionFilter{}, card, true},
		{"other owner", TransactionFilter{OwnerID: "u2"}, card, false},
		{"inclusive from", TransactionFilter{From: core.NewDate(2024, 3, 10)}, card, true},
		{"before from", TransactionFilter{From: core.NewDate(2024, 3, 11)}, card, false},
		{"inclusive to", TransactionFilter{To: core.NewDate(2024, 3, 31)}, cash, true},
		{"after to", TransactionFilter{To: core.NewDate(2024, 3, 30)}, cash, false},
		{"card id", TransactionFilter{CardID: "c1"}, card, true},
		{"card id on cash", TransactionFilter{CardID: "c1"}, cash, false},
		{"card only", TransactionFilter{CardOnly: true}, cash, false},
		{"non card only", TransactionFilter{NonCardOnly: true}, card, false},
		{"non card only on cash", TransactionFilter{NonCardOnly: true}, cash, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.tx); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
