package invoice

import (
	"errors"
	"fmt"
	"sort"

	"carteira/internal/core"
)

const (
	StatusEmpty   Status = "EMPTY"
	StatusOpen    Status = "OPEN"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

// Status classifies an invoice from the paid flags of its transactions.
type Status string

// Summary is the aggregate of one card+period invoice.
type Summary struct {
	Total       core.Money
	Outstanding core.Money
	Status      Status
	Count       int
	PaidCount   int
}

// Classify totals the transactions and derives the invoice status from
// their paid flags. Amounts count as magnitudes regardless of sign.
func Classify(txs []core.Transaction) Summary {
	var s Summary
	for _, t := range txs {
		abs := t.Amount.Abs()
		s.Total = s.Total.Add(abs)
		s.Count++
		if t.Paid {
			s.PaidCount++
		} else {
			s.Outstanding = s.Outstanding.Add(abs)
		}
	}

	switch {
	case s.Count == 0:
		s.Status = StatusEmpty
	case s.PaidCount == s.Count:
		s.Status = StatusPaid
	case s.PaidCount == 0:
		s.Status = StatusOpen
	default:
		s.Status = StatusPartial
	}
	return s
}

// Statement is the derived invoice of one card for one period.
type Statement struct {
	CardID       string
	CardName     string
	Period       core.Period
	Start        core.Date
	End          core.Date
	Due          core.Date
	Limit        core.Money
	Available    core.Money
	Transactions []core.Transaction
	Summary
}

// BuildStatement selects the card's transactions billed under p and
// classifies them. Transactions of other cards or outside the cycle are
// ignored, so callers may pass a superset.
func BuildStatement(card core.Card, p core.Period, txs []core.Transaction) (Statement, error) {
	start, end, err := PeriodRange(p, card.ClosingDay)
	if err != nil {
		return Statement{}, fmt.Errorf("card %s: %w", card.ID, err)
	}
	due, err := DueDate(p, card.ClosingDay, card.DueDay)
	if err != nil {
		return Statement{}, fmt.Errorf("card %s: %w", card.ID, err)
	}

	var selected []core.Transaction
	for _, t := range txs {
		if t.CardID == card.ID && t.Date.Between(start, end) {
			selected = append(selected, t)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Date.Before(selected[j].Date)
	})

	summary := Classify(selected)
	return Statement{
		CardID:       card.ID,
		CardName:     card.Name,
		Period:       p,
		Start:        start,
		End:          end,
		Due:          due,
		Limit:        card.Limit,
		Available:    card.Limit.Sub(summary.Total),
		Transactions: selected,
		Summary:      summary,
	}, nil
}

// Key identifies one invoice.
type Key struct {
	CardID string
	Period core.Period
}

// DanglingReferenceError reports a card transaction whose card is unknown.
type DanglingReferenceError struct {
	TransactionID string
	CardID        string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("transaction %s references unknown card %s", e.TransactionID, e.CardID)
}

func (e *DanglingReferenceError) Unwrap() error {
	return core.ErrDanglingReference
}

// Group assigns every card transaction to its invoice. Transactions that
// are not card purchases are skipped. Transactions referencing unknown
// cards are left out of the result and reported through the returned
// error (a join of *DanglingReferenceError values); the groups for all
// other transactions are still returned.
func Group(cards []core.Card, txs []core.Transaction) (map[Key][]core.Transaction, error) {
	byID := make(map[string]core.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	groups := make(map[Key][]core.Transaction)
	var errs []error
	for _, t := range txs {
		if !t.IsCard() {
			continue
		}
		card, ok := byID[t.CardID]
		if !ok {
			errs = append(errs, &DanglingReferenceError{TransactionID: t.ID, CardID: t.CardID})
			continue
		}
		p, err := CardPeriod(card, t.Date)
		if err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", t.ID, err))
			continue
		}
		k := Key{CardID: card.ID, Period: p}
		groups[k] = append(groups[k], t)
	}
	return groups, errors.Join(errs...)
}
