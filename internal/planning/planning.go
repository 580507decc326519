// Package planning expands commitments and card purchases into the
// transactions they produce.
package planning

import (
	"errors"
	"fmt"
	"strings"

	"carteira/internal/core"
	"carteira/internal/invoice"
	"carteira/internal/schedule"
)

// MaxInstallments bounds a single card purchase.
const MaxInstallments = 48

var ErrInvalidInstallments = errors.New("invalid installments")

// Purchase is a card purchase split into equal installments.
type Purchase struct {
	OwnerID           string
	CardID            string
	Description       string
	InstallmentAmount core.Money
	Installments      int
	Date              core.Date
}

func (p Purchase) Validate() error {
	if strings.TrimSpace(p.OwnerID) == "" {
		return core.ErrEmptyOwner
	}
	if strings.TrimSpace(p.Description) == "" {
		return core.ErrEmptyDescription
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if err := p.InstallmentAmount.Validate(); err != nil {
		return err
	}
	if p.Installments < 1 || p.Installments > MaxInstallments {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidInstallments, MaxInstallments, p.Installments)
	}
	return nil
}

// Installments returns one transaction per installment. The first is dated
// on the purchase date; installment i is dated on the first day of the
// (i-1)th billing cycle after it, so every installment lands on its own
// consecutive invoice.
func Installments(card core.Card, p Purchase) ([]core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if card.ID != p.CardID || card.OwnerID != p.OwnerID {
		return nil, &invoice.DanglingReferenceError{CardID: p.CardID}
	}

	first, err := invoice.CardPeriod(card, p.Date)
	if err != nil {
		return nil, err
	}

	txs := make([]core.Transaction, 0, p.Installments)
	for i := 1; i <= p.Installments; i++ {
		date := p.Date
		if i > 1 {
			start, _, err := invoice.PeriodRange(first.AddMonths(i-1), card.ClosingDay)
			if err != nil {
				return nil, err
			}
			date = start
		}

		desc := p.Description
		if p.Installments > 1 {
			desc = fmt.Sprintf("%s (%d/%d)", p.Description, i, p.Installments)
		}
		txs = append(txs, core.Transaction{
			ID:          core.NewID(),
			OwnerID:     p.OwnerID,
			Description: desc,
			Amount:      p.InstallmentAmount,
			Kind:        core.Expense,
			Date:        date,
			CardID:      card.ID,
		})
	}
	return txs, nil
}

// GenerateMonth returns the transactions the owner's commitments produce
// in period p. Commitments that already have an occurrence generated for p
// are skipped, so calling it again for the same month yields nothing new.
// Occurrences are matched on the period they were generated for, not on
// their current date, so an occurrence moved to another month still counts
// for its own.
func GenerateMonth(commitments []core.Commitment, existing []core.Transaction, p core.Period, owner string) ([]core.Transaction, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, core.ErrEmptyOwner
	}
	if p.IsZero() {
		return nil, errors.New("period cannot be zero")
	}

	done := make(map[string]bool)
	for _, t := range existing {
		if t.CommitmentID != "" && t.OwnerID == owner && OccurrencePeriod(t) == p {
			done[t.CommitmentID] = true
		}
	}

	var out []core.Transaction
	for _, c := range commitments {
		if c.OwnerID != owner || done[c.ID] {
			continue
		}
		date, err := schedule.MonthlyOn(p, c.ExpectedDay)
		if err != nil {
			return nil, fmt.Errorf("commitment %s: %w", c.ID, err)
		}
		kind := c.Kind
		if kind == "" {
			kind = core.Expense
		}

		t := core.Transaction{
			ID:               core.NewID(),
			OwnerID:          owner,
			Description:      fmt.Sprintf("%s %02d/%04d", c.Name, int(p.Month), p.Year),
			Kind:             kind,
			Date:             date,
			CommitmentID:     c.ID,
			CommitmentPeriod: p,
		}
		if c.Variable {
			t.AmountPending = true
		} else {
			t.Amount = c.DefaultAmount
		}
		out = append(out, t)
		done[c.ID] = true
	}
	return out, nil
}

// OccurrencePeriod is the month a commitment occurrence belongs to. Rows
// written before the period was recorded fall back to their date.
func OccurrencePeriod(t core.Transaction) core.Period {
	if !t.CommitmentPeriod.IsZero() {
		return t.CommitmentPeriod
	}
	return t.Date.Period()
}
