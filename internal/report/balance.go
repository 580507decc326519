// Package report aggregates transactions into balances and month summaries.
package report

import (
	"iter"
	"slices"

	"carteira/internal/core"
)

// RunningBalance yields the cumulative balance after each transaction, in
// input order, starting from zero. Income adds and everything else
// subtracts; card purchases always subtract. Paid flags are ignored and
// transactions with a pending amount are skipped. The sequence can be
// ranged over any number of times.
func RunningBalance(txs []core.Transaction) iter.Seq[core.BalancePoint] {
	return func(yield func(core.BalancePoint) bool) {
		var balance core.Money
		for _, t := range txs {
			if t.AmountPending {
				continue
			}
			delta := t.Signed()
			balance = balance.Add(delta)
			if !yield(core.BalancePoint{
				Date:          t.Date,
				TransactionID: t.ID,
				Delta:         delta,
				Balance:       balance,
			}) {
				return
			}
		}
	}
}

// SortByDate returns a copy of txs ordered by date. Transactions on the
// same day keep their relative order.
func SortByDate(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return a.Date.Compare(b.Date.Time)
	})
	return out
}

// Summarize computes the month KPIs for the given transactions.
func Summarize(p core.Period, txs []core.Transaction) core.MonthSummary {
	s := core.MonthSummary{Period: p}
	for _, t := range txs {
		s.Count++
		if !t.Paid {
			if t.IsCard() {
				s.HasOpenInvoice = true
			}
			if !t.IsIncome() {
				s.HasPending = true
			}
		}
		if t.AmountPending {
			continue
		}
		if t.IsIncome() {
			s.Income = s.Income.Add(t.Amount.Abs())
		} else {
			s.Expense = s.Expense.Add(t.Amount.Abs())
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}
