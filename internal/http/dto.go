package http

import (
	"time"

	"carteira/internal/core"
	"carteira/internal/invoice"
	"carteira/internal/schedule"
)

type cardJSON struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Limit      core.Money `json:"limit"`
	ClosingDay int        `json:"closing_day"`
	DueDay     int        `json:"due_day"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toCardJSON(c core.Card) cardJSON {
	return cardJSON{
		ID:         c.ID,
		Name:       c.Name,
		Limit:      c.Limit,
		ClosingDay: c.ClosingDay,
		DueDay:     c.DueDay,
		CreatedAt:  c.CreatedAt,
	}
}

type transactionJSON struct {
	ID               string     `json:"id"`
	Description      string     `json:"description"`
	Amount           core.Money `json:"amount"`
	Signed           core.Money `json:"signed_amount"`
	Kind             core.Kind  `json:"kind"`
	Date             core.Date  `json:"date"`
	Paid             bool       `json:"paid"`
	CardID           string     `json:"card_id,omitempty"`
	CommitmentID     string     `json:"commitment_id,omitempty"`
	CommitmentPeriod string     `json:"commitment_period,omitempty"`
	AmountPending    bool       `json:"amount_pending,omitempty"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	out := transactionJSON{
		ID:            t.ID,
		Description:   t.Description,
		Amount:        t.Amount,
		Signed:        t.Signed(),
		Kind:          t.Kind,
		Date:          t.Date,
		Paid:          t.Paid,
		CardID:        t.CardID,
		CommitmentID:  t.CommitmentID,
		AmountPending: t.AmountPending,
	}
	if !t.CommitmentPeriod.IsZero() {
		out.CommitmentPeriod = t.CommitmentPeriod.String()
	}
	return out
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type statementJSON struct {
	CardID       string            `json:"card_id"`
	CardName     string            `json:"card_name"`
	Period       core.Period       `json:"period"`
	Start        core.Date         `json:"start"`
	End          core.Date         `json:"end"`
	Due          core.Date         `json:"due"`
	Limit        core.Money        `json:"limit"`
	Available    core.Money        `json:"available"`
	Total        core.Money        `json:"total"`
	Outstanding  core.Money        `json:"outstanding"`
	Status       invoice.Status    `json:"status"`
	Count        int               `json:"count"`
	PaidCount    int               `json:"paid_count"`
	Transactions []transactionJSON `json:"transactions"`
}

func toStatementJSON(s invoice.Statement) statementJSON {
	return statementJSON{
		CardID:       s.CardID,
		CardName:     s.CardName,
		Period:       s.Period,
		Start:        s.Start,
		End:          s.End,
		Due:          s.Due,
		Limit:        s.Limit,
		Available:    s.Available,
		Total:        s.Total,
		Outstanding:  s.Outstanding,
		Status:       s.Status,
		Count:        s.Count,
		PaidCount:    s.PaidCount,
		Transactions: toTransactionsJSON(s.Transactions),
	}
}

type commitmentJSON struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ExpectedDay   int        `json:"expected_day"`
	Variable      bool       `json:"variable"`
	DefaultAmount core.Money `json:"default_amount"`
	Kind          core.Kind  `json:"kind"`
	Schedule      string     `json:"schedule,omitempty"`
	NextDate      *core.Date `json:"next_date,omitempty"`
}

// toCommitmentJSON renders c with its recurrence rule and the next
// occurrence on or after today.
func toCommitmentJSON(c core.Commitment, today core.Date) commitmentJSON {
	out := commitmentJSON{
		ID:            c.ID,
		Name:          c.Name,
		ExpectedDay:   c.ExpectedDay,
		Variable:      c.Variable,
		DefaultAmount: c.DefaultAmount,
		Kind:          c.Kind,
	}
	if rule, err := schedule.RuleString(c.ExpectedDay); err == nil {
		out.Schedule = rule
	}
	if next, err := schedule.NextAfter(today.AddDays(-1), c.ExpectedDay); err == nil {
		out.NextDate = &next
	}
	return out
}

type balancePointJSON struct {
	Date          core.Date  `json:"date"`
	TransactionID string     `json:"transaction_id"`
	Delta         core.Money `json:"delta"`
	Balance       core.Money `json:"balance"`
}

type summaryJSON struct {
	Period         core.Period `json:"period"`
	Income         core.Money  `json:"income"`
	Expense        core.Money  `json:"expense"`
	Balance        core.Money  `json:"balance"`
	HasPending     bool        `json:"has_pending"`
	HasOpenInvoice bool        `json:"has_open_invoice"`
	Count          int         `json:"count"`
}

func toSummaryJSON(s core.MonthSummary) summaryJSON {
	return summaryJSON{
		Period:         s.Period,
		Income:         s.Income,
		Expense:        s.Expense,
		Balance:        s.Balance,
		HasPending:     s.HasPending,
		HasOpenInvoice: s.HasOpenInvoice,
		Count:          s.Count,
	}
}
