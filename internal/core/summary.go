package core

// BalancePoint is one step of a running balance.
type BalancePoint struct {
	Date          Date
	TransactionID string
	Delta         Money
	Balance       Money
}

// MonthSummary is a compact overview for a specific year+month.
type MonthSummary struct {
	Period         Period
	Income         Money
	Expense        Money
	Balance        Money
	HasPending     bool // some non-income transaction is unpaid
	HasOpenInvoice bool // some card transaction is unpaid
	Count          int
}
