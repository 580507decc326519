package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const dateLayout = "2006-01-02"

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID           string
		OwnerID      string
		Description  string
		Amount       Money // magnitude; the sign comes from Kind and CardID
		Kind         Kind
		Date         Date
		Paid         bool
		CardID       string // empty when not a card purchase
		CommitmentID string // set when generated from a commitment
		// CommitmentPeriod is the month the occurrence was generated for.
		// It does not follow later date edits.
		CommitmentPeriod Period
		// AmountPending marks variable commitment occurrences whose value
		// is not known yet.
		AmountPending bool
		CreatedAt     time.Time
	}

	Card struct {
		ID         string
		OwnerID    string
		Name       string
		Limit      Money
		ClosingDay int
		DueDay     int
		CreatedAt  time.Time
	}

	Commitment struct {
		ID            string
		OwnerID       string
		Name          string
		ExpectedDay   int
		Variable      bool
		DefaultAmount Money
		Kind          Kind
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDanglingReference    = errors.New("dangling reference")
	ErrNotFound             = errors.New("not found")

	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long (max 200 characters)")
	ErrEmptyOwner       = errors.New("empty owner")
	ErrMissingDate      = errors.New("date cannot be zero")
)

// ValidDay reports whether d is a usable day-of-month setting (1-31).
func ValidDay(d int) bool {
	return d >= 1 && d <= 31
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// ClampedDate builds the date for day in the given month, using the last
// day of the month when day does not exist in it (e.g. 31 in February).
func ClampedDate(year int, month time.Month, day int) Date {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, int(month), day)
}

// DaysIn returns the number of days of the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Period returns the calendar period the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Between reports whether start <= d <= end.
func (d Date) Between(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// IsCard reports whether the transaction is a credit-card purchase.
func (t Transaction) IsCard() bool {
	return t.CardID != ""
}

// IsIncome reports whether the transaction adds to the balance. Card
// purchases are always outflows.
func (t Transaction) IsIncome() bool {
	return t.Kind == Income && !t.IsCard()
}

// Signed returns the contribution of the transaction to a balance.
func (t Transaction) Signed() Money {
	abs := t.Amount.Abs()
	if t.IsIncome() {
		return abs
	}
	return Money{Cents: -abs.Cents}
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrLongDescription
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if t.AmountPending {
		if t.Amount.Cents != 0 {
			return fmt.Errorf("%w: pending amount must be zero", ErrInvalidAmount)
		}
		return nil
	}
	return t.Amount.Validate()
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyDescription
	}
	if !ValidDay(c.ClosingDay) {
		return fmt.Errorf("%w: closing day %d", ErrInvalidConfiguration, c.ClosingDay)
	}
	if !ValidDay(c.DueDay) {
		return fmt.Errorf("%w: due day %d", ErrInvalidConfiguration, c.DueDay)
	}
	if c.Limit.Cents < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidAmount)
	}
	return nil
}

func (c Commitment) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyDescription
	}
	if !ValidDay(c.ExpectedDay) {
		return fmt.Errorf("%w: expected day %d", ErrInvalidDay, c.ExpectedDay)
	}
	if err := c.Kind.Validate(); err != nil {
		return err
	}
	if !c.Variable {
		if err := c.DefaultAmount.Validate(); err != nil {
			return err
		}
	}
	return nil
}
