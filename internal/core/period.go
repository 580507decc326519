package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a year-month label such as an invoice period or a report month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod creates a Period, normalizing month overflow (month 13 is
// January of the following year).
func NewPeriod(year int, month time.Month) Period {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Year: t.Year(), Month: t.Month()}
}

// PeriodOf returns the calendar period of t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a "YYYY-MM" label.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	year, month, ok := strings.Cut(s, "-")
	if !ok || len(year) != 4 || len(month) != 2 {
		return Period{}, fmt.Errorf("parse period %q: want YYYY-MM", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	if m < 1 || m > 12 {
		return Period{}, fmt.Errorf("parse period %q: month out of range", s)
	}
	return Period{Year: y, Month: time.Month(m)}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// AddMonths returns the period n months later (n may be negative).
func (p Period) AddMonths(n int) Period {
	return NewPeriod(p.Year, p.Month+time.Month(n))
}

func (p Period) Next() Period { return p.AddMonths(1) }

func (p Period) Prev() Period { return p.AddMonths(-1) }

// First returns the first calendar day of the period.
func (p Period) First() Date {
	return NewDate(p.Year, int(p.Month), 1)
}

// Last returns the last calendar day of the period.
func (p Period) Last() Date {
	return NewDate(p.Year, int(p.Month), DaysIn(p.Year, p.Month))
}

// Compare returns -1, 0 or +1.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month):
		return -1
	case p == o:
		return 0
	default:
		return 1
	}
}

func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Period) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("period must be a string: %w", err)
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
