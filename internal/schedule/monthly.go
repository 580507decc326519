// Package schedule computes day-of-month recurrences.
//
// Rules are expressed as RFC 5545 recurrences. A day that does not exist in
// a month falls back to the last day of that month, so "every 31st" yields
// Feb 29, Apr 30 and so on instead of skipping those months.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"carteira/internal/core"
)

// MonthlyOn returns the occurrence of a day-of-month rule inside period p.
func MonthlyOn(p core.Period, day int) (core.Date, error) {
	dates, err := Monthly(p, day, 1)
	if err != nil {
		return core.Date{}, err
	}
	return dates[0], nil
}

// Monthly returns count consecutive occurrences starting in period from.
func Monthly(from core.Period, day, count int) ([]core.Date, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	r, err := newMonthlyRule(from.First(), day, count)
	if err != nil {
		return nil, err
	}

	occurrences := r.All()
	dates := make([]core.Date, len(occurrences))
	for i, t := range occurrences {
		dates[i] = core.DateOf(t)
	}
	return dates, nil
}

// NextAfter returns the first occurrence strictly after d.
func NextAfter(d core.Date, day int) (core.Date, error) {
	r, err := newMonthlyRule(d.Period().First(), day, 0)
	if err != nil {
		return core.Date{}, err
	}
	next := r.After(d.Time, false)
	if next.IsZero() {
		return core.Date{}, fmt.Errorf("no occurrence after %s", d)
	}
	return core.DateOf(next), nil
}

// RuleString renders the recurrence of a day-of-month rule, e.g.
// "FREQ=MONTHLY;BYMONTHDAY=28,29,30;BYSETPOS=-1".
func RuleString(day int) (string, error) {
	opt, err := monthlyOption(time.Time{}, day, 0)
	if err != nil {
		return "", err
	}
	days := make([]string, len(opt.Bymonthday))
	for i, d := range opt.Bymonthday {
		days[i] = strconv.Itoa(d)
	}
	return "FREQ=MONTHLY;BYMONTHDAY=" + strings.Join(days, ",") + ";BYSETPOS=-1", nil
}

func newMonthlyRule(dtstart core.Date, day, count int) (*rrule.RRule, error) {
	opt, err := monthlyOption(dtstart.Time, day, count)
	if err != nil {
		return nil, err
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build monthly rule: %w", err)
	}
	return r, nil
}

// monthlyOption selects every candidate day from min(day, 28) up to day and
// keeps the last one that exists in each month.
func monthlyOption(dtstart time.Time, day, count int) (rrule.ROption, error) {
	if !core.ValidDay(day) {
		return rrule.ROption{}, fmt.Errorf("%w: day %d", core.ErrInvalidDay, day)
	}
	low := day
	if low > 28 {
		low = 28
	}
	monthDays := make([]int, 0, day-low+1)
	for d := low; d <= day; d++ {
		monthDays = append(monthDays, d)
	}
	return rrule.ROption{
		Freq:       rrule.MONTHLY,
		Dtstart:    dtstart,
		Count:      count,
		Bymonthday: monthDays,
		Bysetpos:   []int{-1},
	}, nil
}
