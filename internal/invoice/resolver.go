// Package invoice maps card transactions to billing cycles and classifies
// the resulting invoices.
//
// A card closes on its closing day: purchases up to and including that day
// belong to the invoice labeled with the purchase month, later purchases
// roll to the following month's invoice. When the closing day does not
// exist in a month (31 in April, 30 in February) the cycle closes on the
// last day of that month instead.
package invoice

import (
	"fmt"

	"carteira/internal/core"
)

// ResolvePeriod returns the invoice period a purchase made on date is billed under.
func ResolvePeriod(date core.Date, closingDay int) (core.Period, error) {
	if err := checkClosingDay(closingDay); err != nil {
		return core.Period{}, err
	}
	if date.IsZero() {
		return core.Period{}, fmt.Errorf("%w: zero transaction date", core.ErrInvalidConfiguration)
	}

	own := date.Period()
	closing := closingDate(own, closingDay)
	if date.After(closing) {
		return own.Next(), nil
	}
	return own, nil
}

// PeriodRange returns the inclusive date range of purchases billed under p.
func PeriodRange(p core.Period, closingDay int) (start, end core.Date, err error) {
	if err := checkClosingDay(closingDay); err != nil {
		return core.Date{}, core.Date{}, err
	}
	if p.Month < 1 || p.Month > 12 {
		return core.Date{}, core.Date{}, fmt.Errorf("%w: period %s", core.ErrInvalidConfiguration, p)
	}

	end = closingDate(p, closingDay)
	start = closingDate(p.Prev(), closingDay).AddDays(1)
	return start, end, nil
}

// DueDate returns the payment date of the invoice for p. The due day falls
// in the period's own month when it comes after the closing day, otherwise
// in the following month.
func DueDate(p core.Period, closingDay, dueDay int) (core.Date, error) {
	if err := checkClosingDay(closingDay); err != nil {
		return core.Date{}, err
	}
	if !core.ValidDay(dueDay) {
		return core.Date{}, fmt.Errorf("%w: due day %d", core.ErrInvalidConfiguration, dueDay)
	}
	month := p
	if dueDay <= closingDay {
		month = p.Next()
	}
	return core.ClampedDate(month.Year, month.Month, dueDay), nil
}

// CardPeriod resolves a card purchase using the card's configuration.
func CardPeriod(card core.Card, date core.Date) (core.Period, error) {
	p, err := ResolvePeriod(date, card.ClosingDay)
	if err != nil {
		return core.Period{}, fmt.Errorf("card %s: %w", card.ID, err)
	}
	return p, nil
}

func closingDate(p core.Period, closingDay int) core.Date {
	return core.ClampedDate(p.Year, p.Month, closingDay)
}

func checkClosingDay(closingDay int) error {
	if !core.ValidDay(closingDay) {
		return fmt.Errorf("%w: closing day %d outside 1-31", core.ErrInvalidConfiguration, closingDay)
	}
	return nil
}
