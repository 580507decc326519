// Package session carries the per-request view state: who is looking,
// which month and which card.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"carteira/internal/core"
)

type Session struct {
	OwnerID string
	Month   core.Period
	// ActiveCardID narrows card views to one card when set.
	ActiveCardID string
	// Today is the request's calendar day, used for defaults.
	Today core.Date
}

type ctxKey struct{}

var ErrNoSession = errors.New("no session in context")

// New builds a session for owner. An empty month defaults to the month of now.
func New(owner, month, card string, now time.Time) (Session, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Session{}, core.ErrEmptyOwner
	}
	s := Session{OwnerID: owner, ActiveCardID: strings.TrimSpace(card), Today: core.DateOf(now)}
	if strings.TrimSpace(month) == "" {
		s.Month = core.PeriodOf(now)
		return s, nil
	}
	p, err := core.ParsePeriod(month)
	if err != nil {
		return Session{}, err
	}
	s.Month = p
	return s, nil
}

func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// MustFromContext is FromContext for handlers mounted behind the session
// middleware.
func MustFromContext(ctx context.Context) (Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}
