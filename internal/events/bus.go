// Package events is the in-process notification channel of the write path.
// Every change to transactions is published as an Event so that caches,
// the broker bridge and any other reader can react to it.
package events

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"carteira/internal/core"
)

const (
	TransactionsCreated Type = "transactions.created"
	TransactionsUpdated Type = "transactions.updated"
	TransactionsPaid    Type = "transactions.paid"
	TransactionsUnpaid  Type = "transactions.unpaid"
	TransactionsDeleted Type = "transactions.deleted"
	CardsChanged        Type = "cards.changed"
)

type Type string

// Event describes one committed change.
type Event struct {
	Type           Type
	OwnerID        string
	CardIDs        []string
	Dates          []core.Date
	TransactionIDs []string
	At             time.Time
}

// Touches reports whether the event may change invoices of cardID.
func (e Event) Touches(cardID string) bool {
	return e.Type == CardsChanged || slices.Contains(e.CardIDs, cardID)
}

// FromTransactions builds an event covering txs.
func FromTransactions(typ Type, owner string, txs []core.Transaction) Event {
	e := Event{Type: typ, OwnerID: owner, At: time.Now().UTC()}
	seen := make(map[string]bool)
	for _, t := range txs {
		e.TransactionIDs = append(e.TransactionIDs, t.ID)
		e.Dates = append(e.Dates, t.Date)
		if t.CardID != "" && !seen[t.CardID] {
			seen[t.CardID] = true
			e.CardIDs = append(e.CardIDs, t.CardID)
		}
	}
	return e
}

// Handler receives published events. A returned error is logged and does
// not stop delivery to other handlers.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers events synchronously to every subscriber.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]subscription
}

type subscription struct {
	name string
	fn   Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]subscription)}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = subscription{name: name, fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to the current subscribers in subscription order.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	ids := slices.Sorted(maps.Keys(b.handlers))
	subs := make([]subscription, len(ids))
	for i, id := range ids {
		subs[i] = b.handlers[id]
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.fn(ctx, e); err != nil {
			slog.WarnContext(ctx, "Event handler failed",
				"handler", s.name,
				"event", string(e.Type),
				"error", err)
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
