package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"carteira/internal/cache"
	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/invoice"
	"carteira/internal/ports"
)

// overviewConcurrency bounds the statements computed in parallel.
const overviewConcurrency = 4

// InvoiceService computes card statements. Statements are cached per
// owner, card and period until an event touching the card is published.
type InvoiceService struct {
	store ports.Store
	cache cache.Cache[invoice.Statement]

	// generations counts invalidations per owner. A statement computed
	// across an invalidation is returned but not cached.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewInvoiceService returns a service backed by store. A nil cache
// disables caching.
func NewInvoiceService(store ports.Store, c cache.Cache[invoice.Statement]) *InvoiceService {
	return &InvoiceService{
		store:       store,
		cache:       c,
		generations: make(map[string]uint64),
	}
}

// Subscribe registers cache invalidation on bus.
func (s *InvoiceService) Subscribe(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe("invoice-cache", s.invalidate)
}

// Statement returns the card's invoice for p.
func (s *InvoiceService) Statement(ctx context.Context, owner, cardID string, p core.Period) (invoice.Statement, error) {
	key := cacheKey(owner, cardID, p)
	if s.cache != nil {
		if st, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Statement cache hit", "key", key)
			return st, nil
		}
	}
	return s.Refresh(ctx, owner, cardID, p)
}

// Refresh recomputes the statement from the store, bypassing and then
// repopulating the cache.
func (s *InvoiceService) Refresh(ctx context.Context, owner, cardID string, p core.Period) (invoice.Statement, error) {
	gen := s.generation(owner)
	card, err := s.store.GetCard(ctx, owner, cardID)
	if err != nil {
		return invoice.Statement{}, err
	}
	st, err := s.compute(ctx, card, p)
	if err != nil {
		return invoice.Statement{}, err
	}
	s.cacheIfCurrent(owner, gen, cacheKey(owner, cardID, p), st)
	return st, nil
}

// Overview returns the statement of every card of the owner for p, in
// card order.
func (s *InvoiceService) Overview(ctx context.Context, owner string, p core.Period) ([]invoice.Statement, error) {
	cards, err := s.store.ListCards(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	gen := s.generation(owner)
	out := make([]invoice.Statement, len(cards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)
	for i, card := range cards {
		g.Go(func() error {
			key := cacheKey(owner, card.ID, p)
			if s.cache != nil {
				if st, ok := s.cache.Get(key); ok {
					out[i] = st
					return nil
				}
			}
			st, err := s.compute(gctx, card, p)
			if err != nil {
				return err
			}
			s.cacheIfCurrent(owner, gen, key, st)
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *InvoiceService) compute(ctx context.Context, card core.Card, p core.Period) (invoice.Statement, error) {
	start, end, err := invoice.PeriodRange(p, card.ClosingDay)
	if err != nil {
		return invoice.Statement{}, err
	}
	txs, err := s.store.ListTransactions(ctx, ports.TransactionFilter{
		OwnerID: card.OwnerID,
		CardID:  card.ID,
		From:    start,
		To:      end,
	})
	if err != nil {
		return invoice.Statement{}, fmt.Errorf("list card %s transactions: %w", card.ID, err)
	}
	return invoice.BuildStatement(card, p, txs)
}

func (s *InvoiceService) invalidate(ctx context.Context, e events.Event) error {
	if s.cache == nil {
		return nil
	}
	s.mu.Lock()
	s.generations[e.OwnerID]++
	s.mu.Unlock()

	prefix := e.OwnerID + "|"
	n := s.cache.DeleteFunc(func(key string) bool {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			return false
		}
		cardID, _, _ := strings.Cut(rest, "|")
		return e.Touches(cardID)
	})
	if n > 0 {
		slog.DebugContext(ctx, "Invalidated cached statements",
			"owner_id", e.OwnerID,
			"event", string(e.Type),
			"removed", n)
	}
	return nil
}

func (s *InvoiceService) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// cacheIfCurrent caches st unless the owner's statements were invalidated
// since gen was read. The check and the write share the lock that
// invalidate bumps under, so a stale write is either skipped or removed by
// the invalidation that follows it.
func (s *InvoiceService) cacheIfCurrent(owner string, gen uint64, key string, st invoice.Statement) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[owner] != gen {
		return
	}
	s.cache.Set(key, st)
}

func cacheKey(owner, cardID string, p core.Period) string {
	return owner + "|" + cardID + "|" + p.String()
}
