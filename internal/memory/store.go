// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"carteira/internal/core"
	"carteira/internal/ports"
)

type Store struct {
	mu          sync.Mutex
	cards       map[string]core.Card
	txs         map[string]core.Transaction
	commitments map[string]core.Commitment
	snapshots   map[snapshotKey]ports.InvoiceSnapshot
	now         func() time.Time
}

type snapshotKey struct {
	owner  string
	card   string
	period core.Period
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cards:       make(map[string]core.Card),
		txs:         make(map[string]core.Transaction),
		commitments: make(map[string]core.Commitment),
		snapshots:   make(map[snapshotKey]ports.InvoiceSnapshot),
		now:         time.Now,
	}
}

func (s *Store) CreateCard(_ context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.ID]; ok {
		return fmt.Errorf("card %s already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.cards[c.ID] = c
	return nil
}

func (s *Store) GetCard(_ context.Context, owner, id string) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.OwnerID != owner {
		return core.Card{}, fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCards(_ context.Context, owner string) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Card
	for _, c := range s.cards {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	sortCards(out)
	return out, nil
}

func (s *Store) ListAllCards(_ context.Context) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sortCards(out)
	return out, nil
}

func (s *Store) InsertTransactions(_ context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %q: %w", t.Description, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		if _, ok := s.txs[t.ID]; ok {
			return fmt.Errorf("transaction %s already exists", t.ID)
		}
		if t.CardID != "" {
			if c, ok := s.cards[t.CardID]; !ok || c.OwnerID != t.OwnerID {
				return fmt.Errorf("transaction %s: card %s: %w", t.ID, t.CardID, core.ErrDanglingReference)
			}
		}
	}
	now := s.now().UTC()
	for _, t := range txs {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		s.txs[t.ID] = t
	}
	return nil
}

func (s *Store) GetTransaction(_ context.Context, owner, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != owner {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// ListTransactions returns matching transactions ordered by date, then
// creation time.
func (s *Store) ListTransactions(_ context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, owner, id string, u ports.TransactionUpdate) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != owner {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if u.Description != nil {
		t.Description = strings.TrimSpace(*u.Description)
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
		t.AmountPending = false
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.txs[id] = t
	return t, nil
}

func (s *Store) SetPaid(_ context.Context, owner string, ids []string, paid bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		t, ok := s.txs[id]
		if !ok || t.OwnerID != owner {
			continue
		}
		t.Paid = paid
		s.txs[id] = t
		n++
	}
	return n, nil
}

func (s *Store) DeleteTransaction(_ context.Context, owner, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != owner {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return t, nil
}

func (s *Store) CreateCommitment(_ context.Context, c core.Commitment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commitments[c.ID]; ok {
		return fmt.Errorf("commitment %s already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.commitments[c.ID] = c
	return nil
}

func (s *Store) UpdateCommitment(_ context.Context, c core.Commitment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.commitments[c.ID]
	if !ok || old.OwnerID != c.OwnerID {
		return fmt.Errorf("commitment %s: %w", c.ID, core.ErrNotFound)
	}
	c.CreatedAt = old.CreatedAt
	s.commitments[c.ID] = c
	return nil
}

func (s *Store) DeleteCommitment(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	if !ok || c.OwnerID != owner {
		return fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	delete(s.commitments, id)
	return nil
}

func (s *Store) GetCommitment(_ context.Context, owner, id string) (core.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	if !ok || c.OwnerID != owner {
		return core.Commitment{}, fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCommitments(_ context.Context, owner string) ([]core.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Commitment
	for _, c := range s.commitments {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpectedDay != out[j].ExpectedDay {
			return out[i].ExpectedDay < out[j].ExpectedDay
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) ListCommitmentOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.commitments {
		if !seen[c.OwnerID] {
			seen[c.OwnerID] = true
			out = append(out, c.OwnerID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) UpsertSnapshot(_ context.Context, snap ports.InvoiceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{snap.OwnerID, snap.CardID, snap.Period}] = snap
	return nil
}

func (s *Store) ListSnapshots(_ context.Context, owner string, p core.Period) ([]ports.InvoiceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.InvoiceSnapshot
	for k, snap := range s.snapshots {
		if k.owner == owner && k.period == p {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardName < out[j].CardName })
	return out, nil
}

func (s *Store) ResetOwner(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.txs {
		if t.OwnerID == owner {
			delete(s.txs, id)
		}
	}
	for id, c := range s.cards {
		if c.OwnerID == owner {
			delete(s.cards, id)
		}
	}
	for id, c := range s.commitments {
		if c.OwnerID == owner {
			delete(s.commitments, id)
		}
	}
	for k := range s.snapshots {
		if k.owner == owner {
			delete(s.snapshots, k)
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func sortCards(cards []core.Card) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Name != cards[j].Name {
			return cards[i].Name < cards[j].Name
		}
		return cards[i].ID < cards[j].ID
	})
}
