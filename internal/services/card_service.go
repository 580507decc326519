package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"carteira/internal/core"
	"carteira/internal/events"
	"carteira/internal/ports"
)

// CardService registers credit cards. Cards cannot be edited once
// created: their closing day decides where every purchase is billed.
type CardService struct {
	store ports.CardStore
	bus   events.Publisher
}

func NewCardService(store ports.CardStore, bus events.Publisher) *CardService {
	return &CardService{
		store: store,
		bus:   bus,
	}
}

func (s *CardService) Create(ctx context.Context, c core.Card) (core.Card, error) {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.store.CreateCard(ctx, c); err != nil {
		return core.Card{}, fmt.Errorf("save card: %w", err)
	}
	slog.InfoContext(ctx, "Card created",
		"id", c.ID,
		"owner_id", c.OwnerID,
		"closing_day", c.ClosingDay,
		"due_day", c.DueDay)

	if s.bus != nil {
		s.bus.Publish(ctx, events.Event{Type: events.CardsChanged, OwnerID: c.OwnerID, CardIDs: []string{c.ID}})
	}
	return s.store.GetCard(ctx, c.OwnerID, c.ID)
}

func (s *CardService) Get(ctx context.Context, owner, id string) (core.Card, error) {
	return s.store.GetCard(ctx, owner, id)
}

func (s *CardService) List(ctx context.Context, owner string) ([]core.Card, error) {
	return s.store.ListCards(ctx, owner)
}
