package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"carteira/internal/core"
	"carteira/internal/events"
)

// TransactionEventMessage is the broker form of events.Event. Dates travel
// as YYYY-MM-DD strings.
type TransactionEventMessage struct {
	Type           string    `json:"type"`
	OwnerID        string    `json:"owner_id"`
	CardIDs        []string  `json:"card_ids,omitempty"`
	Dates          []string  `json:"dates,omitempty"`
	TransactionIDs []string  `json:"transaction_ids,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(e events.Event) *TransactionEventMessage {
	msg := &TransactionEventMessage{
		Type:           string(e.Type),
		OwnerID:        e.OwnerID,
		CardIDs:        e.CardIDs,
		TransactionIDs: e.TransactionIDs,
		Timestamp:      e.At,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	for _, d := range e.Dates {
		msg.Dates = append(msg.Dates, d.String())
	}
	return msg
}

// Event converts the message back to an events.Event.
func (m *TransactionEventMessage) Event() (events.Event, error) {
	e := events.Event{
		Type:           events.Type(m.Type),
		OwnerID:        m.OwnerID,
		CardIDs:        m.CardIDs,
		TransactionIDs: m.TransactionIDs,
		At:             m.Timestamp,
	}
	for _, s := range m.Dates {
		d, err := core.ParseDate(s)
		if err != nil {
			return events.Event{}, err
		}
		e.Dates = append(e.Dates, d)
	}
	return e, nil
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" || msg.Type == "" {
		return nil, fmt.Errorf("message without owner or type")
	}
	return &msg, nil
}
