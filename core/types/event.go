// Package types - Domain events
package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event
type EventType string

const (
	// EventBillGenerated is emitted after a bill file is written
	EventBillGenerated EventType = "bill.generated"

	// EventBillCleared is emitted when the current bill is reset
	EventBillCleared EventType = "bill.cleared"

	// EventPriceTableUpdated is emitted after a table definition, price edit or import
	EventPriceTableUpdated EventType = "price_table.updated"
)

// String returns the event type name
func (t EventType) String() string {
	return string(t)
}

// Event is a fact published to downstream consumers
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	Subject    string                 `json:"subject"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// NewEvent stamps a new event with a random ID and the current time
func NewEvent(t EventType, subject string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		Subject:    subject,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
