// Package events defines the domain events emitted by stock-changing operations.
package events

import (
	"context"
	"encoding/json"
	"time"

	"bakehouse/internal/core/id"
)

// Event types.
const (
	TypeIngredientCreated  = "ingredient.created"
	TypeStockAdjusted      = "stock.adjusted"
	TypeProductionRecorded = "production.recorded"
	TypeWastageRecorded    = "wastage.recorded"
	TypeSaleRecorded       = "sale.recorded"
)

// Event is a fact about a committed change.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Envelope is the wire form of an event on Kafka and the WebSocket stream.
type Envelope struct {
	ID            id.ID           `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   id.ID           `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// Publisher stores events. The outbox implementation requires a transaction in ctx,
// so an event is published exactly when the business change commits.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })

// IsStockChange reports whether events of this type alter stock levels.
func IsStockChange(eventType string) bool {
	switch eventType {
	case TypeIngredientCreated, TypeStockAdjusted, TypeProductionRecorded, TypeWastageRecorded, TypeSaleRecorded:
		return true
	}
	return false
}
