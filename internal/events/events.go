// Package events fans order lifecycle events out to email, the audit log and
// the Kafka event stream without blocking the request that produced them.
package events

import (
	"context"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type Type string

const (
	OrderCreated   Type = "order.created"
	OrderPaid      Type = "order.paid"
	OrderFailed    Type = "order.failed"
	OrderCancelled Type = "order.cancelled"
	OrderRefunded  Type = "order.refunded"
	OrderFulfilled Type = "order.fulfilled"
)

// TypeForStatus returns the event announcing that an order reached status.
func TypeForStatus(status models.OrderStatus) (Type, bool) {
	switch status {
	case models.OrderStatusPaid:
		return OrderPaid, true
	case models.OrderStatusFailed:
		return OrderFailed, true
	case models.OrderStatusCancelled:
		return OrderCancelled, true
	case models.OrderStatusRefunded:
		return OrderRefunded, true
	case models.OrderStatusFulfilled:
		return OrderFulfilled, true
	}

	return "", false
}

type Event struct {
	ID          string             `json:"id"`
	Type        Type               `json:"type"`
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	ActorID     *uuid.UUID         `json:"actor_id,omitempty"`
	Status      models.OrderStatus `json:"status"`
	Total       decimal.Decimal    `json:"total"`
	Currency    string             `json:"currency"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// NewOrderEvent snapshots order into an event of type t.
func NewOrderEvent(t Type, order *models.Order) Event {
	now := time.Now().UTC()

	return Event{
		ID:          ulid.Make().String(),
		Type:        t,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Status:      order.Status,
		Total:       order.Total,
		Currency:    order.Currency,
		OccurredAt:  now,
	}
}

func (e Event) WithActor(actorID uuid.UUID) Event {
	e.ActorID = &actorID

	return e
}

func (e Event) WithMetadata(key, value string) Event {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}

	md[key] = value
	e.Metadata = md

	return e
}

// Sink consumes events. Handle runs on an emitter worker, never on the
// request goroutine.
type Sink interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// Dispatcher accepts events for asynchronous delivery. Emit reports whether
// the event was queued.
type Dispatcher interface {
	Emit(ctx context.Context, event Event) bool
}

// Discard is a Dispatcher that drops everything.
type Discard struct{}

func (Discard) Emit(context.Context, Event) bool { return false }
