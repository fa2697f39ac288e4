package events

import (
	"context"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/google/uuid"
)

// AuditSink records every event in the audit log.
type AuditSink struct {
	repo repository.AuditRepository
}

func NewAuditSink(repo repository.AuditRepository) *AuditSink {
	return &AuditSink{repo: repo}
}

func (s *AuditSink) Name() string { return "audit" }

func (s *AuditSink) Handle(ctx context.Context, event Event) error {
	metadata := map[string]string{
		"event_id":     event.ID,
		"order_number": event.OrderNumber,
		"status":       string(event.Status),
		"total":        event.Total.StringFixed(2),
		"currency":     event.Currency,
	}

	for k, v := range event.Metadata {
		metadata[k] = v
	}

	actor := event.ActorID
	if actor == nil && event.Type == OrderCreated {
		customer := event.CustomerID
		actor = &customer
	}

	return s.repo.CreateEntry(ctx, &models.AuditEntry{
		ID:         uuid.New(),
		ActorID:    actor,
		Action:     string(event.Type),
		EntityType: "order",
		EntityID:   event.OrderID.String(),
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	})
}

// Notifier turns an event into a customer message.
type Notifier interface {
	NotifyOrderEvent(ctx context.Context, event Event) error
}

// NotificationSink forwards events to a Notifier.
type NotificationSink struct {
	notifier Notifier
}

func NewNotificationSink(notifier Notifier) *NotificationSink {
	return &NotificationSink{notifier: notifier}
}

func (s *NotificationSink) Name() string { return "notification" }

func (s *NotificationSink) Handle(ctx context.Context, event Event) error {
	return s.notifier.NotifyOrderEvent(ctx, event)
}
