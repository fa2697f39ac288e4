package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayStatus is the provider-neutral outcome of a payment intent.
type GatewayStatus string

const (
	GatewayStatusCompleted  GatewayStatus = "completed"
	GatewayStatusFailed     GatewayStatus = "failed"
	GatewayStatusCancelled  GatewayStatus = "cancelled"
	GatewayStatusRefunded   GatewayStatus = "refunded"
	GatewayStatusProcessing GatewayStatus = "processing"
)

// TargetStatus maps a gateway outcome to the order status it drives.
func (s GatewayStatus) TargetStatus() (OrderStatus, bool) {
	switch s {
	case GatewayStatusCompleted:
		return OrderStatusPaid, true
	case GatewayStatusFailed:
		return OrderStatusFailed, true
	case GatewayStatusCancelled:
		return OrderStatusCancelled, true
	case GatewayStatusRefunded:
		return OrderStatusRefunded, true
	}

	return "", false
}

const (
	EventSourceStripe = "stripe"
	EventSourcePayway = "payway"
	EventSourceClient = "client"
)

// GatewayEvent is a normalized inbound payment notification.
type GatewayEvent struct {
	Key         string        `json:"key"`
	IntentID    string        `json:"intent_id"`
	OrderNumber string        `json:"order_number,omitempty"`
	Status      GatewayStatus `json:"status"`
	Source      string        `json:"source"`
}

type PaywayWebhookRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,max=255"`
	Status        string `json:"status" validate:"required,oneof=completed failed cancelled"`
	OrderID       string `json:"order_id" validate:"required,max=255"`
}

type PaymentIntentResponse struct {
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	Reused          bool            `json:"reused"`
}

type ReconcileOutcome string

const (
	ReconcileApplied   ReconcileOutcome = "applied"
	ReconcileDuplicate ReconcileOutcome = "duplicate"
	ReconcileIgnored   ReconcileOutcome = "ignored"
	ReconcileUnknown   ReconcileOutcome = "unknown_intent"
	ReconcileReversed  ReconcileOutcome = "reversed"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	OrderID uuid.UUID        `json:"order_id,omitempty"`
	Status  OrderStatus      `json:"status,omitempty"`
}

// TransactionDetails is the gateway's authoritative view of an intent.
type TransactionDetails struct {
	IntentID     string
	Status       GatewayStatus
	RawStatus    string
	AmountMinor  int64
	Currency     string
	ClientSecret string
	CreatedAt    time.Time
}
