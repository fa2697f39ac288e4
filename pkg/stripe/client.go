package stripe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
)

type Event = stripe.Event

type PaymentIntent = stripe.PaymentIntent

// Stripe event types the checkout core reconciles.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
	EventChargeRefunded  = "charge.refunded"
)

var ErrWebhookSecretMissing = errors.New("webhook secret not configured")

// IntentParams describes a payment intent for one order.
type IntentParams struct {
	Amount         int64
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

// defines the methods that any of payment client must implement.
type Client interface {
	CreatePaymentIntent(ctx context.Context, params *IntentParams) (*PaymentIntent, error)
	GetTransactionDetails(ctx context.Context, intentID string) (*models.TransactionDetails, error)
	CancelPaymentIntent(ctx context.Context, intentID string) error
	RefundPayment(ctx context.Context, paymentIntentID string, amount int64) (*stripe.Refund, error)
	VerifyWebhookSignature(payload []byte, signature string) (Event, error)
}

// stripeClient is the implementation of the Client interface.
type stripeClient struct {
	webhookSecret string
}

func NewStripeClient(apiKey string, webhookSecret string) Client {
	stripe.Key = apiKey

	return &stripeClient{webhookSecret: webhookSecret}
}

// CreatePaymentIntent implements Client. The idempotency key is forwarded as
// Stripe's Idempotency-Key header, so a retried call returns the same intent.
func (s *stripeClient) CreatePaymentIntent(ctx context.Context, in *IntentParams) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(in.Amount),
		Currency:    stripe.String(in.Currency),
		Description: stripe.String(in.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	return paymentintent.New(params)
}

// GetTransactionDetails implements Client.
func (s *stripeClient) GetTransactionDetails(ctx context.Context, intentID string) (*models.TransactionDetails, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, err
	}

	return DetailsFromIntent(pi), nil
}

// CancelPaymentIntent implements Client.
func (s *stripeClient) CancelPaymentIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonRequestedByCustomer)),
	}
	params.Context = ctx

	_, err := paymentintent.Cancel(intentID, params)

	return err
}

// RefundPayment implements Client. A zero amount refunds the full charge.
func (s *stripeClient) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) (*stripe.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + paymentIntentID)

	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}

	return refund.New(params)
}

// VerifyWebhookSignature implements Client.
func (s *stripeClient) VerifyWebhookSignature(payload []byte, signature string) (Event, error) {
	if s.webhookSecret == "" {
		return Event{}, ErrWebhookSecretMissing
	}

	return webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// ToMinorUnits converts a major-unit amount to the gateway's smallest unit,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// MapIntentStatus reduces a Stripe intent status to a gateway outcome.
func MapIntentStatus(pi *PaymentIntent) models.GatewayStatus {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.GatewayStatusCompleted
	case stripe.PaymentIntentStatusCanceled:
		return models.GatewayStatusCancelled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return models.GatewayStatusFailed
		}
	}

	return models.GatewayStatusProcessing
}

func DetailsFromIntent(pi *PaymentIntent) *models.TransactionDetails {
	return &models.TransactionDetails{
		IntentID:     pi.ID,
		Status:       MapIntentStatus(pi),
		RawStatus:    string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		ClientSecret: pi.ClientSecret,
		CreatedAt:    time.Unix(pi.Created, 0).UTC(),
	}
}

// ParseEvent normalizes a verified Stripe event. ok is false for event types
// the checkout core does not act on.
func ParseEvent(event Event) (*models.GatewayEvent, bool, error) {
	var status models.GatewayStatus

	field := "id"

	switch string(event.Type) {
	case EventIntentSucceeded:
		status = models.GatewayStatusCompleted
	case EventIntentFailed:
		status = models.GatewayStatusFailed
	case EventIntentCanceled:
		status = models.GatewayStatusCancelled
	case EventChargeRefunded:
		status = models.GatewayStatusRefunded
		field = "payment_intent"
	default:
		return nil, false, nil
	}

	if event.Data == nil {
		return nil, false, errors.New("event carries no data object")
	}

	intentID, _ := event.Data.Object[field].(string)
	if intentID == "" {
		return nil, false, fmt.Errorf("missing %s in %s event", field, event.Type)
	}

	return &models.GatewayEvent{
		Key:      event.ID,
		IntentID: intentID,
		Status:   status,
		Source:   models.EventSourceStripe,
	}, true, nil
}

// IsUnavailable reports whether err means the gateway could not be reached
// or is temporarily failing, as opposed to rejecting the request.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 429
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
