package stripe_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	stripe_client "github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string) (string, []byte) {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})

	return signed.Header, signed.Payload
}

func eventJSON(id, eventType, object string) string {
	return fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":%s}}`, id, eventType, object)
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := stripe_client.NewStripeClient("sk_test", testSecret)

	t.Run("Valid signature", func(t *testing.T) {
		header, body := signedPayload(t, eventJSON("evt_1", "payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent"}`))

		event, err := client.VerifyWebhookSignature(body, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
	})

	t.Run("Tampered body", func(t *testing.T) {
		header, _ := signedPayload(t, eventJSON("evt_1", "payment_intent.succeeded", `{"id":"pi_1"}`))

		_, err := client.VerifyWebhookSignature([]byte(eventJSON("evt_1", "payment_intent.succeeded", `{"id":"pi_2"}`)), header)
		assert.Error(t, err)
	})

	t.Run("Missing secret", func(t *testing.T) {
		noSecret := stripe_client.NewStripeClient("sk_test", "")

		_, err := noSecret.VerifyWebhookSignature([]byte("{}"), "t=1,v1=abc")
		assert.ErrorIs(t, err, stripe_client.ErrWebhookSecretMissing)
	})
}

func TestParseEvent(t *testing.T) {
	client := stripe_client.NewStripeClient("sk_test", testSecret)

	tests := []struct {
		name       string
		eventType  string
		object     string
		wantOK     bool
		wantErr    bool
		wantIntent string
		wantStatus models.GatewayStatus
	}{
		{"Succeeded", "payment_intent.succeeded", `{"id":"pi_ok"}`, true, false, "pi_ok", models.GatewayStatusCompleted},
		{"Failed", "payment_intent.payment_failed", `{"id":"pi_fail"}`, true, false, "pi_fail", models.GatewayStatusFailed},
		{"Canceled", "payment_intent.canceled", `{"id":"pi_cxl"}`, true, false, "pi_cxl", models.GatewayStatusCancelled},
		{"Refunded charge", "charge.refunded", `{"id":"ch_1","payment_intent":"pi_ref"}`, true, false, "pi_ref", models.GatewayStatusRefunded},
		{"Refund without intent", "charge.refunded", `{"id":"ch_2"}`, false, true, "", ""},
		{"Ignored type", "customer.created", `{"id":"cus_1"}`, false, false, "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			header, body := signedPayload(t, eventJSON("evt_"+tc.name, tc.eventType, tc.object))

			event, err := client.VerifyWebhookSignature(body, header)
			require.NoError(t, err)

			parsed, ok, err := stripe_client.ParseEvent(event)
			if tc.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)

			if tc.wantOK {
				assert.Equal(t, tc.wantIntent, parsed.IntentID)
				assert.Equal(t, tc.wantStatus, parsed.Status)
				assert.Equal(t, "evt_"+tc.name, parsed.Key)
				assert.Equal(t, models.EventSourceStripe, parsed.Source)
			}
		})
	}
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(3850), stripe_client.ToMinorUnits(decimal.RequireFromString("38.50")))
	assert.Equal(t, int64(1000), stripe_client.ToMinorUnits(decimal.NewFromInt(10)))
	assert.Equal(t, int64(101), stripe_client.ToMinorUnits(decimal.RequireFromString("1.005")))
}

func TestMapIntentStatus(t *testing.T) {
	assert.Equal(t, models.GatewayStatusCompleted, stripe_client.MapIntentStatus(&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded}))
	assert.Equal(t, models.GatewayStatusCancelled, stripe_client.MapIntentStatus(&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusCanceled}))
	assert.Equal(t, models.GatewayStatusProcessing, stripe_client.MapIntentStatus(&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod}))
	assert.Equal(t, models.GatewayStatusFailed, stripe_client.MapIntentStatus(&stripe.PaymentIntent{
		Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{Msg: "card declined"},
	}))
	assert.Equal(t, models.GatewayStatusProcessing, stripe_client.MapIntentStatus(&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusProcessing}))
}

func TestIsUnavailable(t *testing.T) {
	assert.False(t, stripe_client.IsUnavailable(nil))
	assert.True(t, stripe_client.IsUnavailable(&stripe.Error{HTTPStatusCode: 503}))
	assert.True(t, stripe_client.IsUnavailable(&stripe.Error{HTTPStatusCode: 429}))
	assert.False(t, stripe_client.IsUnavailable(&stripe.Error{HTTPStatusCode: 402}))
	assert.True(t, stripe_client.IsUnavailable(fmt.Errorf("call: %w", context.DeadlineExceeded)))
}
