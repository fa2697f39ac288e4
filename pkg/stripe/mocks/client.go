package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	stripe_client "github.com/aaravmahajanofficial/storefront-checkout/pkg/stripe"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v81"
)

// MockClient is a mock type for the stripe Client type.
type MockClient struct {
	mock.Mock
}

func (_m *MockClient) CreatePaymentIntent(ctx context.Context, params *stripe_client.IntentParams) (*stripe.PaymentIntent, error) {
	ret := _m.Called(ctx, params)

	if rf, ok := ret.Get(0).(func(context.Context, *stripe_client.IntentParams) (*stripe.PaymentIntent, error)); ok {
		return rf(ctx, params)
	}

	r0, _ := ret.Get(0).(*stripe.PaymentIntent)

	return r0, ret.Error(1)
}

func (_m *MockClient) GetTransactionDetails(ctx context.Context, intentID string) (*models.TransactionDetails, error) {
	ret := _m.Called(ctx, intentID)

	r0, _ := ret.Get(0).(*models.TransactionDetails)

	return r0, ret.Error(1)
}

func (_m *MockClient) CancelPaymentIntent(ctx context.Context, intentID string) error {
	ret := _m.Called(ctx, intentID)

	return ret.Error(0)
}

func (_m *MockClient) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) (*stripe.Refund, error) {
	ret := _m.Called(ctx, paymentIntentID, amount)

	r0, _ := ret.Get(0).(*stripe.Refund)

	return r0, ret.Error(1)
}

func (_m *MockClient) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	ret := _m.Called(payload, signature)

	r0, _ := ret.Get(0).(stripe.Event)

	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ stripe_client.Client = (*MockClient)(nil)
