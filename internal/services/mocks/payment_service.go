package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// PaymentService is a mock type for the PaymentService type
type PaymentService struct {
	mock.Mock
}

func reconcileResult(ret mock.Arguments) (*models.ReconcileResult, error) {
	var r0 *models.ReconcileResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.ReconcileResult)
	}

	return r0, ret.Error(1)
}

func order(ret mock.Arguments) (*models.Order, error) {
	var r0 *models.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Order)
	}

	return r0, ret.Error(1)
}

// CreateIntent provides a mock function with given fields: ctx, actor, orderID
func (_m *PaymentService) CreateIntent(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.PaymentIntentResponse, error) {
	ret := _m.Called(ctx, actor, orderID)

	var r0 *models.PaymentIntentResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.PaymentIntentResponse)
	}

	return r0, ret.Error(1)
}

// HandleStripeWebhook provides a mock function with given fields: ctx, payload, signature
func (_m *PaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*models.ReconcileResult, error) {
	return reconcileResult(_m.Called(ctx, payload, signature))
}

// HandlePaywayWebhook provides a mock function with given fields: ctx, payload, signature
func (_m *PaymentService) HandlePaywayWebhook(ctx context.Context, payload []byte, signature string) (*models.ReconcileResult, error) {
	return reconcileResult(_m.Called(ctx, payload, signature))
}

// ReconcileWebhook provides a mock function with given fields: ctx, event
func (_m *PaymentService) ReconcileWebhook(ctx context.Context, event *models.GatewayEvent) (*models.ReconcileResult, error) {
	return reconcileResult(_m.Called(ctx, event))
}

// ConfirmPayment provides a mock function with given fields: ctx, actor, intentID
func (_m *PaymentService) ConfirmPayment(ctx context.Context, actor models.Actor, intentID string) (*models.ReconcileResult, error) {
	return reconcileResult(_m.Called(ctx, actor, intentID))
}

// GetOrderByIntent provides a mock function with given fields: ctx, actor, intentID
func (_m *PaymentService) GetOrderByIntent(ctx context.Context, actor models.Actor, intentID string) (*models.Order, error) {
	return order(_m.Called(ctx, actor, intentID))
}

// CancelOrder provides a mock function with given fields: ctx, actor, orderID, reason
func (_m *PaymentService) CancelOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	return order(_m.Called(ctx, actor, orderID, reason))
}

// RefundOrder provides a mock function with given fields: ctx, actor, orderID, reason
func (_m *PaymentService) RefundOrder(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	return order(_m.Called(ctx, actor, orderID, reason))
}
