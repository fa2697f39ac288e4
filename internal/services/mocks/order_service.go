package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// OrderService is a mock type for the OrderService type
type OrderService struct {
	mock.Mock
}

// CreateOrder provides a mock function with given fields: ctx, userID, req
func (_m *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.CreateOrderResult, error) {
	ret := _m.Called(ctx, userID, req)

	var r0 *models.CreateOrderResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.CreateOrderResult)
	}

	return r0, ret.Error(1)
}

// GetOrderByID provides a mock function with given fields: ctx, actor, id
func (_m *OrderService) GetOrderByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Order, error) {
	ret := _m.Called(ctx, actor, id)

	var r0 *models.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Order)
	}

	return r0, ret.Error(1)
}

// ListOrdersByCustomer provides a mock function with given fields: ctx, customerID, page, size
func (_m *OrderService) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, page int, size int) (*models.OrderHistoryResponse, error) {
	ret := _m.Called(ctx, customerID, page, size)

	var r0 *models.OrderHistoryResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.OrderHistoryResponse)
	}

	return r0, ret.Error(1)
}

// FulfillOrder provides a mock function with given fields: ctx, actor, id, trackingNumber
func (_m *OrderService) FulfillOrder(ctx context.Context, actor models.Actor, id uuid.UUID, trackingNumber string) (*models.Order, error) {
	ret := _m.Called(ctx, actor, id, trackingNumber)

	var r0 *models.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Order)
	}

	return r0, ret.Error(1)
}
