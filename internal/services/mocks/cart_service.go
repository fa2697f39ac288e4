package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// CartService is a mock type for the CartService type
type CartService struct {
	mock.Mock
}

func (_m *CartService) cart(ret mock.Arguments) (*models.Cart, error) {
	var r0 *models.Cart
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Cart)
	}

	return r0, ret.Error(1)
}

// GetCart provides a mock function with given fields: ctx, userID
func (_m *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return _m.cart(_m.Called(ctx, userID))
}

// AddItem provides a mock function with given fields: ctx, userID, req
func (_m *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	return _m.cart(_m.Called(ctx, userID, req))
}

// UpdateItem provides a mock function with given fields: ctx, userID, req
func (_m *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, req *models.UpdateItemRequest) (*models.Cart, error) {
	return _m.cart(_m.Called(ctx, userID, req))
}

// RemoveItem provides a mock function with given fields: ctx, userID, req
func (_m *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, req *models.RemoveItemRequest) (*models.Cart, error) {
	return _m.cart(_m.Called(ctx, userID, req))
}

// ClearCart provides a mock function with given fields: ctx, userID
func (_m *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	ret := _m.Called(ctx, userID)

	return ret.Error(0)
}
