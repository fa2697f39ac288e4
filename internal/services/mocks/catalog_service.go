package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// CatalogService is a mock type for the CatalogService type
type CatalogService struct {
	mock.Mock
}

// GetProduct provides a mock function with given fields: ctx, id
func (_m *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Product
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Product)
	}

	return r0, ret.Error(1)
}

// GetActiveProduct provides a mock function with given fields: ctx, id
func (_m *CatalogService) GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Product
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Product)
	}

	return r0, ret.Error(1)
}

// ReserveStock provides a mock function with given fields: ctx, lines
func (_m *CatalogService) ReserveStock(ctx context.Context, lines []service.StockLine) error {
	return _m.Called(ctx, lines).Error(0)
}

// ReleaseStock provides a mock function with given fields: ctx, lines
func (_m *CatalogService) ReleaseStock(ctx context.Context, lines []service.StockLine) {
	_m.Called(ctx, lines)
}
