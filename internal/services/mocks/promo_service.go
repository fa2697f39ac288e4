package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// PromoService is a mock type for the PromoService type
type PromoService struct {
	mock.Mock
}

// Evaluate provides a mock function with given fields: ctx, code, userID, lines, currency
func (_m *PromoService) Evaluate(ctx context.Context, code string, userID uuid.UUID, lines []models.PromoLine, currency string) (*models.PromoEvaluation, error) {
	ret := _m.Called(ctx, code, userID, lines, currency)

	var r0 *models.PromoEvaluation
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.PromoEvaluation)
	}

	return r0, ret.Error(1)
}

// Redeem provides a mock function with given fields: ctx, code, userID, orderNumber
func (_m *PromoService) Redeem(ctx context.Context, code string, userID uuid.UUID, orderNumber string) error {
	return _m.Called(ctx, code, userID, orderNumber).Error(0)
}

// Release provides a mock function with given fields: ctx, code, userID
func (_m *PromoService) Release(ctx context.Context, code string, userID uuid.UUID) error {
	return _m.Called(ctx, code, userID).Error(0)
}
