package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/stretchr/testify/mock"
)

// NotificationService is a mock type for the NotificationService type
type NotificationService struct {
	mock.Mock
}

// SendEmail provides a mock function with given fields: ctx, req
func (_m *NotificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error) {
	ret := _m.Called(ctx, req)

	var r0 *models.Notification
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Notification)
	}

	return r0, ret.Error(1)
}

// NotifyOrderEvent provides a mock function with given fields: ctx, event
func (_m *NotificationService) NotifyOrderEvent(ctx context.Context, event events.Event) error {
	ret := _m.Called(ctx, event)

	return ret.Error(0)
}
