package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// RateLimitRepository is a mock type for the RateLimitRepository type
type RateLimitRepository struct {
	mock.Mock
}

// CheckRateLimit provides a mock function with given fields: ctx, scope, subject
func (_m *RateLimitRepository) CheckRateLimit(ctx context.Context, scope string, subject string) (bool, int, int, error) {
	ret := _m.Called(ctx, scope, subject)

	return ret.Bool(0), ret.Int(1), ret.Int(2), ret.Error(3)
}

// CheckLoginRateLimit provides a mock function with given fields: ctx, username
func (_m *RateLimitRepository) CheckLoginRateLimit(ctx context.Context, username string) (bool, int, int, error) {
	ret := _m.Called(ctx, username)

	return ret.Bool(0), ret.Int(1), ret.Int(2), ret.Error(3)
}
