package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPromoExhausted       = errors.New("promo code usage limit reached")
	ErrPromoAlreadyRedeemed = errors.New("promo code already redeemed by user")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrIntentAlreadySet     = errors.New("payment intent already set")
	ErrStatusConflict       = errors.New("order status changed concurrently")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}

	return constraint == "" || pqErr.Constraint == constraint
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	return err
}
