package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value; a non-positive ttl falls back to the configured default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// SetIfAbsent stores value only when key holds nothing and reports
	// whether it did.
	SetIfAbsent(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

const (
	CartKeyPrefix    = "cart"
	ProductKeyPrefix = "product"
)

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

func CartKey(userID uuid.UUID) string {
	return Key(CartKeyPrefix, userID.String())
}
