package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned by Release when the lock expired or was taken over.
var ErrLockNotHeld = errors.New("lock not held")

// LockRepository hands out short-lived, owner-tagged Redis locks.
type LockRepository interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type redisLockRepository struct {
	client redis.Cmdable
}

// Deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewLockRepo(client redis.Cmdable) LockRepository {
	return &redisLockRepository{client: client}
}

func (r *redisLockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (r *redisLockRepository) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}

	if deleted == 0 {
		return ErrLockNotHeld
	}

	return nil
}

func CartLockKey(userID uuid.UUID) string {
	return "lock:cart:" + userID.String()
}

func CheckoutLockKey(userID uuid.UUID) string {
	return "lock:checkout:" + userID.String()
}
