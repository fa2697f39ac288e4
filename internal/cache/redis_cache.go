package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, cfg config.CacheConfig) Cache {
	return &redisCache{
		client: client,
		ttl:    cfg.DefaultTTL,
	}
}

func (r *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("failed to get key %s from redis: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache data for key %s: %w", key, err)
	}

	return true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {

	data, err := r.encode(key, value)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, data, r.expiry(ttl)).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in redis: %w", key, err)
	}

	return nil
}

func (r *redisCache) SetIfAbsent(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {

	data, err := r.encode(key, value)
	if err != nil {
		return false, err
	}

	stored, err := r.client.SetNX(ctx, key, data, r.expiry(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set key %s in redis: %w", key, err)
	}

	return stored, nil
}

func (r *redisCache) encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	return data, nil
}

func (r *redisCache) expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return r.ttl
	}

	return ttl
}

func (r *redisCache) Delete(ctx context.Context, key string) error {

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s from redis: %w", key, err)
	}

	return nil
}
