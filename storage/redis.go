package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter is a Redis-backed [Adapter] with a configurable key prefix.
// Suitable when the console runs next to an existing Redis deployment and
// sessions should survive host restarts independently of local disk.
type RedisAdapter struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisAdapter creates a [RedisAdapter]. prefix namespaces all keys
// (e.g. "authsession" stores "authsession:access_token").
func NewRedisAdapter(client redis.UniversalClient, prefix string) *RedisAdapter {
	return &RedisAdapter{
		redis:  client,
		prefix: prefix,
	}
}

func (a *RedisAdapter) key(key string) string {
	if a.prefix == "" {
		return key
	}
	return a.prefix + ":" + key
}

// Get returns the value stored under key, or [ErrKeyNotFound].
func (a *RedisAdapter) Get(ctx context.Context, key string) (string, error) {
	value, err := a.redis.Get(ctx, a.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

// Set stores value under key without expiration; session lifetime is owned by
// the engine, not the store.
func (a *RedisAdapter) Set(ctx context.Context, key, value string) error {
	if err := a.redis.Set(ctx, a.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (a *RedisAdapter) Remove(ctx context.Context, key string) error {
	if err := a.redis.Del(ctx, a.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
