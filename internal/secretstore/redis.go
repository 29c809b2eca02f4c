package secretstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"keyshelf/internal/domain"
)

// RedisKeyPrefix namespaces vault entries in a shared Redis database.
const RedisKeyPrefix = "keyshelf:secret:"

var _ Backend = (*RedisBackend)(nil)

// RedisBackend keeps ciphertext in Redis so several keyshelf instances can
// share one secret backend. Entries never expire.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, options *redis.Options) (*RedisBackend, error) {
	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBackend{client: client}, nil
}

// Save stores ciphertext under handle. An existing entry is never overwritten.
func (b *RedisBackend) Save(ctx context.Context, handle domain.SecretHandle, ciphertext string) error {
	ok, err := b.client.SetNX(ctx, redisKey(handle), ciphertext, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return fmt.Errorf("secret handle %q already exists", handle)
	}
	return nil
}

// Load returns the ciphertext stored under handle.
func (b *RedisBackend) Load(ctx context.Context, handle domain.SecretHandle) (string, error) {
	v, err := b.client.Get(ctx, redisKey(handle)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrHandleNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Remove deletes the entry stored under handle.
func (b *RedisBackend) Remove(ctx context.Context, handle domain.SecretHandle) error {
	n, err := b.client.Del(ctx, redisKey(handle)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return ErrHandleNotFound
	}
	return nil
}

// Close releases the Redis connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func redisKey(handle domain.SecretHandle) string {
	return RedisKeyPrefix + string(handle)
}
