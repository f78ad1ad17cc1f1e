package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores computed views per user. Misses are not errors.
type Cache interface {
	Get(ctx context.Context, userID, view string, dst any) (bool, error)
	Set(ctx context.Context, userID, view string, value any, ttl time.Duration) error
	InvalidateUser(ctx context.Context, userID string) error
}

// RedisCache keeps every view in its own key and tracks a user's keys in a
// set so they can be dropped together.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "dashboard"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) viewKey(userID, view string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, userID, view)
}

func (c *RedisCache) indexKey(userID string) string {
	return fmt.Sprintf("%s:%s:keys", c.prefix, userID)
}

func (c *RedisCache) Get(ctx context.Context, userID, view string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, c.viewKey(userID, view)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID, view string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	key := c.viewKey(userID, view)
	index := c.indexKey(userID)

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		pipe.SAdd(ctx, index, key)
		pipe.Expire(ctx, index, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateUser(ctx context.Context, userID string) error {
	index := c.indexKey(userID)

	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("cache index: %w", err)
	}

	if err := c.client.Del(ctx, append(keys, index)...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// NoopCache is used when Redis is disabled.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, string, any) (bool, error) { return false, nil }

func (NoopCache) Set(context.Context, string, string, any, time.Duration) error { return nil }

func (NoopCache) InvalidateUser(context.Context, string) error { return nil }
