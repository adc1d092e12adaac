package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis. Expiry is delegated to Redis TTLs.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis server at url
// (e.g. "redis://localhost:6379/0") and verifies the connection.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in Redis. A zero ttl keeps the key until evicted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes a key from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Clear deletes every key matching pattern (e.g. "tracegraph:image:*")
// and returns the number of keys removed.
func (c *RedisCache) Clear(ctx context.Context, pattern string) (int, error) {
	var count int
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := c.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return count, err
		}
		count += int(n)
	}
	return count, iter.Err()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
