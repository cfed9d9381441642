// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores JSON-encoded values in Redis under a common key
// prefix. The search aggregator uses it to reuse recent aggregate results.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "research-tool:"

// DefaultDialTimeout bounds the connection attempt to Redis.
const DefaultDialTimeout = 2 * time.Second

// RedisCache is a JSON value cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// New connects to Redis at cfg.Addr. It returns (nil, nil) when no address
// is configured so callers can treat the cache as optional.
func New(ctx context.Context, cfg types.CacheConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: DefaultDialTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisCache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get decodes the value under key into v. It reports false on a miss.
func (c *RedisCache) Get(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := c.client.Set(ctx, KeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
