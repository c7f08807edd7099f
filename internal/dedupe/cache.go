/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */

// Package dedupe is a Redis-backed first-seen cache used to suppress repeat
// alerts inside a TTL window. The whole component is optional: when no Redis
// is configured the flows run without it and alert on every match.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "linear-connector:dedupe:"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection before returning.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("dedupe: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("dedupe: ping redis: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client, used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

// FirstSeen records the key and reports whether it was new. The TTL starts
// at first sight and is not refreshed by later checks.
func (c *Cache) FirstSeen(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, keyPrefix+key, "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: setnx: %w", err)
	}
	return ok, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
