// Package cache provides an optional Redis-backed read cache for the
// public project projection. The authoritative data always lives in
// Postgres; a cold or unreachable cache only costs a store read.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type PublicViewCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPublicViewCache connects to Redis and verifies the connection.
func NewPublicViewCache(redisURL string, ttl time.Duration) (*PublicViewCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewPublicViewCacheWithClient(client, ttl), nil
}

// NewPublicViewCacheWithClient creates a cache from an existing client.
func NewPublicViewCacheWithClient(client *redis.Client, ttl time.Duration) *PublicViewCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PublicViewCache{
		client: client,
		prefix: "public-project:",
		ttl:    ttl,
	}
}

func (c *PublicViewCache) key(projectID string) string {
	return c.prefix + projectID
}

// Get returns the cached view payload, or nil on a miss.
func (c *PublicViewCache) Get(ctx context.Context, projectID string) ([]byte, error) {
	payload, err := c.client.Get(ctx, c.key(projectID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get public view: %w", err)
	}
	return payload, nil
}

// Set stores the view payload with the configured TTL.
func (c *PublicViewCache) Set(ctx context.Context, projectID string, payload []byte) error {
	if err := c.client.Set(ctx, c.key(projectID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set public view: %w", err)
	}
	return nil
}

// Invalidate drops the cached view after any project mutation.
func (c *PublicViewCache) Invalidate(ctx context.Context, projectID string) error {
	if err := c.client.Del(ctx, c.key(projectID)).Err(); err != nil {
		return fmt.Errorf("invalidate public view: %w", err)
	}
	return nil
}

func (c *PublicViewCache) Close() error {
	return c.client.Close()
}

func (c *PublicViewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
