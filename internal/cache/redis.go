// Package cache holds the Redis-backed pieces: rate limits, webhook
// dedupe keys and the shared client used by the event stream.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this application writes, so one Redis
// database can be shared with other services.
const KeyPrefix = "logicloom:"

// Key joins parts with ":" under KeyPrefix, e.g. Key("stripe", "event", id)
// is "logicloom:stripe:event:<id>".
func Key(parts ...string) string {
	return KeyPrefix + strings.Join(parts, ":")
}

// Cache provides Redis cache access methods.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and pings it. The client is closed again when
// the ping fails.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := clientOptions(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// clientOptions parses redisURL and applies the pool sizing shared by the
// rate limiter, the webhook dedupe keys and the event stream.
func clientOptions(redisURL string) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	return opt, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying client for callers that speak raw
// commands, such as the event stream publisher and worker.
func (c *Cache) Client() *redis.Client {
	return c.client
}
