package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/infrastructure/config"
)

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// RedisAuditCache stores JSON-encoded audit reports in Redis so every service
// instance sees the same cached audit and the same invalidations.
type RedisAuditCache struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

// NewRedisAuditCache wraps client. An empty prefix selects the default.
func NewRedisAuditCache(client redis.Cmdable, keyPrefix string, ttl time.Duration) *RedisAuditCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisAuditCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (c *RedisAuditCache) key(activeOnly bool) string {
	return c.keyPrefix + scopeKey(activeOnly)
}

func (c *RedisAuditCache) Get(ctx context.Context, activeOnly bool) (*placement.AuditReport, bool, error) {
	if c.ttl <= 0 {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(activeOnly)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached audit: %w", err)
	}

	var report placement.AuditReport
	if err := json.Unmarshal(raw, &report); err != nil {
		// A stale or foreign payload is treated as a miss and cleared.
		_ = c.client.Del(ctx, c.key(activeOnly)).Err()
		return nil, false, nil
	}
	return &report, true, nil
}

func (c *RedisAuditCache) Set(ctx context.Context, activeOnly bool, report *placement.AuditReport) error {
	if c.ttl <= 0 || report == nil {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode audit: %w", err)
	}
	if err := c.client.Set(ctx, c.key(activeOnly), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache audit: %w", err)
	}
	return nil
}

// Invalidate deletes both scopes.
func (c *RedisAuditCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key(true), c.key(false)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached audit: %w", err)
	}
	return nil
}

// Ping checks that Redis answers; used by the health endpoint.
func (c *RedisAuditCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
