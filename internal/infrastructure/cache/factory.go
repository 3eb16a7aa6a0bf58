package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	placementapp "github.com/farmtrack/backend/internal/application/placement"
	"github.com/farmtrack/backend/internal/infrastructure/config"
)

// NewAuditCache picks the audit cache backend. Redis is used when configured;
// outside production an unreachable Redis falls back to process memory.
// The returned cleanup releases the backend.
func NewAuditCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (placementapp.AuditCache, func() error, error) {
	ttl := cfg.Placement.AuditCacheTTL

	if cfg.RedisEnabled() && ttl > 0 {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			logger.Info("Using Redis audit cache",
				zap.String("addr", cfg.Redis.Addr()),
				zap.Duration("ttl", ttl))
			return NewRedisAuditCache(client, "", ttl), client.Close, nil
		}
		if cfg.App.Env == "production" {
			return nil, nil, fmt.Errorf("audit cache: %w", err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory audit cache", zap.Error(err))
	}

	mem := NewMemoryAuditCache(ttl)
	if ttl > 0 {
		logger.Info("Using in-memory audit cache", zap.Duration("ttl", ttl))
	}
	return mem, mem.Close, nil
}
