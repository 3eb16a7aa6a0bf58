package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/farmtrack/backend/internal/infrastructure/logger"
	"github.com/farmtrack/backend/internal/infrastructure/persistence"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// PoolReporter is implemented by databases that expose connection pool figures
type PoolReporter interface {
	Stats() (persistence.ConnectionStats, error)
}

// PingerFunc adapts a context-aware ping function
type PingerFunc func(ctx context.Context) error

// HealthHandler answers liveness checks
type HealthHandler struct {
	db      Pinger
	checks  map[string]PingerFunc
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a health handler over the database and any
// optional named dependency checks
func NewHealthHandler(db Pinger, checks map[string]PingerFunc) *HealthHandler {
	return &HealthHandler{
		db:      db,
		checks:  checks,
		started: time.Now(),
		now:     time.Now,
	}
}

// Health reports 503 when the database is unreachable. Optional checks only
// degrade the status. Pool figures are included when the database reports them.
func (h *HealthHandler) Health(c *gin.Context) {
	reqLog := logger.GetGinLogger(c)
	body := gin.H{
		"time":   h.now().UTC().Format(time.RFC3339),
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}

	if err := h.db.Ping(); err != nil {
		reqLog.Warn("Health check failed", zap.Error(err))
		body["status"] = "unhealthy"
		body["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "healthy"
	body["database"] = "ok"
	if r, ok := h.db.(PoolReporter); ok {
		if stats, err := r.Stats(); err == nil {
			body["pool"] = gin.H{
				"max_open":   stats.MaxOpenConnections,
				"open":       stats.OpenConnections,
				"in_use":     stats.InUse,
				"idle":       stats.Idle,
				"wait_count": stats.WaitCount,
			}
		}
	}

	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			reqLog.Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
			body[name] = "error"
			body["status"] = "degraded"
			continue
		}
		body[name] = "ok"
	}
	c.JSON(http.StatusOK, body)
}
