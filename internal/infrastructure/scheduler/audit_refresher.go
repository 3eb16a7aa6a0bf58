// Package scheduler runs background jobs against the placement engine.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	placementapp "github.com/farmtrack/backend/internal/application/placement"
	"github.com/farmtrack/backend/internal/domain/placement"
)

// Auditor runs a placement audit
type Auditor interface {
	Audit(ctx context.Context, req placementapp.AuditRequest) (*placement.AuditReport, error)
}

// AuditRefresherConfig holds configuration for the audit refresher
type AuditRefresherConfig struct {
	// Interval between audit runs
	Interval time.Duration

	// RunTimeout bounds a single audit run. Zero means Interval.
	RunTimeout time.Duration

	// RunOnStart triggers one audit immediately after Start
	RunOnStart bool
}

// AuditRefresher periodically recomputes the audit report so the cached
// copy served to the dashboard stays warm.
type AuditRefresher struct {
	config  AuditRefresherConfig
	auditor Auditor
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
	lastErr   error
}

// NewAuditRefresher creates a new audit refresher
func NewAuditRefresher(config AuditRefresherConfig, auditor Auditor, logger *zap.Logger) (*AuditRefresher, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if config.RunTimeout < 0 {
		return nil, fmt.Errorf("%w: run timeout cannot be negative", ErrInvalidConfig)
	}
	if config.RunTimeout == 0 {
		config.RunTimeout = config.Interval
	}
	return &AuditRefresher{
		config:  config,
		auditor: auditor,
		logger:  logger,
	}, nil
}

// Start starts the refresh loop. Calling Start on a running refresher is a no-op.
func (r *AuditRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.runLoop(ctx)

	r.logger.Info("Audit refresher started",
		zap.Duration("interval", r.config.Interval),
		zap.Bool("run_on_start", r.config.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish or ctx to expire
func (r *AuditRefresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Audit refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastRun reports when the last run finished and its error, if any
func (r *AuditRefresher) LastRun() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}

func (r *AuditRefresher) runLoop(ctx context.Context) {
	defer r.wg.Done()

	if r.config.RunOnStart {
		r.RunOnce(ctx)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single refreshing audit
func (r *AuditRefresher) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, r.config.RunTimeout)
	defer cancel()

	start := time.Now()
	report, err := r.auditor.Audit(runCtx, placementapp.AuditRequest{Refresh: true})

	r.mu.Lock()
	r.lastRun = time.Now()
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("Scheduled audit failed", zap.Error(err))
		return
	}

	counts := report.Counts()
	r.logger.Info("Scheduled audit completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("duplicates", counts.Duplicates),
		zap.Int("desyncs", counts.Desyncs),
		zap.Int("unplaced", counts.Unplaced),
		zap.Duration("duration", time.Since(start)),
	)
}
