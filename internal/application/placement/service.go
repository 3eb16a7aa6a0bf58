package placement

import (
	"context"
	"errors"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Options tune the engine
type Options struct {
	ActiveOnly            bool
	ReconcileConcurrency  int
	ColocatedPreviewLimit int
	StalePolicy           placement.StalePolicy
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		ActiveOnly:            true,
		ReconcileConcurrency:  4,
		ColocatedPreviewLimit: 5,
		StalePolicy:           placement.StalePolicyExclude,
	}
}

// Repositories bundles the stores the engine reads from outside transactions
type Repositories struct {
	Entities   placement.EntityDirectory
	Zones      placement.ZoneDirectory
	Periods    placement.PeriodRepository
	Audit      placement.AuditSource
	Legacy     placement.LegacyLogReader
	Enrichment placement.EnrichmentSource
}

// PlacementService audits, reconciles, and narrates recorded placement
type PlacementService struct {
	entities   placement.EntityDirectory
	zones      placement.ZoneDirectory
	periods    placement.PeriodRepository
	auditSrc   placement.AuditSource
	legacy     placement.LegacyLogReader
	enrichment placement.EnrichmentSource
	txScope    TransactionScope
	durations  *placement.DurationResolver
	opts       Options
	logger     *zap.Logger

	eventPublisher shared.EventPublisher
	cache          AuditCache
	metrics        Metrics
	now            func() time.Time
}

// NewPlacementService creates a new PlacementService
func NewPlacementService(repos Repositories, txScope TransactionScope, opts Options, logger *zap.Logger) *PlacementService {
	if opts.ReconcileConcurrency < 1 {
		opts.ReconcileConcurrency = 1
	}
	if opts.StalePolicy == "" {
		opts.StalePolicy = placement.StalePolicyExclude
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PlacementService{
		entities:   repos.Entities,
		zones:      repos.Zones,
		periods:    repos.Periods,
		auditSrc:   repos.Audit,
		legacy:     repos.Legacy,
		enrichment: repos.Enrichment,
		txScope:    txScope,
		opts:       opts,
		logger:     logger,
		metrics:    noopMetrics{},
		now:        time.Now,
	}
	s.durations = placement.NewDurationResolver(func() time.Time { return s.now() })
	return s
}

// SetEventPublisher sets the publisher for placement events
func (s *PlacementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAuditCache enables audit report caching
func (s *PlacementService) SetAuditCache(cache AuditCache) {
	s.cache = cache
}

// SetMetrics sets the metrics recorder
func (s *PlacementService) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// SetClock overrides the service clock
func (s *PlacementService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *PlacementService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish placement events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func (s *PlacementService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate audit cache", zap.Error(err))
	}
}

// storeErr keeps domain errors and marks everything else as a store failure
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return placement.Unavailable(op, err)
}

// notFoundAs maps the generic not-found error to a specific one
func notFoundAs(err, specific error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return specific
	}
	return err
}
