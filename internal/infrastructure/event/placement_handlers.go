package event

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/domain/shared"
)

var placementEventTypes = []string{
	placement.EventTypeReconciled,
	placement.EventTypeMoved,
	placement.EventTypeClosed,
}

// PlacementEventLogger writes one structured log line per placement event
type PlacementEventLogger struct {
	logger *zap.Logger
}

func NewPlacementEventLogger(logger *zap.Logger) *PlacementEventLogger {
	return &PlacementEventLogger{logger: logger.Named("placement-events")}
}

func (h *PlacementEventLogger) EventTypes() []string { return placementEventTypes }

func (h *PlacementEventLogger) Handle(_ context.Context, ev shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", ev.EventID().String()),
		zap.String("entity_id", ev.AggregateID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
	}
	switch e := ev.(type) {
	case *placement.PlacementReconciled:
		fields = append(fields,
			zap.Stringer("resolution", e.Resolution),
			zap.Int("closed_periods", len(e.ClosedPeriods)),
			zap.Bool("opened", e.OpenedPeriodID != nil),
			zap.Stringp("mirror_zone_id", idString(e.MirrorZoneID)))
	case *placement.PlacementMoved:
		fields = append(fields,
			zap.Stringp("from_zone_id", idString(e.FromZoneID)),
			zap.String("to_zone_id", e.ToZoneID.String()),
			zap.String("period_id", e.PeriodID.String()))
	case *placement.PlacementClosed:
		fields = append(fields,
			zap.String("zone_id", e.ZoneID.String()),
			zap.String("period_id", e.PeriodID.String()))
	}
	h.logger.Info(ev.EventType(), fields...)
	return nil
}

// Invalidator drops cached audit reports
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// AuditCacheInvalidator clears the audit cache whenever a placement changes.
// It covers publishers other than the placement service, which already
// invalidates synchronously on its own writes.
type AuditCacheInvalidator struct {
	cache Invalidator
}

func NewAuditCacheInvalidator(cache Invalidator) *AuditCacheInvalidator {
	return &AuditCacheInvalidator{cache: cache}
}

func (h *AuditCacheInvalidator) EventTypes() []string { return placementEventTypes }

func (h *AuditCacheInvalidator) Handle(ctx context.Context, _ shared.DomainEvent) error {
	return h.cache.Invalidate(ctx)
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
