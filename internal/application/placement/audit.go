package placement

import (
	"context"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
	"github.com/farmtrack/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Audit scans the entity population and classifies every entity into duplicates,
// desyncs, unplaced, or in sync. It never writes.
func (s *PlacementService) Audit(ctx context.Context, req AuditRequest) (*placement.AuditReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "placement", "audit")
	defer span.End()

	activeOnly := s.opts.ActiveOnly
	if req.ActiveOnly != nil {
		activeOnly = *req.ActiveOnly
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrActiveOnly, activeOnly)

	if s.cache != nil && !req.Refresh {
		cached, ok, err := s.cache.Get(ctx, activeOnly)
		if err != nil {
			s.logger.Warn("Audit cache read failed", zap.Error(err))
		} else if ok {
			telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, true)
			return cached, nil
		}
	}

	started := time.Now()
	rows, err := s.auditSrc.ScanOpenPlacements(ctx, activeOnly)
	if err != nil {
		err = storeErr("audit scan", err)
		telemetry.RecordError(span, err)
		s.logger.Error("Audit scan failed", zap.Error(err))
		return nil, err
	}
	report := placement.Classify(rows)
	counts := report.Counts()
	s.metrics.RecordAudit(ctx, counts, report.Scanned, time.Since(started))

	telemetry.SetAttributes(span,
		"scanned", report.Scanned,
		"duplicates", counts.Duplicates,
		"desyncs", counts.Desyncs,
		"unplaced", counts.Unplaced,
	)
	s.logger.Info("Placement audit completed",
		zap.Bool("active_only", activeOnly),
		zap.Int("scanned", report.Scanned),
		zap.Int("duplicates", counts.Duplicates),
		zap.Int("desyncs", counts.Desyncs),
		zap.Int("unplaced", counts.Unplaced),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, activeOnly, &report); err != nil {
			s.logger.Warn("Audit cache write failed", zap.Error(err))
		}
	}
	return &report, nil
}
