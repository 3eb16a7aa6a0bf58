package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/farmtrack/backend/internal/domain/placement"
)

// MeterName is the instrumentation scope for placement metrics.
const MeterName = "github.com/farmtrack/backend/placement"

// PlacementMetrics records audit and reconcile measurements.
type PlacementMetrics struct {
	findings      *Gauge
	scanned       *Gauge
	auditDuration *Histogram
	outcomes      *Counter
}

// NewPlacementMetrics registers the placement instruments on meter.
func NewPlacementMetrics(meter metric.Meter) (*PlacementMetrics, error) {
	findings, err := NewGauge(meter, "placement.audit.findings", "Findings reported by the last audit, by class", "{entity}")
	if err != nil {
		return nil, err
	}
	scanned, err := NewGauge(meter, "placement.audit.scanned", "Entities examined by the last audit", "{entity}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, "placement.audit.duration", "Audit scan latency", "s", AuditDurationBuckets...)
	if err != nil {
		return nil, err
	}
	outcomes, err := NewCounter(meter, "placement.reconcile.outcomes", "Reconcile outcomes by result and error code", "{entity}")
	if err != nil {
		return nil, err
	}
	return &PlacementMetrics{
		findings:      findings,
		scanned:       scanned,
		auditDuration: duration,
		outcomes:      outcomes,
	}, nil
}

// RecordAudit publishes the finding counts of a completed audit.
func (m *PlacementMetrics) RecordAudit(ctx context.Context, counts placement.FindingCounts, scanned int, elapsed time.Duration) {
	m.findings.Record(ctx, int64(counts.Duplicates), AttrFindingClass.String(string(placement.FindingDuplicate)))
	m.findings.Record(ctx, int64(counts.Desyncs), AttrFindingClass.String(string(placement.FindingDesync)))
	m.findings.Record(ctx, int64(counts.Unplaced), AttrFindingClass.String(string(placement.FindingUnplaced)))
	m.scanned.Record(ctx, int64(scanned))
	m.auditDuration.RecordDuration(ctx, elapsed)
}

// RecordReconcileOutcome counts one per-entity reconcile result.
func (m *PlacementMetrics) RecordReconcileOutcome(ctx context.Context, outcome, code string) {
	attrs := []attribute.KeyValue{AttrOutcome.String(outcome)}
	if code != "" {
		attrs = append(attrs, AttrErrorCode.String(code))
	}
	m.outcomes.Inc(ctx, attrs...)
}
