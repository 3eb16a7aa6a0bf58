package placement

import (
	"context"
	"time"

	"github.com/farmtrack/backend/internal/domain/placement"
)

// AuditCache stores the last audit report. Implementations must tolerate being
// disabled; a miss is reported with ok=false and no error.
type AuditCache interface {
	Get(ctx context.Context, activeOnly bool) (report *placement.AuditReport, ok bool, err error)
	Set(ctx context.Context, activeOnly bool, report *placement.AuditReport) error
	Invalidate(ctx context.Context) error
}

// Metrics records engine measurements
type Metrics interface {
	RecordAudit(ctx context.Context, counts placement.FindingCounts, scanned int, elapsed time.Duration)
	RecordReconcileOutcome(ctx context.Context, outcome, code string)
}

type noopMetrics struct{}

func (noopMetrics) RecordAudit(context.Context, placement.FindingCounts, int, time.Duration) {}
func (noopMetrics) RecordReconcileOutcome(context.Context, string, string)                   {}
