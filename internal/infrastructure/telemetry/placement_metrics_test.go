package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/farmtrack/backend/internal/domain/placement"
)

func newTestMetrics(t *testing.T) (*PlacementMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewPlacementMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestPlacementMetrics_RecordAudit(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAudit(ctx, placement.FindingCounts{Duplicates: 1, Desyncs: 2, Unplaced: 3}, 40, 120*time.Millisecond)

	data := collect(t, reader)

	findings, ok := data["placement.audit.findings"].(metricdata.Gauge[int64])
	require.True(t, ok)
	byClass := map[string]int64{}
	for _, dp := range findings.DataPoints {
		class, _ := dp.Attributes.Value(AttrFindingClass)
		byClass[class.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"duplicate": 1, "desync": 2, "unplaced": 3}, byClass)

	scanned, ok := data["placement.audit.scanned"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, scanned.DataPoints, 1)
	assert.Equal(t, int64(40), scanned.DataPoints[0].Value)

	hist, ok := data["placement.audit.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.12, hist.DataPoints[0].Sum, 1e-9)
}

func TestPlacementMetrics_RecordReconcileOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordReconcileOutcome(ctx, "applied", "")
	m.RecordReconcileOutcome(ctx, "applied", "")
	m.RecordReconcileOutcome(ctx, "failed", "CONCURRENT_MUTATION")

	sum, ok := collect(t, reader)["placement.reconcile.outcomes"].(metricdata.Sum[int64])
	require.True(t, ok)

	applied := attribute.NewSet(AttrOutcome.String("applied"))
	failed := attribute.NewSet(AttrOutcome.String("failed"), AttrErrorCode.String("CONCURRENT_MUTATION"))
	got := map[attribute.Distinct]int64{}
	for _, dp := range sum.DataPoints {
		got[dp.Attributes.Equivalent()] = dp.Value
	}
	assert.Equal(t, int64(2), got[applied.Equivalent()])
	assert.Equal(t, int64(1), got[failed.Equivalent()])
}
