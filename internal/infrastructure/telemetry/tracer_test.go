package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, Config{ServiceName: "farmtrack-placement"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.Nil(t, p.Logs.Core("farmtrack", 0))
	assert.NotNil(t, p.Tracer.Tracer("x"))
	assert.NotNil(t, p.Meter.Meter("x"))
	assert.NoError(t, p.Tracer.ForceFlush(ctx))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestMeterProvider_NeedsBothSwitches(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), Config{Enabled: false, MetricsEnabled: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := samplerFor(tt.ratio).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, "root:"+tt.want)
	}
}

func TestServiceResource(t *testing.T) {
	res, err := serviceResource(Config{ServiceName: "farmtrack-placement"})
	require.NoError(t, err)

	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "farmtrack-placement", values["service.name"])
	assert.Equal(t, "dev", values["service.version"])
}

func TestTracerProvider_EnableSpanProfiles(t *testing.T) {
	disabled := &TracerProvider{logger: zap.NewNop()}
	disabled.EnableSpanProfiles()
	assert.False(t, disabled.SpanProfilesEnabled())

	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	sdk := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = sdk.Shutdown(context.Background()) })
	tp := &TracerProvider{provider: sdk, logger: zap.NewNop()}

	tp.EnableSpanProfiles()
	tp.EnableSpanProfiles()
	assert.True(t, tp.SpanProfilesEnabled())
	assert.NotSame(t, sdk, otel.GetTracerProvider())
}
