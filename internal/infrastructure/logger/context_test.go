package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	l, _ := observed()

	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	l, recorded := observed()

	ctx, enriched := WithRequestID(context.Background(), l, "req-42")
	assert.Equal(t, "req-42", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("move accepted")
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "req-42", fieldMap(recorded.All()[0])["request_id"])
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestWithTraceContext(t *testing.T) {
	l, recorded := observed()

	t.Run("no span leaves logger untouched", func(t *testing.T) {
		assert.Same(t, l, WithTraceContext(context.Background(), l))
	})

	t.Run("valid span adds ids", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		WithTraceContext(ctx, l).Info("audit")
		fields := fieldMap(recorded.TakeAll()[0])
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
	})
}

func TestL(t *testing.T) {
	l, recorded := observed()
	ctx, _ := WithRequestID(context.Background(), l, "req-7")

	L(ctx).Info("timeline built")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := fieldMap(entries[0])
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Len(t, entries[0].Context, 1, "request_id must not be duplicated")
}
