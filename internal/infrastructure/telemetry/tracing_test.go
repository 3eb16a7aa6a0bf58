package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartServiceSpan(t *testing.T) {
	recorder := useRecorder(t)
	entityID := uuid.New()

	ctx, span := StartServiceSpan(context.Background(), "placement", "move",
		SpanAttrEntityID, entityID,
		SpanAttrActiveOnly, true,
		42, "ignored",
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrResolutions, 3)
	AddEvent(span, "mirror_updated", SpanAttrZoneID, "zone-1")
	RecordError(span, errors.New("store down"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "placement.move", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Contains(t, s.Attributes(), attribute.String(SpanAttrEntityID, entityID.String()))
	assert.Contains(t, s.Attributes(), attribute.Bool(SpanAttrActiveOnly, true))
	assert.Contains(t, s.Attributes(), attribute.Int(SpanAttrResolutions, 3))
	require.NotEmpty(t, s.Events())
	assert.Equal(t, "mirror_updated", s.Events()[0].Name)
}

func TestSpanHelpers_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		SetAttributes(nil, "k", "v")
		RecordError(nil, errors.New("x"))
		AddEvent(nil, "e")
	})
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestToAttribute(t *testing.T) {
	assert.Equal(t, attribute.Int64("n", 5), toAttribute("n", int64(5)))
	assert.Equal(t, attribute.Float64("f", 1.5), toAttribute("f", 1.5))
	assert.Equal(t, attribute.StringSlice("s", []string{"a"}), toAttribute("s", []string{"a"}))
	assert.Equal(t, attribute.String("o", "{1}"), toAttribute("o", struct{ A int }{1}))
}
