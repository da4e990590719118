package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
	})
	return exporter
}

func TestStepSpanIsChildOfRunSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, run := sm.StartRunSpan(context.Background(), "full", "run-1")
	_, step := sm.StartStepSpan(ctx, "reconcile")
	sm.EndSpanWithError(step, nil)
	sm.EndSpanWithError(run, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	stepSpan, runSpan := spans[0], spans[1]
	assert.Equal(t, "pipeline.step.reconcile", stepSpan.Name)
	assert.Equal(t, "pipeline.run", runSpan.Name)
	assert.Equal(t, runSpan.SpanContext.SpanID(), stepSpan.Parent.SpanID())
	assert.Contains(t, runSpan.Attributes, attribute.String("run.id", "run-1"))
	assert.Contains(t, runSpan.Attributes, attribute.String("run.mode", "full"))
	assert.Equal(t, codes.Ok, runSpan.Status.Code)
}

func TestEndSpanWithError_RecordsError(t *testing.T) {
	exporter := setupTracingTest(t)

	_, span := StartStepSpan(context.Background(), "ingest")
	EndSpanWithError(span, errors.New("bad input"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "bad input", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestAddSpanEvent(t *testing.T) {
	exporter := setupTracingTest(t)

	ctx, span := StartStepSpan(context.Background(), "derive_facts")
	AddSpanEvent(ctx, "merged", attribute.Int("inserted", 3))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "merged", spans[0].Events[0].Name)
}

func TestAddSpanEvent_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		AddSpanEvent(context.Background(), "orphan")
	})
	EndSpanWithError(nil, errors.New("ignored"))
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}
	ctx := context.Background()

	got, span := sm.StartRunSpan(ctx, "full", "r")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = sm.StartStepSpan(ctx, "s")
	assert.Equal(t, ctx, got)
	sm.EndSpanWithError(span, errors.New("x"))
	sm.AddSpanEvent(ctx, "e")
}
