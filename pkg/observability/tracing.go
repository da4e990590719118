package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names. Step spans are named stepSpanPrefix + step ID.
const (
	runSpanName    = "pipeline.run"
	stepSpanPrefix = "pipeline.step."
)

// SpanManager opens and closes the spans of a pipeline run.
// NewSpanManager traces through the global provider; NoopSpanManager{} does nothing.
type SpanManager interface {
	StartRunSpan(ctx context.Context, mode, runID string) (context.Context, trace.Span)
	StartStepSpan(ctx context.Context, stepID string) (context.Context, trace.Span)
	EndSpanWithError(span trace.Span, err error)
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global tracer provider.
func NewSpanManager() SpanManager { return otelSpanManager{} }

func (otelSpanManager) StartRunSpan(ctx context.Context, mode, runID string) (context.Context, trace.Span) {
	return StartRunSpan(ctx, mode, runID)
}

func (otelSpanManager) StartStepSpan(ctx context.Context, stepID string) (context.Context, trace.Span) {
	return StartStepSpan(ctx, stepID)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) { EndSpanWithError(span, err) }

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// start resolves the tracer on every call so a provider installed after
// package init is honoured.
func start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(meterName).Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRunSpan opens the root span of a run.
func StartRunSpan(ctx context.Context, mode, runID string) (context.Context, trace.Span) {
	return start(ctx, runSpanName,
		attribute.String("run.mode", mode),
		attribute.String("run.id", runID),
	)
}

// StartStepSpan opens a span for one step, parented to the span in ctx.
func StartStepSpan(ctx context.Context, stepID string) (context.Context, trace.Span) {
	return start(ctx, stepSpanPrefix+stepID, attribute.String("step.id", stepID))
}

// EndSpanWithError sets the span status from err and ends it. A nil span is ignored.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent records an event on the span carried by ctx, if it is recording.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
