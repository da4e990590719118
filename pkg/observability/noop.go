package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordStep does nothing.
func (NoopMetrics) RecordStep(context.Context, string, time.Duration, error) {}

// RecordRun does nothing.
func (NoopMetrics) RecordRun(context.Context, string, string, time.Duration) {}

// RecordReconcile does nothing.
func (NoopMetrics) RecordReconcile(context.Context, int, int, int, int) {}

// RecordMerge does nothing.
func (NoopMetrics) RecordMerge(context.Context, string, int, int) {}

// RecordDimension does nothing.
func (NoopMetrics) RecordDimension(context.Context, int, int, int) {}

// RecordQualityCheck does nothing.
func (NoopMetrics) RecordQualityCheck(context.Context, string, string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartRunSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartRunSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartStepSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartStepSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
