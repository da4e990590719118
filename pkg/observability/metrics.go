package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName scopes every instrument the pipeline creates.
const meterName = "pack-data-challenge/pipeline"

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStep records one step execution with its duration and error status.
	RecordStep(ctx context.Context, stepID string, duration time.Duration, err error)

	// RecordRun records a finished run.
	RecordRun(ctx context.Context, mode, status string, duration time.Duration)

	// RecordReconcile records the record counts of a reconciliation pass.
	RecordReconcile(ctx context.Context, sessions, estimated, bookings, orphans int)

	// RecordMerge records inserted and skipped facts of one kind.
	RecordMerge(ctx context.Context, kind string, inserted, skipped int)

	// RecordDimension records SCD2 transitions by kind.
	RecordDimension(ctx context.Context, opened, changed, unchanged int)

	// RecordQualityCheck records one quality check outcome.
	RecordQualityCheck(ctx context.Context, check, status string)
}

type otelMetrics struct {
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	records        metric.Int64Counter
	facts          metric.Int64Counter
	transitions    metric.Int64Counter
	qualityChecks  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter(meterName))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{}
	var err error

	if m.stepExecutions, err = meter.Int64Counter("pipeline.step.executions",
		metric.WithDescription("Number of step executions"),
	); err != nil {
		return nil, err
	}
	if m.stepLatency, err = meter.Float64Histogram("pipeline.step.latency_ms",
		metric.WithDescription("Step execution latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.stepErrors, err = meter.Int64Counter("pipeline.step.errors",
		metric.WithDescription("Number of failed step executions"),
	); err != nil {
		return nil, err
	}
	if m.runs, err = meter.Int64Counter("pipeline.runs",
		metric.WithDescription("Number of pipeline runs"),
	); err != nil {
		return nil, err
	}
	if m.runLatency, err = meter.Float64Histogram("pipeline.run.latency_ms",
		metric.WithDescription("Pipeline run latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.records, err = meter.Int64Counter("pipeline.reconcile.records",
		metric.WithDescription("Records produced by reconciliation"),
	); err != nil {
		return nil, err
	}
	if m.facts, err = meter.Int64Counter("pipeline.facts",
		metric.WithDescription("Facts offered to the warehouse, by kind and result"),
	); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("pipeline.dimension.transitions",
		metric.WithDescription("Mentor dimension transitions"),
	); err != nil {
		return nil, err
	}
	if m.qualityChecks, err = meter.Int64Counter("pipeline.quality.checks",
		metric.WithDescription("Data quality check outcomes"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. If initialization fails it returns NoopMetrics.
//
// Configure the provider first:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordStep(ctx context.Context, stepID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("step_id", stepID))
	m.stepExecutions.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.stepErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordRun(ctx context.Context, mode, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordReconcile(ctx context.Context, sessions, estimated, bookings, orphans int) {
	add := func(kind string, n int) {
		m.records.Add(ctx, int64(n), metric.WithAttributes(attribute.String("record", kind)))
	}
	add("session", sessions)
	add("session_estimated", estimated)
	add("booking", bookings)
	add("booking_orphan", orphans)
}

func (m *otelMetrics) RecordMerge(ctx context.Context, kind string, inserted, skipped int) {
	m.facts.Add(ctx, int64(inserted), metric.WithAttributes(
		attribute.String("kind", kind), attribute.String("result", "inserted")))
	m.facts.Add(ctx, int64(skipped), metric.WithAttributes(
		attribute.String("kind", kind), attribute.String("result", "skipped")))
}

func (m *otelMetrics) RecordDimension(ctx context.Context, opened, changed, unchanged int) {
	add := func(kind string, n int) {
		m.transitions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("transition", kind)))
	}
	add("opened", opened)
	add("changed", changed)
	add("unchanged", unchanged)
}

func (m *otelMetrics) RecordQualityCheck(ctx context.Context, check, status string) {
	m.qualityChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("status", status),
	))
}
