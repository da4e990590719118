package main

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
)

const serviceName = "pack-data-challenge"

// telemetry owns the process-wide OTel providers. A batch run has no
// collector to push to, so metrics are read once at the end of the run and
// finished spans are written to the debug log.
type telemetry struct {
	logger  *slog.Logger
	reader  *sdkmetric.ManualReader
	meters  *sdkmetric.MeterProvider
	tracers *sdktrace.TracerProvider

	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

func setupTelemetry(logger *slog.Logger) (*telemetry, error) {
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewManualReader()
	meters := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	tracers := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(spanLogExporter{logger: logger}),
		sdktrace.WithResource(res),
	)
	otel.SetMeterProvider(meters)
	otel.SetTracerProvider(tracers)

	return &telemetry{
		logger:  logger,
		reader:  reader,
		meters:  meters,
		tracers: tracers,
		metrics: observability.NewMetricsRecorder(),
		spans:   observability.NewSpanManager(),
	}, nil
}

// report logs the totals of every counter and histogram collected so far.
func (t *telemetry) report(ctx context.Context) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		t.logger.Warn("collect metrics", "error", err)
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				t.logger.Debug("metric", slog.String("name", m.Name), slog.Int64("total", total))
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				t.logger.Debug("metric", slog.String("name", m.Name),
					slog.Uint64("count", count), slog.Float64("sum", sum))
			}
		}
	}
}

func (t *telemetry) shutdown(ctx context.Context) {
	if err := t.tracers.Shutdown(ctx); err != nil {
		t.logger.Warn("shutdown tracer provider", "error", err)
	}
	if err := t.meters.Shutdown(ctx); err != nil {
		t.logger.Warn("shutdown meter provider", "error", err)
	}
}

// spanLogExporter writes finished spans to the logger at debug level.
type spanLogExporter struct {
	logger *slog.Logger
}

func (e spanLogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		attrs := []any{
			slog.String("span", s.Name()),
			slog.String("trace_id", s.SpanContext().TraceID().String()),
			slog.Float64("duration_ms", float64(s.EndTime().Sub(s.StartTime()))/float64(time.Millisecond)),
			slog.String("status", s.Status().Code.String()),
		}
		if s.Parent().IsValid() {
			attrs = append(attrs, slog.String("parent_span_id", s.Parent().SpanID().String()))
		}
		e.logger.Log(ctx, slog.LevelDebug, "span finished", attrs...)
	}
	return nil
}

func (spanLogExporter) Shutdown(context.Context) error { return nil }
