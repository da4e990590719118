package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
	"github.com/diegopettorossi/pack-data-challenge/pkg/pipeline"
	"github.com/diegopettorossi/pack-data-challenge/pkg/quality"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"integrity", &pipeline.StepError{StepID: "ingest", Op: "execute",
			Err: perrors.Integrity("events", "#0", "timestamp", "missing")}, exitData},
		{"quality", fmt.Errorf("step quality: %w", quality.ErrChecksFailed), exitData},
		{"infra", fmt.Errorf("open warehouse: %w", perrors.Transient(assert.AnError, "ping")), exitInfra},
		{"timeout", &pipeline.StepError{StepID: "ingest", Op: "execute", Err: context.DeadlineExceeded}, exitInfra},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestTelemetry_ReportAndSpans(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	prevTracers, prevMeters := otel.GetTracerProvider(), otel.GetMeterProvider()
	tel, err := setupTelemetry(logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		tel.shutdown(context.Background())
		otel.SetTracerProvider(prevTracers)
		otel.SetMeterProvider(prevMeters)
	})

	ctx := context.Background()
	tel.metrics.RecordRun(ctx, "full", "success", 0)
	_, span := otel.Tracer("test").Start(ctx, "unit")
	span.End()
	tel.report(ctx)

	assert.Contains(t, buf.String(), `"span":"unit"`)
	assert.Contains(t, buf.String(), `"name":"pipeline.runs"`)
}
