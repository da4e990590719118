// Package observability provides structured logging, metrics, and tracing
// for pipeline runs.
//
// Logging uses log/slog; metrics and spans use OpenTelemetry through the
// global providers. Every helper accepts a nil logger, and no-op recorders
// exist for when metrics or tracing are disabled.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// EnrichLogger adds run and step context to a logger.
func EnrichLogger(logger *slog.Logger, runID, stepID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("step_id", stepID),
	)
}

// LogRunStart logs the start of a pipeline run.
func LogRunStart(logger *slog.Logger, runID, mode string) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run starting",
		slog.String("run_id", runID),
		slog.String("mode", mode),
	)
}

// LogRunComplete logs a finished run.
func LogRunComplete(logger *slog.Logger, runID, status string, durationMs float64, stepCount int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run completed",
		slog.String("run_id", runID),
		slog.String("status", status),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", stepCount),
	)
}

// LogRunError logs a failed run.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastStep string) {
	if logger == nil {
		return
	}
	logger.Error("pipeline run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_step", lastStep),
	)
}

// LogStepStart logs step execution start.
func LogStepStart(logger *slog.Logger, stepID string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("step_id", stepID),
	)
}

// LogStepComplete logs successful step completion.
func LogStepComplete(logger *slog.Logger, stepID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("step completed",
		slog.String("step_id", stepID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs a step failure.
func LogStepError(logger *slog.Logger, stepID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("step_id", stepID),
		slog.String("error", err.Error()),
	)
}

// LogMergeStats logs the outcome of merging one kind of fact.
func LogMergeStats(logger *slog.Logger, kind string, inserted, skipped int) {
	if logger == nil {
		return
	}
	logger.Info("facts merged",
		slog.String("kind", kind),
		slog.Int("inserted", inserted),
		slog.Int("skipped", skipped),
	)
}

// LogDimensionStats logs the SCD2 transitions applied in one run.
func LogDimensionStats(logger *slog.Logger, opened, changed, unchanged int) {
	if logger == nil {
		return
	}
	logger.Info("mentor dimension updated",
		slog.Int("opened", opened),
		slog.Int("changed", changed),
		slog.Int("unchanged", unchanged),
	)
}

// LogQualityCheck logs one data quality check result. Failures log at error
// level, warnings at warn, everything else at info.
func LogQualityCheck(logger *slog.Logger, name, status, detail string) {
	if logger == nil {
		return
	}
	level := slog.LevelInfo
	switch status {
	case "fail":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "quality check",
		slog.String("check", name),
		slog.String("status", status),
		slog.String("detail", detail),
	)
}

// LogDataWarning logs a non-fatal data issue found during ingestion.
func LogDataWarning(logger *slog.Logger, source, message string) {
	if logger == nil {
		return
	}
	logger.Warn("data warning",
		slog.String("source", source),
		slog.String("message", message),
	)
}

// TimedOperation returns a function reporting the elapsed milliseconds.
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
