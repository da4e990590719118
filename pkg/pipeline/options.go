package pipeline

import (
	"log/slog"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
)

const defaultMaxSteps = 100

type runConfig struct {
	maxSteps       int
	stepTimeout    time.Duration
	mode           string
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps: defaultMaxSteps,
		mode:     "default",
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

// WithMaxSteps bounds the number of step executions in one run.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithStepTimeout bounds each step with its own deadline. Zero disables it.
func WithStepTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.stepTimeout = d
	}
}

// WithMode labels the run in logs, metrics and spans.
func WithMode(mode string) RunOption {
	return func(c *runConfig) {
		c.mode = mode
	}
}

// WithRunLogger enables run and step lifecycle logging.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics records step and run metrics through m.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing opens a span per run and per step.
func WithTracing(spans observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}
