package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig is a backoff policy for store writes.
type RetryConfig struct {
	MaxAttempts    int // total attempts; values below 1 mean one
	InitialBackoff time.Duration
	MaxBackoff     time.Duration // 0 means uncapped
	BackoffFactor  float64
	Jitter         float64 // fraction of the backoff, 0 to 1

	// RetryableFunc replaces IsRetryable when set.
	RetryableFunc func(error) bool
}

// StoreRetry is the default policy for warehouse writes. Lock contention on
// a single-writer store clears within milliseconds.
var StoreRetry = RetryConfig{
	MaxAttempts:    4,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry runs the operation once.
var NoRetry = RetryConfig{MaxAttempts: 1}

// RetryResult is what a retried operation produced.
type RetryResult[T any] struct {
	Value    T
	Err      error // nil on success; otherwise a *CategorizedError
	Attempts int
	Duration time.Duration
}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts caps the number of attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxAttempts = n }
}

// WithInitialBackoff sets the first sleep.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.InitialBackoff = d }
}

// WithRetryableFunc overrides which errors are retried.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(cfg *RetryConfig) { cfg.RetryableFunc = fn }
}

// NewRetryConfig starts from StoreRetry and applies opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := StoreRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (cfg RetryConfig) attempts() int {
	return max(cfg.MaxAttempts, 1)
}

func (cfg RetryConfig) retryable(err error) bool {
	if cfg.RetryableFunc != nil {
		return cfg.RetryableFunc(err)
	}
	return IsRetryable(err)
}

// next grows the backoff by the factor, capped at MaxBackoff.
func (cfg RetryConfig) next(backoff time.Duration) time.Duration {
	grown := time.Duration(float64(backoff) * cfg.BackoffFactor)
	if cfg.MaxBackoff > 0 && grown > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return grown
}

// WithRetry is WithRetryContext without cancellation.
func WithRetry[T any](cfg RetryConfig, fn func() (T, error)) RetryResult[T] {
	return WithRetryContext(context.Background(), cfg, func(context.Context) (T, error) {
		return fn()
	})
}

// WithRetryContext calls fn until it succeeds, returns an error that is not
// retryable, or runs out of attempts. Integrity and permanent errors stop
// after the first attempt. ctx is checked before every attempt and during
// each backoff.
func WithRetryContext[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) RetryResult[T] {
	start := time.Now()
	done := func(v T, err error, attempts int) RetryResult[T] {
		return RetryResult[T]{Value: v, Err: err, Attempts: attempts, Duration: time.Since(start)}
	}
	cancelled := func(err error, attempts int, during string) RetryResult[T] {
		var zero T
		return done(zero, &CategorizedError{Err: err, Category: CategoryPermanent, Context: during}, attempts)
	}

	limit := cfg.attempts()
	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= limit; attempt++ {
		if err := ctx.Err(); err != nil {
			return cancelled(err, attempt-1, "context cancelled")
		}

		v, err := fn(ctx)
		if err == nil {
			return done(v, nil, attempt)
		}
		lastErr = err
		if !cfg.retryable(err) {
			return done(v, &CategorizedError{Err: err, Category: Categorize(err), Retries: attempt}, attempt)
		}
		if attempt == limit {
			break
		}

		timer := time.NewTimer(calculateBackoff(backoff, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return cancelled(ctx.Err(), attempt, "context cancelled during backoff")
		case <-timer.C:
		}
		backoff = cfg.next(backoff)
	}

	var zero T
	return done(zero, &CategorizedError{
		Err:      lastErr,
		Category: Categorize(lastErr),
		Retries:  limit,
		Context:  "max retries exceeded",
	}, limit)
}

// calculateBackoff spreads base uniformly over base*(1±jitter).
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	spread := float64(base) * jitter
	return base + time.Duration(spread*(2*rand.Float64()-1))
}
