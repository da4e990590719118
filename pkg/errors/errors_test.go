package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryPermanent, "permanent"},
		{CategoryTransient, "transient"},
		{CategoryIntegrity, "integrity"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.category.String())
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"nil error", nil, CategoryPermanent},
		{"integrity", Integrity("events", "e1", "timestamp", "missing"), CategoryIntegrity},
		{"wrapped integrity", fmt.Errorf("ingest: %w", Integrity("events", "", "", "empty")), CategoryIntegrity},
		{"integrity inside transient wrapper", Transient(Integrity("events", "", "", "x"), "load"), CategoryIntegrity},
		{"timeout", &TimeoutError{Operation: "insert", Duration: "5s"}, CategoryTransient},
		{"categorized", &CategorizedError{Category: CategoryTransient}, CategoryTransient},
		{"sqlite locked", errors.New("database is locked (5) (SQLITE_BUSY)"), CategoryTransient},
		{"postgres serialization", errors.New("ERROR: could not serialize access due to concurrent update"), CategoryTransient},
		{"context canceled", fmt.Errorf("step: %w", context.Canceled), CategoryPermanent},
		{"deadline", context.DeadlineExceeded, CategoryPermanent},
		{"unknown", errors.New("boom"), CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.err))
		})
	}
}

func TestDataIntegrityError(t *testing.T) {
	t.Run("message with record and field", func(t *testing.T) {
		err := Integrity("booking_events.json", "e42", "mentor_id", "missing")
		assert.Equal(t, "data integrity: booking_events.json[e42]: field mentor_id: missing", err.Error())
	})

	t.Run("message without field", func(t *testing.T) {
		err := Integrity("mentor_tiers.csv", "", "", "has no data rows")
		assert.Equal(t, "data integrity: mentor_tiers.csv: has no data rows", err.Error())
	})

	t.Run("unwraps to sentinel", func(t *testing.T) {
		err := fmt.Errorf("load: %w", Integrity("x", "", "", "y"))
		assert.True(t, errors.Is(err, ErrDataIntegrity))
		assert.True(t, IsIntegrity(err))

		var ie *DataIntegrityError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "x", ie.Source)
	})
}

func TestCategorizedError(t *testing.T) {
	t.Run("error message with context", func(t *testing.T) {
		err := NewCategorized(errors.New("failed"), CategoryTransient, "insert fact")
		assert.Equal(t, "insert fact: failed (category: transient, attempts: 0)", err.Error())
	})

	t.Run("error message without context", func(t *testing.T) {
		err := Permanent(errors.New("failed"), "")
		assert.Equal(t, "failed (category: permanent, attempts: 0)", err.Error())
	})

	t.Run("unwrap", func(t *testing.T) {
		inner := errors.New("inner")
		err := Transient(inner, "ctx")
		assert.ErrorIs(t, err, inner)
	})
}

func fastRetry() RetryConfig {
	return NewRetryConfig(
		WithMaxAttempts(3),
		WithInitialBackoff(time.Millisecond),
	)
}

func TestWithRetry_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	result := WithRetry(fastRetry(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("database is locked")
		}
		return 7, nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 7, result.Value)
	assert.Equal(t, 3, result.Attempts)
}

func TestWithRetry_StopsOnPermanent(t *testing.T) {
	calls := 0
	result := WithRetry(fastRetry(), func() (int, error) {
		calls++
		return 0, errors.New("syntax error")
	})

	require.Error(t, result.Err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, CategoryPermanent, Categorize(result.Err))
}

func TestWithRetry_StopsOnIntegrity(t *testing.T) {
	calls := 0
	result := WithRetry(fastRetry(), func() (int, error) {
		calls++
		return 0, Integrity("events", "e1", "user_id", "missing")
	})

	assert.Equal(t, 1, calls)
	assert.True(t, IsIntegrity(result.Err))
}

func TestWithRetry_Exhausted(t *testing.T) {
	result := WithRetry(fastRetry(), func() (int, error) {
		return 0, errors.New("database is locked")
	})

	require.Error(t, result.Err)
	assert.Equal(t, 3, result.Attempts)

	var catErr *CategorizedError
	require.ErrorAs(t, result.Err, &catErr)
	assert.Equal(t, "max retries exceeded", catErr.Context)
	assert.Equal(t, CategoryTransient, catErr.Category)
}

func TestWithRetryContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	result := WithRetryContext(ctx, fastRetry(), func(context.Context) (int, error) {
		calls++
		return 1, nil
	})

	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestWithRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	result := WithRetry(RetryConfig{}, func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, calculateBackoff(100*time.Millisecond, 0))

	for i := 0; i < 20; i++ {
		d := calculateBackoff(100*time.Millisecond, 0.5)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
