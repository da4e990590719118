package dimension

import (
	"context"
	"errors"
)

// Store persists mentor versions.
// Implementations must be safe for concurrent use.
type Store interface {
	// Current returns the open version of every mentor, keyed by mentor ID.
	Current(ctx context.Context) (map[string]Version, error)

	// Apply writes a transition atomically: for Changed, the close and the
	// open either both happen or neither does. Unchanged is a no-op.
	Apply(ctx context.Context, t Transition) error

	// History returns every version of a mentor ordered by ValidFrom.
	History(ctx context.Context, mentorID string) ([]Version, error)

	// Close releases the store.
	Close() error
}

// Sentinel errors for dimension stores.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("dimension store closed")

	// ErrConflict indicates the transition no longer matches stored history,
	// such as closing a version that is not open or opening a second one.
	ErrConflict = errors.New("dimension history conflict")
)
