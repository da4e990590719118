package facts

import (
	"context"
	"errors"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// Store persists facts keyed by their identifier.
// Implementations must be safe for concurrent use.
type Store interface {
	// InsertIfAbsent writes the fact unless one with the same ID exists.
	// It reports whether a row was written; an existing ID is not an error.
	InsertIfAbsent(ctx context.Context, f Fact) (inserted bool, err error)

	// Exists reports whether a fact with the ID is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Count returns the number of stored facts of a kind.
	Count(ctx context.Context, kind Kind) (int, error)

	// Sessions returns every stored session fact ordered by pair key and start.
	Sessions(ctx context.Context) ([]reconcile.SessionRecord, error)

	// Bookings returns every stored booking fact ordered by pair key and request.
	Bookings(ctx context.Context) ([]reconcile.BookingRecord, error)

	// Close releases the store. Further calls return ErrStoreClosed.
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("fact store closed")
