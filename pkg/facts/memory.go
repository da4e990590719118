package facts

import (
	"context"
	"sort"
	"sync"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// MemoryStore keeps facts in memory. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	facts  map[string]Fact
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{facts: make(map[string]Fact)}
}

// InsertIfAbsent implements Store.
func (m *MemoryStore) InsertIfAbsent(_ context.Context, f Fact) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrStoreClosed
	}
	if _, ok := m.facts[f.ID]; ok {
		return false, nil
	}
	m.facts[f.ID] = clone(f)
	return true, nil
}

// Exists implements Store.
func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrStoreClosed
	}
	_, ok := m.facts[id]
	return ok, nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context, kind Kind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	n := 0
	for _, f := range m.facts {
		if f.Kind == kind {
			n++
		}
	}
	return n, nil
}

// Sessions implements Store.
func (m *MemoryStore) Sessions(_ context.Context) ([]reconcile.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	var out []reconcile.SessionRecord
	for _, f := range m.facts {
		if f.Session != nil {
			out = append(out, *f.Session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.MentorID != b.MentorID {
			return a.MentorID < b.MentorID
		}
		return a.StartedAt.Before(b.StartedAt)
	})
	return out, nil
}

// Bookings implements Store.
func (m *MemoryStore) Bookings(_ context.Context) ([]reconcile.BookingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	var out []reconcile.BookingRecord
	for _, f := range m.facts {
		if f.Booking != nil {
			out = append(out, *f.Booking)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.MentorID != b.MentorID {
			return a.MentorID < b.MentorID
		}
		return a.RequestedAt.Before(b.RequestedAt)
	})
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.facts = nil
	return nil
}

// Len returns the number of stored facts of every kind.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.facts)
}

// clone detaches the stored fact from the caller's records.
func clone(f Fact) Fact {
	if f.Session != nil {
		s := *f.Session
		f.Session = &s
	}
	if f.Booking != nil {
		b := *f.Booking
		f.Booking = &b
	}
	return f
}
