package dimension

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps mentor history in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[string][]Version // mentorID -> versions, oldest first
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{versions: make(map[string][]Version)}
}

// Current implements Store.
func (m *MemoryStore) Current(_ context.Context) (map[string]Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	out := make(map[string]Version)
	for id, vs := range m.versions {
		for _, v := range vs {
			if v.IsCurrent() {
				out[id] = v
			}
		}
	}
	return out, nil
}

// Apply implements Store.
func (m *MemoryStore) Apply(_ context.Context, t Transition) error {
	if t.Kind == Unchanged {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	id := t.Open.MentorID
	vs := m.versions[id]
	openIdx := -1
	for i, v := range vs {
		if v.IsCurrent() {
			openIdx = i
		}
	}

	switch t.Kind {
	case Opened:
		if openIdx >= 0 {
			return fmt.Errorf("%w: mentor %s already has an open version", ErrConflict, id)
		}
	case Changed:
		if openIdx < 0 || vs[openIdx].Key != t.Close.Key {
			return fmt.Errorf("%w: version %s of mentor %s is not open", ErrConflict, t.Close.Key, id)
		}
		end := *t.Close.ValidTo
		vs[openIdx].ValidTo = &end
	}

	open := *t.Open
	if open.Key == "" {
		open.Key = uuid.NewString()
	}
	m.versions[id] = append(vs, open)
	return nil
}

// History implements Store.
func (m *MemoryStore) History(_ context.Context, mentorID string) ([]Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	out := append([]Version(nil), m.versions[mentorID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ValidFrom.Before(out[j].ValidFrom)
	})
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.versions = nil
	return nil
}
