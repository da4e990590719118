package dimension

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/diegopettorossi/pack-data-challenge/pkg/warehouse"
	"github.com/google/uuid"
)

// SQLStore keeps mentor history in the dim_mentors table. A partial unique
// index on open rows backs the one-open-version invariant.
type SQLStore struct {
	db     *warehouse.DB
	mu     sync.Mutex
	closed bool
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over db. Closing the store does not close db.
func NewSQLStore(db *warehouse.DB) *SQLStore {
	return &SQLStore{db: db}
}

const selectVersions = `
	SELECT mentor_key, mentor_id, tier, hourly_rate, valid_from, valid_to
	FROM dim_mentors`

// Current implements Store.
func (s *SQLStore) Current(ctx context.Context) (map[string]Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	vs, err := s.query(ctx, selectVersions+` WHERE valid_to IS NULL`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Version, len(vs))
	for _, v := range vs {
		out[v.MentorID] = v
	}
	return out, nil
}

// History implements Store.
func (s *SQLStore) History(ctx context.Context, mentorID string) ([]Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.query(ctx, selectVersions+` WHERE mentor_id = ? ORDER BY valid_from`, mentorID)
}

// Apply implements Store.
func (s *SQLStore) Apply(ctx context.Context, t Transition) error {
	if t.Kind == Unchanged {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if t.Kind == Changed {
			res, err := tx.ExecContext(ctx, s.db.Rebind(`
				UPDATE dim_mentors SET valid_to = ?
				WHERE mentor_key = ? AND valid_to IS NULL
			`), warehouse.NullTime(t.Close.ValidTo), t.Close.Key)
			if err != nil {
				return fmt.Errorf("close version %s: %w", t.Close.Key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("close version %s: %w", t.Close.Key, err)
			}
			if n != 1 {
				return fmt.Errorf("%w: version %s of mentor %s is not open", ErrConflict, t.Close.Key, t.Close.MentorID)
			}
		}

		open := *t.Open
		if open.Key == "" {
			open.Key = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO dim_mentors (mentor_key, mentor_id, tier, hourly_rate, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?, NULL)
		`), open.Key, open.MentorID, open.Tier, open.HourlyRate, warehouse.FormatTime(open.ValidFrom)); err != nil {
			return fmt.Errorf("open version of mentor %s: %w", open.MentorID, err)
		}
		return nil
	})
}

// Close implements Store. The underlying database stays open.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query mentor versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var (
			v       Version
			from    string
			validTo sql.NullString
		)
		if err := rows.Scan(&v.Key, &v.MentorID, &v.Tier, &v.HourlyRate, &from, &validTo); err != nil {
			return nil, fmt.Errorf("scan mentor version: %w", err)
		}
		if v.ValidFrom, err = warehouse.ParseTime(from); err != nil {
			return nil, err
		}
		if v.ValidTo, err = warehouse.ParseNullTime(validTo); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentor versions: %w", err)
	}
	return out, nil
}
