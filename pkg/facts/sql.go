package facts

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
	"github.com/diegopettorossi/pack-data-challenge/pkg/warehouse"
)

// SQLStore persists facts to the fct_sessions and fct_bookings tables of a
// warehouse. It works with every warehouse driver.
type SQLStore struct {
	db     *warehouse.DB
	now    func() time.Time
	mu     sync.Mutex
	closed bool
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over db. The tables must exist (see
// warehouse.DB.Migrate). Closing the store does not close db.
func NewSQLStore(db *warehouse.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func tableFor(kind Kind) (string, error) {
	switch kind {
	case KindSession:
		return warehouse.TableFctSessions, nil
	case KindBooking:
		return warehouse.TableFctBookings, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidFact, kind)
}

// InsertIfAbsent implements Store with INSERT ... ON CONFLICT DO NOTHING, so
// the existence check and the write are one statement.
func (s *SQLStore) InsertIfAbsent(ctx context.Context, f Fact) (bool, error) {
	if err := f.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	loadedAt := warehouse.FormatTime(s.now())
	var (
		res sql.Result
		err error
	)
	switch f.Kind {
	case KindSession:
		r := f.Session
		res, err = s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO fct_sessions (fact_id, session_id, user_id, mentor_id,
				started_at, ended_at, is_duration_estimated, duration_minutes, loaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (fact_id) DO NOTHING
		`), f.ID, r.SessionID, r.UserID, r.MentorID,
			warehouse.FormatTime(r.StartedAt), warehouse.FormatTime(r.EndedAt),
			r.IsDurationEstimated, r.DurationMinutes, loadedAt)
	case KindBooking:
		r := f.Booking
		res, err = s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO fct_bookings (fact_id, booking_id, user_id, mentor_id,
				requested_at, outcome_at, outcome_status, first_session_at,
				is_orphan_request, loaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (fact_id) DO NOTHING
		`), f.ID, r.BookingID, r.UserID, r.MentorID,
			warehouse.FormatTime(r.RequestedAt), warehouse.NullTime(r.OutcomeAt),
			string(r.OutcomeStatus), warehouse.NullTime(r.FirstSessionAt),
			r.IsOrphanRequest, loadedAt)
	}
	if err != nil {
		return false, fmt.Errorf("insert %s fact %s: %w", f.Kind, f.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s fact %s: rows affected: %w", f.Kind, f.ID, err)
	}
	return n == 1, nil
}

// Exists implements Store.
func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	var n int
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT (SELECT COUNT(*) FROM fct_sessions WHERE fact_id = ?)
			+ (SELECT COUNT(*) FROM fct_bookings WHERE fact_id = ?)
	`), id, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup fact %s: %w", id, err)
	}
	return n > 0, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, kind Kind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s facts: %w", kind, err)
	}
	return n, nil
}

// Sessions implements Store.
func (s *SQLStore) Sessions(ctx context.Context) ([]reconcile.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, mentor_id, started_at, ended_at,
			is_duration_estimated, duration_minutes
		FROM fct_sessions
		ORDER BY user_id, mentor_id, started_at`)
	if err != nil {
		return nil, fmt.Errorf("list session facts: %w", err)
	}
	defer rows.Close()

	var out []reconcile.SessionRecord
	for rows.Next() {
		var (
			r            reconcile.SessionRecord
			started, end string
		)
		if err := rows.Scan(&r.SessionID, &r.UserID, &r.MentorID, &started, &end,
			&r.IsDurationEstimated, &r.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan session fact: %w", err)
		}
		if r.StartedAt, err = warehouse.ParseTime(started); err != nil {
			return nil, err
		}
		if r.EndedAt, err = warehouse.ParseTime(end); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session facts: %w", err)
	}
	return out, nil
}

// Bookings implements Store.
func (s *SQLStore) Bookings(ctx context.Context) ([]reconcile.BookingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT booking_id, user_id, mentor_id, requested_at, outcome_at,
			outcome_status, first_session_at, is_orphan_request
		FROM fct_bookings
		ORDER BY user_id, mentor_id, requested_at`)
	if err != nil {
		return nil, fmt.Errorf("list booking facts: %w", err)
	}
	defer rows.Close()

	var out []reconcile.BookingRecord
	for rows.Next() {
		var (
			r                   reconcile.BookingRecord
			requested, status   string
			outcome, firstStart sql.NullString
		)
		if err := rows.Scan(&r.BookingID, &r.UserID, &r.MentorID, &requested, &outcome,
			&status, &firstStart, &r.IsOrphanRequest); err != nil {
			return nil, fmt.Errorf("scan booking fact: %w", err)
		}
		if r.RequestedAt, err = warehouse.ParseTime(requested); err != nil {
			return nil, err
		}
		if r.OutcomeAt, err = warehouse.ParseNullTime(outcome); err != nil {
			return nil, err
		}
		if r.FirstSessionAt, err = warehouse.ParseNullTime(firstStart); err != nil {
			return nil, err
		}
		r.OutcomeStatus = reconcile.OutcomeStatus(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking facts: %w", err)
	}
	return out, nil
}

// Close implements Store. The underlying database stays open.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
