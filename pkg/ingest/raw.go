package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/dimension"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
	"github.com/diegopettorossi/pack-data-challenge/pkg/warehouse"
)

// RawStore persists validated inputs in the raw warehouse tables.
type RawStore struct {
	db  *warehouse.DB
	now func() time.Time
}

// NewRawStore creates a raw store over a migrated warehouse.
func NewRawStore(db *warehouse.DB) *RawStore {
	return &RawStore{db: db, now: time.Now}
}

// AppendEvents inserts events whose ID is not yet stored and returns how many
// were new. Existing rows are never modified.
func (s *RawStore) AppendEvents(ctx context.Context, events []reconcile.Event) (int, error) {
	query := s.db.Rebind(`
		INSERT INTO raw_events (event_id, user_id, mentor_id, event_type, ts, payload, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`)
	ingested := warehouse.FormatTime(s.now())

	added := 0
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range events {
			var payload any
			if len(e.Payload) > 0 {
				payload = string(e.Payload)
			}
			res, err := stmt.ExecContext(ctx, e.ID, e.UserID, e.MentorID, string(e.Type),
				warehouse.FormatTime(e.Timestamp), payload, ingested)
			if err != nil {
				return fmt.Errorf("insert event %s: %w", e.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append raw events: %w", err)
	}
	return added, nil
}

// Events returns every stored event ordered by timestamp, then event ID.
func (s *RawStore) Events(ctx context.Context) ([]reconcile.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, user_id, mentor_id, event_type, ts, payload
		FROM raw_events
		ORDER BY ts, event_id`)
	if err != nil {
		return nil, fmt.Errorf("query raw events: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Event
	for rows.Next() {
		var (
			e       reconcile.Event
			typ, ts string
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.MentorID, &typ, &ts, &payload); err != nil {
			return nil, fmt.Errorf("scan raw event: %w", err)
		}
		e.Type = reconcile.EventType(typ)
		if e.Timestamp, err = warehouse.ParseTime(ts); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvents returns the number of stored events.
func (s *RawStore) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count raw events: %w", err)
	}
	return n, nil
}

// ReplaceMentors stores the latest mentor export, replacing the previous one.
// Order is kept so that the last observation of a mentor still wins when
// the export is read back.
func (s *RawStore) ReplaceMentors(ctx context.Context, mentors []dimension.Snapshot) error {
	observed := warehouse.FormatTime(s.now())
	insert := s.db.Rebind(`
		INSERT INTO raw_mentors (position, mentor_id, tier, hourly_rate, observed_at)
		VALUES (?, ?, ?, ?, ?)`)

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM raw_mentors`); err != nil {
			return err
		}
		for i, m := range mentors {
			if _, err := tx.ExecContext(ctx, insert, i, m.MentorID, m.Tier, m.HourlyRate, observed); err != nil {
				return fmt.Errorf("insert mentor %s: %w", m.MentorID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace raw mentors: %w", err)
	}
	return nil
}

// Mentors returns the stored export in its original order.
func (s *RawStore) Mentors(ctx context.Context) ([]dimension.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mentor_id, tier, hourly_rate FROM raw_mentors ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query raw mentors: %w", err)
	}
	defer rows.Close()

	var out []dimension.Snapshot
	for rows.Next() {
		var m dimension.Snapshot
		if err := rows.Scan(&m.MentorID, &m.Tier, &m.HourlyRate); err != nil {
			return nil, fmt.Errorf("scan raw mentor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendUsers inserts users whose ID is not yet stored and returns how many
// were new. A user already stored keeps its first recorded attributes.
func (s *RawStore) AppendUsers(ctx context.Context, users []User) (int, error) {
	query := s.db.Rebind(`
		INSERT INTO raw_users (user_id, company_id, signup_date, status, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`)
	ingested := warehouse.FormatTime(s.now())

	added := 0
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, u := range users {
			res, err := stmt.ExecContext(ctx, u.UserID, nullString(u.CompanyID),
				warehouse.NullTime(u.SignupDate), nullString(u.Status), ingested)
			if err != nil {
				return fmt.Errorf("insert user %s: %w", u.UserID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append raw users: %w", err)
	}
	return added, nil
}

// Users returns every stored user ordered by user ID.
func (s *RawStore) Users(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, company_id, signup_date, status FROM raw_users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query raw users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u                       User
			company, signup, status sql.NullString
		)
		if err := rows.Scan(&u.UserID, &company, &signup, &status); err != nil {
			return nil, fmt.Errorf("scan raw user: %w", err)
		}
		if u.SignupDate, err = warehouse.ParseNullTime(signup); err != nil {
			return nil, err
		}
		u.CompanyID, u.Status = company.String, status.String
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountUsers returns the number of stored users.
func (s *RawStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count raw users: %w", err)
	}
	return n, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
