package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// Table names.
const (
	TableRawEvents    = "raw_events"
	TableRawUsers     = "raw_users"
	TableRawMentors   = "raw_mentors"
	TableFctSessions  = "fct_sessions"
	TableFctBookings  = "fct_bookings"
	TableDimMentors   = "dim_mentors"
	TablePipelineRuns = "pipeline_runs"
)

// Tables lists every table Migrate creates, in creation order.
var Tables = []string{
	TableRawEvents,
	TableRawUsers,
	TableRawMentors,
	TableFctSessions,
	TableFctBookings,
	TableDimMentors,
	TablePipelineRuns,
}

// The statements are portable between SQLite and Postgres. Timestamps are
// TEXT in TimeLayout.
var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS raw_events (
		event_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		mentor_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		ts TEXT NOT NULL,
		payload TEXT,
		ingested_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_raw_events_pair ON raw_events (user_id, mentor_id, ts)`,
	`CREATE TABLE IF NOT EXISTS raw_users (
		user_id TEXT PRIMARY KEY,
		company_id TEXT,
		signup_date TEXT,
		status TEXT,
		ingested_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS raw_mentors (
		position INTEGER PRIMARY KEY,
		mentor_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		hourly_rate DOUBLE PRECISION NOT NULL,
		observed_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fct_sessions (
		fact_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		mentor_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		is_duration_estimated BOOLEAN NOT NULL,
		duration_minutes INTEGER NOT NULL,
		loaded_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fct_bookings (
		fact_id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		mentor_id TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		outcome_at TEXT,
		outcome_status TEXT NOT NULL,
		first_session_at TEXT,
		is_orphan_request BOOLEAN NOT NULL,
		loaded_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_mentors (
		mentor_key TEXT PRIMARY KEY,
		mentor_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		hourly_rate DOUBLE PRECISION NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_dim_mentors_open ON dim_mentors (mentor_id) WHERE valid_to IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_dim_mentors_history ON dim_mentors (mentor_id, valid_from)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		mode TEXT NOT NULL,
		config_json TEXT NOT NULL,
		new_events INTEGER NOT NULL DEFAULT 0,
		new_users INTEGER NOT NULL DEFAULT 0,
		facts_inserted INTEGER NOT NULL DEFAULT 0,
		facts_skipped INTEGER NOT NULL DEFAULT 0,
		dq_passed BOOLEAN,
		warnings TEXT NOT NULL DEFAULT '[]',
		error TEXT
	)`,
}

// Migrate creates any missing tables and indexes. It is safe to call on every
// start.
func (db *DB) Migrate(ctx context.Context) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Clean drops every warehouse table, history included.
func (db *DB) Clean(ctx context.Context) error {
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+Tables[i]); err != nil {
			return fmt.Errorf("drop %s: %w", Tables[i], err)
		}
	}
	return nil
}
