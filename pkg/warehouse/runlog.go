package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

// Run statuses.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunTimeout RunStatus = "timeout"
)

// ErrRunNotFound indicates the run ID has no log entry.
var ErrRunNotFound = errors.New("run not found")

// RunEntry is one row of the run log.
type RunEntry struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Status        RunStatus
	Mode          string
	ConfigJSON    string
	NewEvents     int
	NewUsers      int
	FactsInserted int
	FactsSkipped  int
	DQPassed      *bool
	Warnings      []string
	Error         string
}

// RunLog records one pipeline_runs row per run.
type RunLog struct {
	db *DB
}

// NewRunLog creates a run log over db. The table must exist (see Migrate).
func NewRunLog(db *DB) *RunLog {
	return &RunLog{db: db}
}

// Start inserts the entry with status running.
func (l *RunLog) Start(ctx context.Context, e RunEntry) error {
	if e.ConfigJSON == "" {
		e.ConfigJSON = "{}"
	}
	_, err := l.db.ExecContext(ctx, l.db.Rebind(`
		INSERT INTO pipeline_runs (run_id, started_at, status, mode, config_json)
		VALUES (?, ?, ?, ?, ?)
	`), e.RunID, FormatTime(e.StartedAt), string(RunRunning), e.Mode, e.ConfigJSON)
	if err != nil {
		return fmt.Errorf("start run %s: %w", e.RunID, err)
	}
	return nil
}

// Finish writes the final status and counters of the entry.
func (l *RunLog) Finish(ctx context.Context, e RunEntry) error {
	warnings, err := json.Marshal(nonNil(e.Warnings))
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	var dq any
	if e.DQPassed != nil {
		dq = *e.DQPassed
	}
	var errText any
	if e.Error != "" {
		errText = e.Error
	}

	res, err := l.db.ExecContext(ctx, l.db.Rebind(`
		UPDATE pipeline_runs
		SET finished_at = ?, status = ?, new_events = ?, new_users = ?, facts_inserted = ?,
			facts_skipped = ?, dq_passed = ?, warnings = ?, error = ?
		WHERE run_id = ?
	`), NullTime(e.FinishedAt), string(e.Status), e.NewEvents, e.NewUsers, e.FactsInserted,
		e.FactsSkipped, dq, string(warnings), errText, e.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", e.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", e.RunID, ErrRunNotFound)
	}
	return nil
}

// Get loads one entry.
func (l *RunLog) Get(ctx context.Context, runID string) (RunEntry, error) {
	row := l.db.QueryRowContext(ctx, l.db.Rebind(selectRuns+` WHERE run_id = ?`), runID)
	e, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunEntry{}, ErrRunNotFound
	}
	return e, err
}

// Recent returns up to limit entries, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]RunEntry, error) {
	rows, err := l.db.QueryContext(ctx, l.db.Rebind(selectRuns+` ORDER BY started_at DESC, run_id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunEntry
	for rows.Next() {
		e, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

const selectRuns = `
	SELECT run_id, started_at, finished_at, status, mode, config_json,
		new_events, new_users, facts_inserted, facts_skipped, dq_passed, warnings, error
	FROM pipeline_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunEntry, error) {
	var (
		e                 RunEntry
		started, status   string
		finished, errText sql.NullString
		dq                sql.NullBool
		warnings          string
	)
	err := s.Scan(&e.RunID, &started, &finished, &status, &e.Mode, &e.ConfigJSON,
		&e.NewEvents, &e.NewUsers, &e.FactsInserted, &e.FactsSkipped, &dq, &warnings, &errText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunEntry{}, err
		}
		return RunEntry{}, fmt.Errorf("scan run: %w", err)
	}

	if e.StartedAt, err = ParseTime(started); err != nil {
		return RunEntry{}, err
	}
	if e.FinishedAt, err = ParseNullTime(finished); err != nil {
		return RunEntry{}, err
	}
	e.Status = RunStatus(status)
	if dq.Valid {
		v := dq.Bool
		e.DQPassed = &v
	}
	if err := json.Unmarshal([]byte(warnings), &e.Warnings); err != nil {
		return RunEntry{}, fmt.Errorf("decode warnings of run %s: %w", e.RunID, err)
	}
	e.Error = errText.String
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
