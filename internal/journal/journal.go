// Package journal persists one row per supervised operation run, giving
// operators a durable history of syncs, scrubs, parity checks, and
// configure pipelines across daemon restarts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/supervisor"
)

// Run is one journaled operation run.
type Run struct {
	RunID      string     `json:"runId"`
	Kind       string     `json:"kind"`
	State      string     `json:"state"`
	Progress   int        `json:"progress"`
	StatusText string     `json:"statusText,omitempty"`
	Step       string     `json:"step,omitempty"`
	Error      string     `json:"error,omitempty"`
	ExitCode   *int       `json:"exitCode,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.JournalPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	statements := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS operation_runs (
			run_id      TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			state       TEXT NOT NULL,
			progress    INTEGER NOT NULL DEFAULT 0,
			status_text TEXT,
			step        TEXT,
			error       TEXT,
			exit_code   INTEGER,
			started_at  TEXT NOT NULL,
			finished_at TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS idx_operation_runs_started ON operation_runs(started_at)",
	}
	for _, statement := range statements {
		if _, execErr := db.Exec(statement); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema statement: %w", execErr)
		}
	}

	return &Store{db: db, path: dbPath, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordStart inserts the row for a freshly started run. Errors are logged
// rather than returned; a journal hiccup must never stop an operation.
func (s *Store) RecordStart(kind, runID string, startedAt time.Time) {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO operation_runs (run_id, kind, state, progress, started_at)
		 VALUES (?, ?, ?, 0, ?)`,
		runID,
		kind,
		supervisor.StateRunning,
		startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Error("journal start insert failed",
			logging.String(logging.FieldRunID, runID),
			logging.Error(err))
	}
}

// RecordFinish updates the run's row with its terminal status.
func (s *Store) RecordFinish(status supervisor.Status) {
	var finishedAt any
	if status.FinishedAt != nil {
		finishedAt = status.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE operation_runs
		 SET state = ?, progress = ?, status_text = ?, step = ?, error = ?, exit_code = ?, finished_at = ?
		 WHERE run_id = ?`,
		status.State,
		status.Progress,
		nullableString(status.StatusText),
		nullableString(status.Step),
		nullableString(status.Error),
		nullableInt(status.ExitCode),
		finishedAt,
		status.RunID,
	)
	if err != nil {
		s.logger.Error("journal finish update failed",
			logging.String(logging.FieldRunID, status.RunID),
			logging.Error(err))
	}
}

// Recent returns the most recently started runs, newest first. A limit of
// zero or less falls back to 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, kind, state, progress, status_text, step, error, exit_code, started_at, finished_at
		 FROM operation_runs
		 ORDER BY started_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		statusText  sql.NullString
		step        sql.NullString
		errText     sql.NullString
		exitCode    sql.NullInt64
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.RunID, &run.Kind, &run.State, &run.Progress,
		&statusText, &step, &errText, &exitCode,
		&startedRaw, &finishedRaw,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.StatusText = statusText.String
	run.Step = step.String
	run.Error = errText.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}

	startedAt, err := time.Parse(time.RFC3339Nano, startedRaw)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = startedAt

	if finishedRaw.Valid {
		finishedAt, err := time.Parse(time.RFC3339Nano, finishedRaw.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &finishedAt
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
