// Package database stores the run journal in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"metafix/internal/database/migrations"
	"metafix/internal/fixer"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements fixer.Journal on a SQLite database.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

var _ fixer.Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal opens the journal at path, or ":memory:" for a throwaway
// journal, and brings its schema up to date.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing journal %s: %w", path, err)
	}
	return &SQLiteJournal{db: db, path: path}, nil
}

// OpenConnection opens a SQLite connection with foreign keys enforced.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Path returns the database location the journal was opened with.
func (j *SQLiteJournal) Path() string {
	return j.path
}

func (j *SQLiteJournal) StartRun(run *fixer.RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs (id, started_at, source_dir, timezone_mode, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.SourceDir, run.TimezoneMode, run.Status)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

func (j *SQLiteJournal) RecordOutcome(rec *fixer.OutcomeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO outcomes (run_id, sidecar_path, media_path, outcome, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.SidecarPath, rec.MediaPath, rec.Outcome, rec.Detail, rec.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting outcome for %s: %w", rec.SidecarPath, err)
	}
	return nil
}

func (j *SQLiteJournal) FinishRun(runID, status string, summary fixer.RunSummary, finishedAt time.Time) error {
	res, err := j.db.Exec(`
		UPDATE runs
		SET finished_at = ?, status = ?, total = ?, updated = ?, errors = ?, skipped_no_media = ?
		WHERE id = ?`,
		finishedAt.UTC(), status, summary.Discovered, summary.Updated(), summary.Errors(), summary.SkippedNoMedia(), runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run %s: no such run", runID)
	}
	return nil
}

func (j *SQLiteJournal) ListRuns(limit int) ([]*fixer.RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, started_at, finished_at, source_dir, timezone_mode, status,
		       total, updated, errors, skipped_no_media
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*fixer.RunRecord
	for rows.Next() {
		r := &fixer.RunRecord{}
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.SourceDir, &r.TimezoneMode, &r.Status,
			&r.Total, &r.Updated, &r.Errors, &r.SkippedNoMedia); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (j *SQLiteJournal) ListOutcomes(runID string) ([]*fixer.OutcomeRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, sidecar_path, media_path, outcome, detail, recorded_at
		FROM outcomes
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []*fixer.OutcomeRecord
	for rows.Next() {
		o := &fixer.OutcomeRecord{}
		if err := rows.Scan(&o.RunID, &o.SidecarPath, &o.MediaPath, &o.Outcome, &o.Detail, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing outcomes of %s: %w", runID, err)
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
