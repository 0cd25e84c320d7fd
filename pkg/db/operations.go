package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/abstract-enricher/models"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a run when it starts.
type RunInfo struct {
	InputPath       string
	OutputPath      string
	IdentifierField string
	URLTemplate     string
}

// Run is a stored run.
type Run struct {
	RunID           int64
	InputPath       string
	OutputPath      string
	IdentifierField string
	URLTemplate     string
	Status          string
	RowCount        int
	DurationSeconds float64
	ErrorMessage    string
	StartedAt       time.Time
	FinishedAt      *time.Time
}

// StartRun inserts a run in the running state and returns its ID.
func (db *DB) StartRun(info RunInfo) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (input_path, output_path, identifier_field, url_template, status)
		VALUES (?, ?, ?, ?, ?)
	`, info.InputPath, info.OutputPath, info.IdentifierField, info.URLTemplate, RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil.
func (db *DB) FinishRun(runID int64, rowCount int, duration time.Duration, runErr error) error {
	status := RunStatusCompleted
	var message sql.NullString
	if runErr != nil {
		status = RunStatusFailed
		message = NewNullString(runErr.Error())
	}

	result, err := db.Exec(`
		UPDATE runs
		SET status = ?, row_count = ?, duration_seconds = ?, error_message = ?, finished_at = CURRENT_TIMESTAMP
		WHERE run_id = ?
	`, status, rowCount, duration.Seconds(), message, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// RecordAccess records one identifier fetch for a run.
func (db *DB) RecordAccess(runID int64, access models.Access, language string) error {
	_, err := db.Exec(`
		INSERT INTO fetch_accesses (run_id, identifier, url, outcome, status_code, attempts, language)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, access.Identifier, access.URL, string(access.Outcome),
		NewNullInt64(int64(access.StatusCode)), access.Attempts, NewNullString(language))
	if err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return nil
}

// GetRun returns a single run.
func (db *DB) GetRun(runID int64) (*Run, error) {
	row := db.QueryRow(runSelect+" WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(runSelect+" ORDER BY run_id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// OutcomeCounts returns the number of accesses per outcome for a run.
func (db *DB) OutcomeCounts(runID int64) (map[models.Outcome]int, error) {
	rows, err := db.Query(`
		SELECT outcome, COUNT(*)
		FROM fetch_accesses
		WHERE run_id = ?
		GROUP BY outcome
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[models.Outcome(outcome)] = count
	}
	return counts, rows.Err()
}

// LanguageCounts returns the number of ok accesses per detected language for a run.
func (db *DB) LanguageCounts(runID int64) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT language, COUNT(*)
		FROM fetch_accesses
		WHERE run_id = ? AND language IS NOT NULL
		GROUP BY language
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count languages: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var language string
		var count int
		if err := rows.Scan(&language, &count); err != nil {
			return nil, fmt.Errorf("failed to scan language count: %w", err)
		}
		counts[language] = count
	}
	return counts, rows.Err()
}

const runSelect = `
	SELECT run_id, input_path, output_path, identifier_field, url_template, status,
		row_count, duration_seconds, error_message, started_at, finished_at
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var duration sql.NullFloat64
	var message sql.NullString
	var finished sql.NullTime
	if err := s.Scan(&r.RunID, &r.InputPath, &r.OutputPath, &r.IdentifierField, &r.URLTemplate,
		&r.Status, &r.RowCount, &duration, &message, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	r.DurationSeconds = duration.Float64
	r.ErrorMessage = message.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// NewNullString creates a sql.NullString from a string value.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// NewNullInt64 creates a sql.NullInt64, treating zero as NULL.
func NewNullInt64(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}
