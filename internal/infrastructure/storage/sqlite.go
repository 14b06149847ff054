package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the run history.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens the SQLite database at dbPath and applies pending migrations
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}

	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// dsn enables foreign keys and a busy timeout on every pooled connection
func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartSyncRun records the start of a sync run
func (s *Storage) StartSyncRun(params RunParams) (int64, error) {
	query := `
		INSERT INTO sync_runs (source, since_date, today_date, dry_run, status)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query, params.Source, params.SinceDate, params.TodayDate, params.DryRun, StatusRunning)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// CompleteSyncRun records the completion of a sync run
func (s *Storage) CompleteSyncRun(runID int64, counts RunCounts) error {
	query := `
		UPDATE sync_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    checking_count = ?,
		    credit_count = ?,
		    imported_count = ?,
		    duplicate_count = ?,
		    adjustment_count = ?,
		    status = ?
		WHERE id = ?
	`

	return s.updateRun(query,
		counts.Checking,
		counts.Credit,
		counts.Imported,
		counts.Duplicates,
		counts.Adjustments,
		StatusCompleted,
		runID,
	)
}

// FailSyncRun marks a run as failed
func (s *Storage) FailSyncRun(runID int64, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	query := `
		UPDATE sync_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    status = ?,
		    error_message = ?
		WHERE id = ?
	`

	return s.updateRun(query, StatusFailed, message, runID)
}

func (s *Storage) updateRun(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// AddRunWarning stores a warning line for a run
func (s *Storage) AddRunWarning(runID int64, warning RunWarning) error {
	_, err := s.db.Exec(`
		INSERT INTO run_warnings (run_id, import_id, message)
		VALUES (?, ?, ?)
	`, runID, warning.ImportID, warning.Message)
	return err
}

const syncRunColumns = `
	id, source, started_at, completed_at, since_date, today_date, dry_run,
	checking_count, credit_count, imported_count, duplicate_count, adjustment_count,
	status, error_message
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (*SyncRun, error) {
	var run SyncRun
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.Source,
		&run.StartedAt,
		&completedAt,
		&run.SinceDate,
		&run.TodayDate,
		&run.DryRun,
		&run.CheckingCount,
		&run.CreditCount,
		&run.ImportedCount,
		&run.DuplicateCount,
		&run.AdjustmentCount,
		&run.Status,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

// ListSyncRuns returns recent sync runs without their warnings
func (s *Storage) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.Query(`SELECT `+syncRunColumns+`
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]SyncRun, 0)
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetSyncRun retrieves a sync run by ID with its warnings
func (s *Storage) GetSyncRun(runID int64) (*SyncRun, error) {
	row := s.db.QueryRow(`SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, runID)

	run, err := scanSyncRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	run.Warnings, err = s.runWarnings(runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Storage) runWarnings(runID int64) ([]RunWarning, error) {
	rows, err := s.db.Query(`
		SELECT import_id, message, created_at
		FROM run_warnings
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var warnings []RunWarning
	for rows.Next() {
		var w RunWarning
		if err := rows.Scan(&w.ImportID, &w.Message, &w.CreatedAt); err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}

	return warnings, rows.Err()
}

// LogAPICall logs an outbound call to the database
func (s *Storage) LogAPICall(call *APICall) error {
	query := `
		INSERT INTO api_calls (run_id, method, item_count, error, duration_ms)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		call.RunID,
		call.Method,
		call.ItemCount,
		call.Error,
		call.DurationMs,
	)

	return err
}

// GetAPICallsByRunID retrieves all calls logged for a sync run
func (s *Storage) GetAPICallsByRunID(runID int64) ([]APICall, error) {
	query := `
		SELECT run_id, method, item_count, error, duration_ms, timestamp
		FROM api_calls
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var calls []APICall
	for rows.Next() {
		var call APICall
		err := rows.Scan(
			&call.RunID,
			&call.Method,
			&call.ItemCount,
			&call.Error,
			&call.DurationMs,
			&call.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	return calls, rows.Err()
}
