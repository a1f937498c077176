package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/progress"
)

// Store journals results in a SQLite database.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// Entry is one journaled result.
type Entry struct {
	ID int64 `json:"id"`
	progress.Result
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or connects to the journal at path. maxEntries <= 0 keeps
// every row.
func Open(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, maxEntries: maxEntries}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends result and trims the journal to its configured size.
func (s *Store) Record(ctx context.Context, result progress.Result) error {
	ctx = ensureContext(ctx)
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO results (
                job_id, status, input_path, output_path, language, confidence,
                elapsed_seconds, segments, error_message, error_kind, finished_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.JobID,
			string(result.Status),
			result.InputPath,
			result.OutputPath,
			nullString(result.Language),
			nullFloat(result.Confidence),
			nullFloat(result.ElapsedSeconds),
			result.Segments,
			nullString(result.Error),
			nullString(result.ErrorKind),
			finished.UTC().Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return s.trim(ctx)
}

func (s *Store) trim(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`DELETE FROM results WHERE id NOT IN (
                SELECT id FROM results ORDER BY id DESC LIMIT ?
            )`, s.maxEntries)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, job_id, status, input_path, output_path, language, confidence,
        elapsed_seconds, segments, error_message, error_kind, finished_at
        FROM results ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Counts returns the number of journaled results grouped by status.
func (s *Store) Counts(ctx context.Context) (map[progress.Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM results GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	defer rows.Close()
	counts := make(map[progress.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan history count: %w", err)
		}
		counts[progress.Status(status)] = count
	}
	return counts, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry      Entry
		status     string
		language   sql.NullString
		confidence sql.NullFloat64
		elapsed    sql.NullFloat64
		errMsg     sql.NullString
		errKind    sql.NullString
		finished   string
	)
	if err := rows.Scan(
		&entry.ID,
		&entry.JobID,
		&status,
		&entry.InputPath,
		&entry.OutputPath,
		&language,
		&confidence,
		&elapsed,
		&entry.Segments,
		&errMsg,
		&errKind,
		&finished,
	); err != nil {
		return Entry{}, fmt.Errorf("scan history row: %w", err)
	}
	entry.Status = progress.Status(status)
	entry.Language = language.String
	entry.Error = errMsg.String
	entry.ErrorKind = errKind.String
	if confidence.Valid {
		entry.Confidence = progress.Float(confidence.Float64)
	}
	if elapsed.Valid {
		entry.ElapsedSeconds = progress.Float(elapsed.Float64)
	}
	if ts, err := time.Parse(time.RFC3339Nano, finished); err == nil {
		entry.FinishedAt = ts
	}
	return entry, nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
