package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/intake-tracker/internal/persistence"
)

// timestampLayout stores local wall-clock date+time pairs without a timezone
// component, matching the exchange convention for scheduled timestamps.
const timestampLayout = "2006-01-02T15:04:05"

// dateLayout stores calendar dates.
const dateLayout = "2006-01-02"

// Store wraps a SQLite database and implements the persistence repositories.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database addressed by dsn.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:intake.db?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	// modernc.org/sqlite serializes access through a single connection; a
	// larger pool only produces busy errors under write contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS medications (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		active_principle TEXT NOT NULL,
		manufacturer     TEXT,
		category         TEXT,
		strength         TEXT,
		form             TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedules (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL,
		medication_id       TEXT NOT NULL REFERENCES medications(id),
		dosage              TEXT NOT NULL,
		route               TEXT NOT NULL,
		start_date          TEXT NOT NULL,
		end_date            TEXT,
		initial_stock       INTEGER NOT NULL DEFAULT 0,
		current_stock       INTEGER NOT NULL DEFAULT 0,
		low_stock_threshold INTEGER NOT NULL DEFAULT 0,
		notes               TEXT,
		active              INTEGER NOT NULL DEFAULT 1,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		CHECK (end_date IS NULL OR end_date >= start_date)
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_time_slots (
		schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		slot        TEXT NOT NULL,
		position    INTEGER NOT NULL,
		PRIMARY KEY (schedule_id, slot)
	)`,
	`CREATE TABLE IF NOT EXISTS dose_logs (
		id           TEXT PRIMARY KEY,
		schedule_id  TEXT NOT NULL REFERENCES schedules(id),
		scheduled_at TEXT NOT NULL,
		taken_at     TEXT,
		status       TEXT NOT NULL CHECK (status IN ('pending', 'taken', 'missed', 'skipped')),
		notes        TEXT,
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_user ON schedules(user_id, active)`,
	`CREATE INDEX IF NOT EXISTS idx_dose_logs_schedule ON dose_logs(schedule_id, scheduled_at)`,
}

// Migrate applies the schema. Statements are idempotent so Migrate is safe to
// run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// withTransaction runs fn inside a transaction, rolling back on error.
func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(message, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case strings.Contains(message, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(timestampLayout, value)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	clone := value.String
	return &clone
}

func nullableTimestamp(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*value), Valid: true}
}

func nullableDate(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*value), Valid: true}
}
