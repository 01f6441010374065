package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
)

// DoseLogRepository implements persistence.DoseLogRepository on SQLite.
type DoseLogRepository struct {
	store *Store
}

// NewDoseLogRepository wires a dose log repository onto the store.
func NewDoseLogRepository(store *Store) *DoseLogRepository {
	return &DoseLogRepository{store: store}
}

// AppendLog inserts a dose log and returns the stored record.
func (r *DoseLogRepository) AppendLog(ctx context.Context, log persistence.DoseLog) (persistence.DoseLog, error) {
	if log.ID == "" {
		return persistence.DoseLog{}, persistence.ErrConstraintViolation
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO dose_logs (id, schedule_id, scheduled_at, taken_at, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.ScheduleID,
		formatTimestamp(log.ScheduledAt),
		nullableTimestamp(log.TakenAt),
		log.Status,
		nullableString(log.Notes),
		formatTimestamp(log.CreatedAt),
	)
	if err != nil {
		return persistence.DoseLog{}, mapError(err)
	}
	return log, nil
}

// ListLogsForSchedules returns every log owned by the given schedules,
// ordered by scheduled timestamp then creation time then ID.
func (r *DoseLogRepository) ListLogsForSchedules(ctx context.Context, scheduleIDs []string) ([]persistence.DoseLog, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(scheduleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(scheduleIDs))
	for i, id := range scheduleIDs {
		args[i] = id
	}

	rows, err := r.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, schedule_id, scheduled_at, taken_at, status, notes, created_at
		FROM dose_logs
		WHERE schedule_id IN (%s)
		ORDER BY scheduled_at, created_at, id`, placeholders), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var logs []persistence.DoseLog
	for rows.Next() {
		log, err := scanDoseLog(rows)
		if err != nil {
			return nil, mapError(err)
		}
		logs = append(logs, log)
	}
	return logs, mapError(rows.Err())
}

func scanDoseLog(row rowScanner) (persistence.DoseLog, error) {
	var log persistence.DoseLog
	var takenAt, notes sql.NullString
	var scheduledAt, createdAt string

	if err := row.Scan(
		&log.ID,
		&log.ScheduleID,
		&scheduledAt,
		&takenAt,
		&log.Status,
		&notes,
		&createdAt,
	); err != nil {
		return persistence.DoseLog{}, err
	}

	log.Notes = stringPtr(notes)

	var err error
	if log.ScheduledAt, err = parseTimestamp(scheduledAt); err != nil {
		return persistence.DoseLog{}, err
	}
	if takenAt.Valid {
		parsed, err := parseTimestamp(takenAt.String)
		if err != nil {
			return persistence.DoseLog{}, err
		}
		log.TakenAt = &parsed
	}
	if log.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.DoseLog{}, err
	}
	return log, nil
}
