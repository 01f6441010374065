package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository on SQLite.
// Time slots live in a child table ordered by position, so the stored order
// is always the normalized ascending order the application writes.
type ScheduleRepository struct {
	store *Store
}

// NewScheduleRepository wires a schedule repository onto the store.
func NewScheduleRepository(store *Store) *ScheduleRepository {
	return &ScheduleRepository{store: store}
}

// CreateSchedule inserts a schedule with its time slots.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	if schedule.UpdatedAt.IsZero() {
		schedule.UpdatedAt = now
	}

	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO schedules (id, user_id, medication_id, dosage, route, start_date, end_date,
				initial_stock, current_stock, low_stock_threshold, notes, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			schedule.ID,
			schedule.UserID,
			schedule.MedicationID,
			schedule.Dosage,
			schedule.Route,
			formatDate(schedule.StartDate),
			nullableDate(schedule.EndDate),
			schedule.InitialStock,
			schedule.CurrentStock,
			schedule.LowStockThreshold,
			nullableString(schedule.Notes),
			boolToInt(schedule.Active),
			formatTimestamp(schedule.CreatedAt),
			formatTimestamp(schedule.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return r.replaceTimeSlots(ctx, tx, schedule.ID, schedule.TimeSlots)
	})
}

// UpdateSchedule updates a schedule and replaces its time slots.
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}
	schedule.UpdatedAt = time.Now().UTC()

	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE schedules
			SET dosage = ?, route = ?, start_date = ?, end_date = ?,
				initial_stock = ?, current_stock = ?, low_stock_threshold = ?,
				notes = ?, active = ?, updated_at = ?
			WHERE id = ?`,
			schedule.Dosage,
			schedule.Route,
			formatDate(schedule.StartDate),
			nullableDate(schedule.EndDate),
			schedule.InitialStock,
			schedule.CurrentStock,
			schedule.LowStockThreshold,
			nullableString(schedule.Notes),
			boolToInt(schedule.Active),
			formatTimestamp(schedule.UpdatedAt),
			schedule.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return mapError(err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return r.replaceTimeSlots(ctx, tx, schedule.ID, schedule.TimeSlots)
	})
}

// GetSchedule retrieves a schedule with its time slots.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	row := r.store.db.QueryRowContext(ctx, scheduleSelect+" WHERE id = ?", id)
	schedule, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Schedule{}, persistence.ErrNotFound
		}
		return persistence.Schedule{}, mapError(err)
	}

	slots, err := r.timeSlotsFor(ctx, []string{id})
	if err != nil {
		return persistence.Schedule{}, err
	}
	schedule.TimeSlots = slots[id]
	return schedule, nil
}

// ListSchedules returns the schedules matching the filter, ordered by
// creation time then ID for stable output.
func (r *ScheduleRepository) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if !filter.IncludeInactive {
		conditions = append(conditions, "active = 1")
	}
	// Window overlap: a schedule overlaps [start, end] unless it ends before
	// the range starts or begins after the range ends.
	if filter.OverlapsEnd != nil {
		conditions = append(conditions, "start_date <= ?")
		args = append(args, formatDate(*filter.OverlapsEnd))
	}
	if filter.OverlapsStart != nil {
		conditions = append(conditions, "(end_date IS NULL OR end_date >= ?)")
		args = append(args, formatDate(*filter.OverlapsStart))
	}

	query := scheduleSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var schedules []persistence.Schedule
	var ids []string
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, mapError(err)
		}
		schedules = append(schedules, schedule)
		ids = append(ids, schedule.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	slots, err := r.timeSlotsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].TimeSlots = slots[schedules[i].ID]
	}
	return schedules, nil
}

// DeactivateSchedule performs the soft delete.
func (r *ScheduleRepository) DeactivateSchedule(ctx context.Context, id string, at time.Time) error {
	result, err := r.store.db.ExecContext(ctx,
		"UPDATE schedules SET active = 0, updated_at = ? WHERE id = ?",
		formatTimestamp(at.UTC()), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const scheduleSelect = `
	SELECT id, user_id, medication_id, dosage, route, start_date, end_date,
		initial_stock, current_stock, low_stock_threshold, notes, active, created_at, updated_at
	FROM schedules`

func scanSchedule(row rowScanner) (persistence.Schedule, error) {
	var schedule persistence.Schedule
	var endDate, notes sql.NullString
	var active int
	var startDate, createdAt, updatedAt string

	if err := row.Scan(
		&schedule.ID,
		&schedule.UserID,
		&schedule.MedicationID,
		&schedule.Dosage,
		&schedule.Route,
		&startDate,
		&endDate,
		&schedule.InitialStock,
		&schedule.CurrentStock,
		&schedule.LowStockThreshold,
		&notes,
		&active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Schedule{}, err
	}

	schedule.Notes = stringPtr(notes)
	schedule.Active = active != 0

	var err error
	if schedule.StartDate, err = parseDate(startDate); err != nil {
		return persistence.Schedule{}, err
	}
	if endDate.Valid {
		parsed, err := parseDate(endDate.String)
		if err != nil {
			return persistence.Schedule{}, err
		}
		schedule.EndDate = &parsed
	}
	if schedule.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Schedule{}, err
	}
	if schedule.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Schedule{}, err
	}
	return schedule, nil
}

func (r *ScheduleRepository) replaceTimeSlots(ctx context.Context, tx *sql.Tx, scheduleID string, slots []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_time_slots WHERE schedule_id = ?", scheduleID); err != nil {
		return mapError(err)
	}
	for position, slot := range slots {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schedule_time_slots (schedule_id, slot, position) VALUES (?, ?, ?)",
			scheduleID, slot, position); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *ScheduleRepository) timeSlotsFor(ctx context.Context, scheduleIDs []string) (map[string][]string, error) {
	slots := make(map[string][]string, len(scheduleIDs))
	if len(scheduleIDs) == 0 {
		return slots, nil
	}

	placeholders := strings.Repeat("?,", len(scheduleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(scheduleIDs))
	for i, id := range scheduleIDs {
		args[i] = id
	}

	rows, err := r.store.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT schedule_id, slot FROM schedule_time_slots WHERE schedule_id IN (%s) ORDER BY schedule_id, position",
		placeholders), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var scheduleID, slot string
		if err := rows.Scan(&scheduleID, &slot); err != nil {
			return nil, mapError(err)
		}
		slots[scheduleID] = append(slots[scheduleID], slot)
	}
	return slots, mapError(rows.Err())
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
