package persistence

import (
	"context"
	"time"
)

// ScheduleFilter narrows schedule queries.
type ScheduleFilter struct {
	UserID string
	// OverlapsStart/OverlapsEnd select schedules whose validity window
	// overlaps the given date range. Either bound may be nil.
	OverlapsStart *time.Time
	OverlapsEnd   *time.Time
	// IncludeInactive also returns soft-deleted schedules.
	IncludeInactive bool
}

// MedicationRepository exposes catalog operations for medications.
type MedicationRepository interface {
	CreateMedication(ctx context.Context, medication Medication) error
	GetMedication(ctx context.Context, id string) (Medication, error)
	SearchMedications(ctx context.Context, query string, limit int) ([]Medication, error)
}

// ScheduleRepository stores user medication schedules.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule) error
	UpdateSchedule(ctx context.Context, schedule Schedule) error
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)
	// DeactivateSchedule performs the soft delete.
	DeactivateSchedule(ctx context.Context, id string, at time.Time) error
}

// DoseLogRepository stores append-only dose logs.
type DoseLogRepository interface {
	AppendLog(ctx context.Context, log DoseLog) (DoseLog, error)
	ListLogsForSchedules(ctx context.Context, scheduleIDs []string) ([]DoseLog, error)
}
