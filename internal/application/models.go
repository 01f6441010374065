package application

import "time"

// Principal identifies the user on whose behalf a service method runs.
// Authentication itself happens in an external transport layer; by the time
// a request reaches a service the principal is already resolved.
type Principal struct {
	UserID string
}

// Medication is a catalog entry shared across users.
type Medication struct {
	ID              string
	Name            string
	ActivePrinciple string
	Manufacturer    *string
	Category        *string
	Strength        *string
	Form            *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Schedule is a user's prescription: a medication bound to recurring daily
// time slots and a validity window.
type Schedule struct {
	ID                string
	UserID            string
	Medication        Medication
	Dosage            string
	TimeSlots         []string
	Route             string
	StartDate         time.Time
	EndDate           *time.Time
	InitialStock      int
	CurrentStock      int
	LowStockThreshold int
	LowStock          bool
	Notes             *string
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Logs              []DoseLog
}

// DoseLog is a persisted record of an occurrence's observed outcome.
type DoseLog struct {
	ID          string
	ScheduleID  string
	ScheduledAt time.Time
	TakenAt     *time.Time
	Status      string
	Notes       *string
	CreatedAt   time.Time
}

// MedicationInput captures the fields for registering a brand-new catalog
// medication alongside a schedule.
type MedicationInput struct {
	Name            string
	ActivePrinciple string
	Manufacturer    *string
	Category        *string
	Strength        *string
	Form            *string
}

// ScheduleInput captures caller provided schedule fields. Exactly one of
// MedicationID and NewMedication must be set on create. When EndDate is
// absent and DurationDays is positive, the end date derives as
// StartDate + DurationDays - 1.
type ScheduleInput struct {
	MedicationID      string
	NewMedication     *MedicationInput
	Dosage            string
	TimeSlots         []string
	Route             string
	StartDate         time.Time
	EndDate           *time.Time
	DurationDays      int
	InitialStock      int
	CurrentStock      int
	LowStockThreshold int
	Notes             *string
	Active            *bool
}

// CreateScheduleParams wraps the data required to register a schedule.
type CreateScheduleParams struct {
	Principal Principal
	Input     ScheduleInput
}

// UpdateScheduleParams wraps the data required to update a schedule.
type UpdateScheduleParams struct {
	Principal  Principal
	ScheduleID string
	Input      ScheduleInput
}

// ListSchedulesParams wraps the data required to list a user's schedules.
// When From/To are set, only schedules whose validity window overlaps the
// range are returned.
type ListSchedulesParams struct {
	Principal Principal
	From      *time.Time
	To        *time.Time
}

// Occurrence is one expected dose on the day sheet, resolved against logs.
type Occurrence struct {
	Schedule Schedule
	Date     time.Time
	TimeSlot string
	Status   string
	Log      *DoseLog
}

// DaySheet is the reconciled occurrence list for one calendar date.
type DaySheet struct {
	Date        time.Time
	Occurrences []Occurrence
	Total       int
	Taken       int
}

// DayIndicator is the per-date aggregate consumed by week and month views.
type DayIndicator struct {
	Date  time.Time
	Total int
	Taken int
}

// RangePeriod identifies the display window preset for indicator queries.
type RangePeriod string

const (
	// RangePeriodNone indicates explicit caller supplied bounds.
	RangePeriodNone RangePeriod = ""
	// RangePeriodDay aggregates a single day.
	RangePeriodDay RangePeriod = "day"
	// RangePeriodWeek aggregates the Sunday-start week containing the reference date.
	RangePeriodWeek RangePeriod = "week"
	// RangePeriodMonth aggregates the month containing the reference date,
	// padded outward to full display weeks.
	RangePeriodMonth RangePeriod = "month"
)

// RangeIndicatorsParams wraps the data required for an indicator query.
type RangeIndicatorsParams struct {
	Principal Principal
	Start     time.Time
	End       time.Time
	Period    RangePeriod
	Reference time.Time
}

// MarkTakenParams wraps the data required to confirm a dose as taken.
type MarkTakenParams struct {
	Principal  Principal
	ScheduleID string
	Date       time.Time
	TimeSlot   string
	TakenAt    *time.Time
	Notes      *string
}
