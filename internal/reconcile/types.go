package reconcile

import "time"

// Status describes the resolved outcome of a dose occurrence.
type Status string

const (
	// StatusPending indicates no log has been recorded for the occurrence.
	StatusPending Status = "pending"
	// StatusTaken indicates the dose was confirmed as taken.
	StatusTaken Status = "taken"
	// StatusMissed indicates an external process marked the dose as missed.
	StatusMissed Status = "missed"
	// StatusSkipped indicates an external process marked the dose as skipped.
	StatusSkipped Status = "skipped"
)

// Schedule carries the subset of a medication schedule the engine consumes.
type Schedule struct {
	ID        string
	TimeSlots []string
	StartDate time.Time
	EndDate   *time.Time
	Active    bool
}

// DoseLog is a persisted record of an occurrence's observed outcome.
type DoseLog struct {
	ID          string
	ScheduleID  string
	ScheduledAt time.Time
	TakenAt     *time.Time
	Status      Status
	Notes       string
	CreatedAt   time.Time
}

// Occurrence is one expected dose at one time slot on one calendar date.
// Identity is the (ScheduleID, Date, TimeSlot) triple.
type Occurrence struct {
	ScheduleID string
	Date       time.Time
	TimeSlot   string
	Status     Status
	Log        *DoseLog
}

// DaySheet is the reconciled occurrence list for a single calendar date.
type DaySheet struct {
	Date        time.Time
	Occurrences []Occurrence
	Total       int
	Taken       int
}

// DayIndicator is the per-date aggregate used by week and month views.
type DayIndicator struct {
	Date  time.Time
	Total int
	Taken int
}
