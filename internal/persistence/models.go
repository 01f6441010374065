package persistence

import "time"

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

// Schedule is a user's prescription record: a catalog medication bound to a
// recurring set of daily time slots and a validity window. Removal is a soft
// delete (Active set to false); rows are never physically deleted.
type Schedule struct {
	ID                string
	UserID            string
	MedicationID      string
	Dosage            string
	TimeSlots         []string
	Route             string
	StartDate         time.Time
	EndDate           *time.Time
	InitialStock      int
	CurrentStock      int
	LowStockThreshold int
	Notes             *string
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DoseLog records the observed outcome of one dose occurrence. Logs are
// append-only; the engine reads them and proposes new taken-logs but never
// mutates existing rows.
type DoseLog struct {
	ID          string
	ScheduleID  string
	ScheduledAt time.Time
	TakenAt     *time.Time
	Status      string
	Notes       *string
	CreatedAt   time.Time
}
