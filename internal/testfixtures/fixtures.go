package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/intake-tracker/internal/application"
	"github.com/example/intake-tracker/internal/persistence"
	"github.com/example/intake-tracker/internal/reconcile"
)

var (
	medicationCounter uint64
	scheduleCounter   uint64
	logCounter        uint64
)

var referenceTime = time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Medication fixtures --------------------------

// MedicationFixture represents a deterministic catalog medication record.
type MedicationFixture struct {
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

// MedicationOption configures the generated medication fixture.
type MedicationOption func(*MedicationFixture)

// NewMedicationFixture returns a deterministic medication fixture with
// optional overrides.
func NewMedicationFixture(opts ...MedicationOption) MedicationFixture {
	idx := atomic.AddUint64(&medicationCounter, 1)
	id := fmt.Sprintf("medication-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := MedicationFixture{
		ID:              id,
		Name:            fmt.Sprintf("Medication %03d", idx),
		ActivePrinciple: fmt.Sprintf("principle-%03d", idx),
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMedicationID overrides the generated medication ID.
func WithMedicationID(id string) MedicationOption {
	return func(f *MedicationFixture) {
		f.ID = id
	}
}

// WithMedicationName overrides the generated name.
func WithMedicationName(name string) MedicationOption {
	return func(f *MedicationFixture) {
		f.Name = name
	}
}

// WithActivePrinciple overrides the generated active principle.
func WithActivePrinciple(principle string) MedicationOption {
	return func(f *MedicationFixture) {
		f.ActivePrinciple = principle
	}
}

// WithManufacturer sets the manufacturer on the fixture.
func WithManufacturer(manufacturer string) MedicationOption {
	return func(f *MedicationFixture) {
		value := manufacturer
		f.Manufacturer = &value
	}
}

// WithMedicationCategory sets the category on the fixture.
func WithMedicationCategory(category string) MedicationOption {
	return func(f *MedicationFixture) {
		value := category
		f.Category = &value
	}
}

// WithMedicationStrength sets the strength on the fixture.
func WithMedicationStrength(strength string) MedicationOption {
	return func(f *MedicationFixture) {
		value := strength
		f.Strength = &value
	}
}

// WithMedicationForm sets the dosage form on the fixture.
func WithMedicationForm(form string) MedicationOption {
	return func(f *MedicationFixture) {
		value := form
		f.Form = &value
	}
}

// WithMedicationTimestamps sets both created and updated timestamps.
func WithMedicationTimestamps(created, updated time.Time) MedicationOption {
	return func(f *MedicationFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Medication value.
func (f MedicationFixture) Application() application.Medication {
	return application.Medication{
		ID:              f.ID,
		Name:            f.Name,
		ActivePrinciple: f.ActivePrinciple,
		Manufacturer:    copyStringPtr(f.Manufacturer),
		Category:        copyStringPtr(f.Category),
		Strength:        copyStringPtr(f.Strength),
		Form:            copyStringPtr(f.Form),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Medication value.
func (f MedicationFixture) Persistence() persistence.Medication {
	return persistence.Medication{
		ID:              f.ID,
		Name:            f.Name,
		ActivePrinciple: f.ActivePrinciple,
		Manufacturer:    copyStringPtr(f.Manufacturer),
		Category:        copyStringPtr(f.Category),
		Strength:        copyStringPtr(f.Strength),
		Form:            copyStringPtr(f.Form),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Input returns the fixture as an application.MedicationInput.
func (f MedicationFixture) Input() application.MedicationInput {
	return application.MedicationInput{
		Name:            f.Name,
		ActivePrinciple: f.ActivePrinciple,
		Manufacturer:    copyStringPtr(f.Manufacturer),
		Category:        copyStringPtr(f.Category),
		Strength:        copyStringPtr(f.Strength),
		Form:            copyStringPtr(f.Form),
	}
}

// --------------------------- Schedule fixtures ---------------------------

// ScheduleFixture represents a deterministic user medication schedule.
type ScheduleFixture struct {
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

// ScheduleOption configures the generated schedule fixture.
type ScheduleOption func(*ScheduleFixture)

// NewScheduleFixture returns a deterministic schedule fixture with optional
// overrides. The default schedule is open-ended and runs twice a day starting
// on the reference date.
func NewScheduleFixture(opts ...ScheduleOption) ScheduleFixture {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	id := fmt.Sprintf("schedule-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ScheduleFixture{
		ID:           id,
		UserID:       fmt.Sprintf("user-%03d", idx),
		MedicationID: fmt.Sprintf("medication-%03d", idx),
		Dosage:       "1 tablet",
		TimeSlots:    []string{"08:00", "20:00"},
		Route:        "oral",
		StartDate:    reconcile.DateOf(referenceTime),
		Active:       true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithScheduleID overrides the schedule ID.
func WithScheduleID(id string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.ID = id
	}
}

// WithScheduleUser sets the owning user ID.
func WithScheduleUser(userID string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.UserID = userID
	}
}

// WithScheduleMedicationID sets the catalog medication reference.
func WithScheduleMedicationID(medicationID string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.MedicationID = medicationID
	}
}

// WithScheduleDosage overrides the dosage description.
func WithScheduleDosage(dosage string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Dosage = dosage
	}
}

// WithScheduleTimeSlots sets the daily time slots.
func WithScheduleTimeSlots(slots ...string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.TimeSlots = append([]string(nil), slots...)
	}
}

// WithScheduleRoute sets the administration route.
func WithScheduleRoute(route string) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Route = route
	}
}

// WithScheduleStartDate sets the start of the validity window.
func WithScheduleStartDate(t time.Time) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.StartDate = reconcile.DateOf(t)
	}
}

// WithScheduleEndDate sets the optional end of the validity window.
func WithScheduleEndDate(t time.Time) ScheduleOption {
	return func(f *ScheduleFixture) {
		end := reconcile.DateOf(t)
		f.EndDate = &end
	}
}

// WithoutScheduleEndDate makes the schedule open-ended.
func WithoutScheduleEndDate() ScheduleOption {
	return func(f *ScheduleFixture) {
		f.EndDate = nil
	}
}

// WithScheduleStock sets the initial and current stock counters.
func WithScheduleStock(initial, current, threshold int) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.InitialStock = initial
		f.CurrentStock = current
		f.LowStockThreshold = threshold
	}
}

// WithScheduleNotes sets the free-form notes on the fixture.
func WithScheduleNotes(notes string) ScheduleOption {
	return func(f *ScheduleFixture) {
		value := notes
		f.Notes = &value
	}
}

// WithScheduleActive sets the active flag.
func WithScheduleActive(active bool) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.Active = active
	}
}

// WithScheduleTimestamps sets both created and updated timestamps.
func WithScheduleTimestamps(created, updated time.Time) ScheduleOption {
	return func(f *ScheduleFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.Schedule value.
func (f ScheduleFixture) Persistence() persistence.Schedule {
	return persistence.Schedule{
		ID:                f.ID,
		UserID:            f.UserID,
		MedicationID:      f.MedicationID,
		Dosage:            f.Dosage,
		TimeSlots:         append([]string(nil), f.TimeSlots...),
		Route:             f.Route,
		StartDate:         f.StartDate,
		EndDate:           copyTimePtr(f.EndDate),
		InitialStock:      f.InitialStock,
		CurrentStock:      f.CurrentStock,
		LowStockThreshold: f.LowStockThreshold,
		Notes:             copyStringPtr(f.Notes),
		Active:            f.Active,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ScheduleInput referencing the
// fixture's catalog medication by ID.
func (f ScheduleFixture) Input() application.ScheduleInput {
	active := f.Active
	return application.ScheduleInput{
		MedicationID:      f.MedicationID,
		Dosage:            f.Dosage,
		TimeSlots:         append([]string(nil), f.TimeSlots...),
		Route:             f.Route,
		StartDate:         f.StartDate,
		EndDate:           copyTimePtr(f.EndDate),
		InitialStock:      f.InitialStock,
		CurrentStock:      f.CurrentStock,
		LowStockThreshold: f.LowStockThreshold,
		Notes:             copyStringPtr(f.Notes),
		Active:            &active,
	}
}

// Reconcile returns the fixture as a reconcile.Schedule for engine tests.
func (f ScheduleFixture) Reconcile() reconcile.Schedule {
	return reconcile.Schedule{
		ID:        f.ID,
		TimeSlots: append([]string(nil), f.TimeSlots...),
		StartDate: f.StartDate,
		EndDate:   copyTimePtr(f.EndDate),
		Active:    f.Active,
	}
}

// ---------------------------- Dose log fixtures --------------------------

// DoseLogFixture represents a deterministic dose log record.
type DoseLogFixture struct {
	ID          string
	ScheduleID  string
	ScheduledAt time.Time
	TakenAt     *time.Time
	Status      string
	Notes       *string
	CreatedAt   time.Time
}

// DoseLogOption configures the generated dose log fixture.
type DoseLogOption func(*DoseLogFixture)

// NewDoseLogFixture returns a deterministic taken-log fixture with optional
// overrides.
func NewDoseLogFixture(opts ...DoseLogOption) DoseLogFixture {
	idx := atomic.AddUint64(&logCounter, 1)
	id := fmt.Sprintf("log-%03d", idx)
	scheduledAt := referenceTime.Add(time.Duration(idx) * time.Hour)
	takenAt := scheduledAt.Add(5 * time.Minute)
	fixture := DoseLogFixture{
		ID:          id,
		ScheduleID:  fmt.Sprintf("schedule-%03d", idx),
		ScheduledAt: scheduledAt,
		TakenAt:     &takenAt,
		Status:      "taken",
		CreatedAt:   takenAt,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithLogID overrides the log ID.
func WithLogID(id string) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.ID = id
	}
}

// WithLogScheduleID sets the owning schedule ID.
func WithLogScheduleID(scheduleID string) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.ScheduleID = scheduleID
	}
}

// WithLogScheduledAt sets the occurrence timestamp.
func WithLogScheduledAt(t time.Time) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.ScheduledAt = t
	}
}

// WithLogTakenAt sets the confirmation timestamp.
func WithLogTakenAt(t time.Time) DoseLogOption {
	return func(f *DoseLogFixture) {
		taken := t
		f.TakenAt = &taken
	}
}

// WithoutLogTakenAt clears the confirmation timestamp.
func WithoutLogTakenAt() DoseLogOption {
	return func(f *DoseLogFixture) {
		f.TakenAt = nil
	}
}

// WithLogStatus sets the log status.
func WithLogStatus(status string) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.Status = status
	}
}

// WithLogNotes sets the free-form notes on the fixture.
func WithLogNotes(notes string) DoseLogOption {
	return func(f *DoseLogFixture) {
		value := notes
		f.Notes = &value
	}
}

// WithLogCreatedAt sets the created timestamp.
func WithLogCreatedAt(t time.Time) DoseLogOption {
	return func(f *DoseLogFixture) {
		f.CreatedAt = t
	}
}

// Application returns the fixture as an application.DoseLog value.
func (f DoseLogFixture) Application() application.DoseLog {
	return application.DoseLog{
		ID:          f.ID,
		ScheduleID:  f.ScheduleID,
		ScheduledAt: f.ScheduledAt,
		TakenAt:     copyTimePtr(f.TakenAt),
		Status:      f.Status,
		Notes:       copyStringPtr(f.Notes),
		CreatedAt:   f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.DoseLog value.
func (f DoseLogFixture) Persistence() persistence.DoseLog {
	return persistence.DoseLog{
		ID:          f.ID,
		ScheduleID:  f.ScheduleID,
		ScheduledAt: f.ScheduledAt,
		TakenAt:     copyTimePtr(f.TakenAt),
		Status:      f.Status,
		Notes:       copyStringPtr(f.Notes),
		CreatedAt:   f.CreatedAt,
	}
}

// Reconcile returns the fixture as a reconcile.DoseLog for engine tests.
func (f DoseLogFixture) Reconcile() reconcile.DoseLog {
	log := reconcile.DoseLog{
		ID:          f.ID,
		ScheduleID:  f.ScheduleID,
		ScheduledAt: f.ScheduledAt,
		TakenAt:     copyTimePtr(f.TakenAt),
		Status:      reconcile.Status(f.Status),
		CreatedAt:   f.CreatedAt,
	}
	if f.Notes != nil {
		log.Notes = *f.Notes
	}
	return log
}

// helper to deep copy optional strings.
func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

// helper to deep copy optional timestamps.
func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
