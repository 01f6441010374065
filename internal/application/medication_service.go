package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
	"github.com/example/intake-tracker/internal/reconcile"
)

// MedicationService orchestrates validation and persistence for the
// medication catalog and per-user schedules.
type MedicationService struct {
	medications persistence.MedicationRepository
	schedules   persistence.ScheduleRepository
	logs        persistence.DoseLogRepository
	onMutate    func()
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMedicationService wires dependencies for catalog and schedule operations.
// onMutate runs after every committed schedule write and is where the
// indicator cache flush hooks in; it may be nil.
func NewMedicationService(medications persistence.MedicationRepository, schedules persistence.ScheduleRepository, logs persistence.DoseLogRepository, onMutate func(), idGenerator func() string, now func() time.Time) *MedicationService {
	return NewMedicationServiceWithLogger(medications, schedules, logs, onMutate, idGenerator, now, nil)
}

// NewMedicationServiceWithLogger constructs the service with a specified logger.
func NewMedicationServiceWithLogger(medications persistence.MedicationRepository, schedules persistence.ScheduleRepository, logs persistence.DoseLogRepository, onMutate func(), idGenerator func() string, now func() time.Time, logger *slog.Logger) *MedicationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MedicationService{
		medications: medications,
		schedules:   schedules,
		logs:        logs,
		onMutate:    onMutate,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MedicationService) notifyMutate() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

func (s *MedicationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MedicationService", operation, attrs...)
}

// RegisterSchedule validates the request, resolves or creates the catalog
// medication, and persists the schedule.
func (s *MedicationService) RegisterSchedule(ctx context.Context, params CreateScheduleParams) (schedule Schedule, err error) {
	if s == nil {
		err = fmt.Errorf("MedicationService is nil")
		return
	}
	input := params.Input
	principal := params.Principal

	logger := s.loggerWith(ctx, "RegisterSchedule",
		"user_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("schedule_id", schedule.ID).InfoContext(ctx, "schedule registered")
	}()

	vErr := &ValidationError{}
	if principal.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if input.MedicationID == "" && input.NewMedication == nil {
		vErr.add("medication", "medication_id or new medication details are required")
	}
	if input.MedicationID != "" && input.NewMedication != nil {
		vErr.add("medication", "medication_id and new medication details are mutually exclusive")
	}
	slots := validateScheduleCore(&input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()

	medication, err := s.resolveMedication(ctx, input, createdAt)
	if err != nil {
		return
	}

	record := persistence.Schedule{
		ID:                s.idGenerator(),
		UserID:            principal.UserID,
		MedicationID:      medication.ID,
		Dosage:            strings.TrimSpace(input.Dosage),
		TimeSlots:         slots,
		Route:             strings.TrimSpace(input.Route),
		StartDate:         reconcile.DateOf(input.StartDate),
		EndDate:           deriveEndDate(input),
		InitialStock:      input.InitialStock,
		CurrentStock:      input.CurrentStock,
		LowStockThreshold: input.LowStockThreshold,
		Notes:             cloneStringPtr(input.Notes),
		Active:            true,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	if input.Active != nil {
		record.Active = *input.Active
	}

	if createErr := s.schedules.CreateSchedule(ctx, record); createErr != nil {
		err = mapRepoError(createErr)
		return
	}
	s.notifyMutate()

	schedule = scheduleFromRecord(record, medication)
	return
}

// UpdateSchedule applies validation and ownership checks before replacing the
// stored schedule.
func (s *MedicationService) UpdateSchedule(ctx context.Context, params UpdateScheduleParams) (Schedule, error) {
	if s == nil {
		return Schedule{}, fmt.Errorf("MedicationService is nil")
	}

	existing, err := s.ownedSchedule(ctx, params.Principal, params.ScheduleID)
	if err != nil {
		return Schedule{}, err
	}

	input := params.Input

	vErr := &ValidationError{}
	if input.NewMedication != nil {
		vErr.add("medication", "medication cannot be changed on an existing schedule")
	}
	if input.MedicationID != "" && input.MedicationID != existing.MedicationID {
		vErr.add("medication_id", "medication cannot be changed on an existing schedule")
	}
	slots := validateScheduleCore(&input, vErr)
	if vErr.HasErrors() {
		return Schedule{}, vErr
	}

	updated := existing
	updated.Dosage = strings.TrimSpace(input.Dosage)
	updated.TimeSlots = slots
	updated.Route = strings.TrimSpace(input.Route)
	updated.StartDate = reconcile.DateOf(input.StartDate)
	updated.EndDate = deriveEndDate(input)
	updated.InitialStock = input.InitialStock
	updated.CurrentStock = input.CurrentStock
	updated.LowStockThreshold = input.LowStockThreshold
	updated.Notes = cloneStringPtr(input.Notes)
	if input.Active != nil {
		updated.Active = *input.Active
	}
	updated.UpdatedAt = s.now()

	if err := s.schedules.UpdateSchedule(ctx, updated); err != nil {
		return Schedule{}, mapRepoError(err)
	}
	s.notifyMutate()

	medication, err := s.medications.GetMedication(ctx, updated.MedicationID)
	if err != nil {
		return Schedule{}, mapRepoError(err)
	}

	return scheduleFromRecord(updated, medication), nil
}

// RemoveSchedule soft deletes a schedule. Existing dose logs are retained;
// the schedule simply stops producing occurrences.
func (s *MedicationService) RemoveSchedule(ctx context.Context, principal Principal, scheduleID string) (err error) {
	if s == nil {
		return fmt.Errorf("MedicationService is nil")
	}

	logger := s.loggerWith(ctx, "RemoveSchedule",
		"user_id", principal.UserID,
		"schedule_id", scheduleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule deactivated")
	}()

	if _, err = s.ownedSchedule(ctx, principal, scheduleID); err != nil {
		return
	}

	if deactivateErr := s.schedules.DeactivateSchedule(ctx, scheduleID, s.now()); deactivateErr != nil {
		err = mapRepoError(deactivateErr)
		return
	}
	s.notifyMutate()
	return
}

// GetSchedule returns one schedule with its catalog medication and full dose
// log history embedded.
func (s *MedicationService) GetSchedule(ctx context.Context, principal Principal, scheduleID string) (Schedule, error) {
	if s == nil {
		return Schedule{}, fmt.Errorf("MedicationService is nil")
	}

	record, err := s.ownedSchedule(ctx, principal, scheduleID)
	if err != nil {
		return Schedule{}, err
	}

	medication, err := s.medications.GetMedication(ctx, record.MedicationID)
	if err != nil {
		return Schedule{}, mapRepoError(err)
	}

	schedule := scheduleFromRecord(record, medication)

	logs, err := s.logs.ListLogsForSchedules(ctx, []string{record.ID})
	if err != nil {
		return Schedule{}, mapRepoError(err)
	}
	for _, log := range logs {
		schedule.Logs = append(schedule.Logs, logFromRecord(log))
	}

	return schedule, nil
}

// ListSchedules enumerates the principal's active schedules, each with its
// catalog medication embedded. When From/To are set, only schedules whose
// validity window overlaps the range are returned.
func (s *MedicationService) ListSchedules(ctx context.Context, params ListSchedulesParams) ([]Schedule, error) {
	if s == nil {
		return nil, fmt.Errorf("MedicationService is nil")
	}
	if params.Principal.UserID == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user is required")
		return nil, vErr
	}

	filter := persistence.ScheduleFilter{UserID: params.Principal.UserID}
	if params.From != nil {
		from := reconcile.DateOf(*params.From)
		filter.OverlapsStart = &from
	}
	if params.To != nil {
		to := reconcile.DateOf(*params.To)
		filter.OverlapsEnd = &to
	}

	records, err := s.schedules.ListSchedules(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	schedules := make([]Schedule, 0, len(records))
	for _, record := range records {
		medication, err := s.medications.GetMedication(ctx, record.MedicationID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		schedules = append(schedules, scheduleFromRecord(record, medication))
	}
	return schedules, nil
}

// SearchCatalog matches catalog medications by name or active principle.
func (s *MedicationService) SearchCatalog(ctx context.Context, query string, limit int) ([]Medication, error) {
	if s == nil {
		return nil, fmt.Errorf("MedicationService is nil")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		vErr := &ValidationError{}
		vErr.add("query", "query is required")
		return nil, vErr
	}

	records, err := s.medications.SearchMedications(ctx, query, limit)
	if err != nil {
		return nil, mapRepoError(err)
	}

	medications := make([]Medication, 0, len(records))
	for _, record := range records {
		medications = append(medications, medicationFromRecord(record))
	}
	return medications, nil
}

// ownedSchedule fetches a schedule and enforces that the principal owns it.
// Foreign schedules surface as ErrNotFound so ownership is not leaked.
func (s *MedicationService) ownedSchedule(ctx context.Context, principal Principal, scheduleID string) (persistence.Schedule, error) {
	if scheduleID == "" {
		return persistence.Schedule{}, ErrNotFound
	}
	record, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return persistence.Schedule{}, mapRepoError(err)
	}
	if record.UserID != principal.UserID {
		return persistence.Schedule{}, ErrNotFound
	}
	return record, nil
}

func (s *MedicationService) resolveMedication(ctx context.Context, input ScheduleInput, createdAt time.Time) (persistence.Medication, error) {
	if input.MedicationID != "" {
		medication, err := s.medications.GetMedication(ctx, input.MedicationID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr := &ValidationError{}
				vErr.add("medication_id", "medication does not exist")
				return persistence.Medication{}, vErr
			}
			return persistence.Medication{}, mapRepoError(err)
		}
		return medication, nil
	}

	details := input.NewMedication
	medication := persistence.Medication{
		ID:              s.idGenerator(),
		Name:            strings.TrimSpace(details.Name),
		ActivePrinciple: strings.TrimSpace(details.ActivePrinciple),
		Manufacturer:    cloneStringPtr(details.Manufacturer),
		Category:        cloneStringPtr(details.Category),
		Strength:        cloneStringPtr(details.Strength),
		Form:            cloneStringPtr(details.Form),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	if err := s.medications.CreateMedication(ctx, medication); err != nil {
		return persistence.Medication{}, mapRepoError(err)
	}
	return medication, nil
}

// validateScheduleCore checks the fields shared by create and update and
// returns the normalized time slots when they are valid.
func validateScheduleCore(input *ScheduleInput, vErr *ValidationError) []string {
	if input.NewMedication != nil {
		if strings.TrimSpace(input.NewMedication.Name) == "" {
			vErr.add("medication_name", "name is required")
		}
		if strings.TrimSpace(input.NewMedication.ActivePrinciple) == "" {
			vErr.add("active_principle", "active principle is required")
		}
	}

	if strings.TrimSpace(input.Dosage) == "" {
		vErr.add("dosage", "dosage is required")
	}

	slots, err := reconcile.NormalizeTimeSlots(input.TimeSlots)
	if err != nil {
		vErr.add("time_slots", "time slots must be HH:MM values between 00:00 and 23:59")
	} else if len(slots) == 0 {
		vErr.add("time_slots", "at least one time slot is required")
	}

	if input.StartDate.IsZero() {
		vErr.add("start_date", "start date is required")
	}

	if input.EndDate != nil && input.DurationDays > 0 {
		vErr.add("end_date", "end_date and duration_days are mutually exclusive")
	}
	end := deriveEndDate(*input)
	if end != nil && !input.StartDate.IsZero() && end.Before(reconcile.DateOf(input.StartDate)) {
		vErr.add("end_date", "end date must not be before start date")
	}
	if input.DurationDays < 0 {
		vErr.add("duration_days", "duration must be positive")
	}

	if input.InitialStock < 0 {
		vErr.add("initial_stock", "stock must not be negative")
	}
	if input.CurrentStock < 0 {
		vErr.add("current_stock", "stock must not be negative")
	}
	if input.LowStockThreshold < 0 {
		vErr.add("low_stock_threshold", "threshold must not be negative")
	}

	return slots
}

// deriveEndDate resolves the schedule's end date: an explicit EndDate wins,
// otherwise a positive DurationDays yields StartDate + DurationDays - 1, and
// an open-ended schedule has no end date at all.
func deriveEndDate(input ScheduleInput) *time.Time {
	if input.EndDate != nil {
		end := reconcile.DateOf(*input.EndDate)
		return &end
	}
	if input.DurationDays > 0 && !input.StartDate.IsZero() {
		end := reconcile.DateOf(input.StartDate).AddDate(0, 0, input.DurationDays-1)
		return &end
	}
	return nil
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrConflict
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("end_date", "end date must not be before start date")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("medication_id", "medication does not exist")
		return vErr
	}
	return err
}
