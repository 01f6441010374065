package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
	"github.com/example/intake-tracker/internal/reconcile"
)

// LogStore is the write side of the dose log record store. In embedded mode
// the local repository backs it; in external mode an HTTP client does.
type LogStore interface {
	AppendLog(ctx context.Context, log DoseLog) (DoseLog, error)
}

// RepositoryLogStore adapts a persistence repository into a LogStore.
type RepositoryLogStore struct {
	logs persistence.DoseLogRepository
}

// NewRepositoryLogStore wraps the local dose log repository as a LogStore.
func NewRepositoryLogStore(logs persistence.DoseLogRepository) *RepositoryLogStore {
	return &RepositoryLogStore{logs: logs}
}

// AppendLog persists the log through the wrapped repository.
func (s *RepositoryLogStore) AppendLog(ctx context.Context, log DoseLog) (DoseLog, error) {
	stored, err := s.logs.AppendLog(ctx, persistence.DoseLog{
		ID:          log.ID,
		ScheduleID:  log.ScheduleID,
		ScheduledAt: log.ScheduledAt,
		TakenAt:     log.TakenAt,
		Status:      log.Status,
		Notes:       log.Notes,
		CreatedAt:   log.CreatedAt,
	})
	if err != nil {
		return DoseLog{}, err
	}
	return logFromRecord(stored), nil
}

// MirroredLogStore submits dose logs to a remote record store and writes the
// canonical record it returns into the local repository. Adherence snapshots
// and the resolved-occurrence check read local history only, so deployments
// with an external store must keep a local copy of every committed log.
type MirroredLogStore struct {
	remote LogStore
	local  *RepositoryLogStore
}

// NewMirroredLogStore composes a remote LogStore with the local dose log
// repository that mirrors its canonical records.
func NewMirroredLogStore(remote LogStore, local persistence.DoseLogRepository) *MirroredLogStore {
	return &MirroredLogStore{remote: remote, local: NewRepositoryLogStore(local)}
}

// AppendLog submits to the remote store first; only its canonical record is
// mirrored locally. A mirror failure is reported even though the remote write
// committed, since local reads would otherwise treat the occurrence as
// pending again.
func (s *MirroredLogStore) AppendLog(ctx context.Context, log DoseLog) (DoseLog, error) {
	stored, err := s.remote.AppendLog(ctx, log)
	if err != nil {
		return DoseLog{}, err
	}
	mirrored, err := s.local.AppendLog(ctx, stored)
	if err != nil {
		return DoseLog{}, fmt.Errorf("%w: mirror canonical log: %v", ErrUnavailable, err)
	}
	return mirrored, nil
}

// intakeAttempt holds the optimistic log of one in-flight submission. The
// attempt exists exactly while the submission is outstanding; commit and
// rollback both remove it, so key presence is the in-flight signal.
type intakeAttempt struct {
	log DoseLog
}

// IntakeCoordinator serializes mark-taken submissions per occurrence. Each
// attempt synthesizes an optimistic taken-log that adherence reads see
// immediately; the log is replaced by the store's canonical record on
// success and withdrawn on failure. At most one submission per
// (schedule, date, slot) key is in flight at a time.
type IntakeCoordinator struct {
	schedules   persistence.ScheduleRepository
	logs        persistence.DoseLogRepository
	store       LogStore
	onCommit    func()
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[string]*intakeAttempt
}

// NewIntakeCoordinator wires dependencies for intake mutations. onCommit runs
// after every successful submission and is where the indicator cache flush
// hooks in; it may be nil.
func NewIntakeCoordinator(schedules persistence.ScheduleRepository, logs persistence.DoseLogRepository, store LogStore, onCommit func(), idGenerator func() string, now func() time.Time) *IntakeCoordinator {
	return NewIntakeCoordinatorWithLogger(schedules, logs, store, onCommit, idGenerator, now, nil)
}

// NewIntakeCoordinatorWithLogger constructs the coordinator with a specified logger.
func NewIntakeCoordinatorWithLogger(schedules persistence.ScheduleRepository, logs persistence.DoseLogRepository, store LogStore, onCommit func(), idGenerator func() string, now func() time.Time, logger *slog.Logger) *IntakeCoordinator {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &IntakeCoordinator{
		schedules:   schedules,
		logs:        logs,
		store:       store,
		onCommit:    onCommit,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		pending:     make(map[string]*intakeAttempt),
	}
}

func (c *IntakeCoordinator) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, c.logger, "IntakeCoordinator", operation, attrs...)
}

// MarkTaken confirms one occurrence as taken and returns the canonical log
// recorded by the store.
//
// The occurrence must exist on the schedule for the given date and slot and
// must still be pending; an occurrence that already resolved yields
// ErrConflict, and a second request while a submission is outstanding yields
// ErrIntakeInFlight.
func (c *IntakeCoordinator) MarkTaken(ctx context.Context, params MarkTakenParams) (record DoseLog, err error) {
	if c == nil {
		return DoseLog{}, fmt.Errorf("IntakeCoordinator is nil")
	}

	logger := c.loggerWith(ctx, "MarkTaken",
		"user_id", params.Principal.UserID,
		"schedule_id", params.ScheduleID,
		"time_slot", params.TimeSlot,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark dose taken", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("log_id", record.ID).InfoContext(ctx, "dose marked taken")
	}()

	if err = validateMarkTaken(params); err != nil {
		return DoseLog{}, err
	}
	date := reconcile.DateOf(params.Date)

	schedule, err := c.ownedSchedule(ctx, params.Principal, params.ScheduleID)
	if err != nil {
		return DoseLog{}, err
	}

	occurrence, err := findOccurrence(schedule, date, params.TimeSlot)
	if err != nil {
		return DoseLog{}, err
	}
	key := occurrence.Key()

	if err := c.acquire(key); err != nil {
		return DoseLog{}, err
	}

	// The conflict check runs while the key is held so two concurrent
	// requests for the same occurrence cannot both pass it.
	resolved, err := c.occurrenceResolved(ctx, occurrence)
	if err != nil {
		c.release(key)
		return DoseLog{}, err
	}
	if resolved {
		c.release(key)
		return DoseLog{}, ErrConflict
	}

	optimistic := c.synthesizeLog(params, occurrence)
	c.stage(key, optimistic)

	stored, err := c.store.AppendLog(ctx, optimistic)
	if err != nil {
		c.release(key)
		return DoseLog{}, mapStoreError(err)
	}

	c.release(key)
	c.decrementStock(ctx, schedule)
	if c.onCommit != nil {
		c.onCommit()
	}
	return stored, nil
}

// OverlayLogs implements LogOverlay: it returns the optimistic logs of
// in-flight submissions for the given schedules.
func (c *IntakeCoordinator) OverlayLogs(scheduleIDs []string) []DoseLog {
	if c == nil || len(scheduleIDs) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(scheduleIDs))
	for _, id := range scheduleIDs {
		wanted[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var logs []DoseLog
	for _, attempt := range c.pending {
		if attempt.log.ID == "" {
			continue
		}
		if _, ok := wanted[attempt.log.ScheduleID]; !ok {
			continue
		}
		logs = append(logs, attempt.log)
	}
	return logs
}

func (c *IntakeCoordinator) acquire(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[key]; ok {
		return ErrIntakeInFlight
	}
	c.pending[key] = &intakeAttempt{}
	return nil
}

func (c *IntakeCoordinator) stage(key string, log DoseLog) {
	c.mu.Lock()
	if attempt, ok := c.pending[key]; ok {
		attempt.log = log
	}
	c.mu.Unlock()
}

func (c *IntakeCoordinator) release(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func (c *IntakeCoordinator) ownedSchedule(ctx context.Context, principal Principal, scheduleID string) (persistence.Schedule, error) {
	record, err := c.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return persistence.Schedule{}, mapRepoError(err)
	}
	if record.UserID != principal.UserID {
		return persistence.Schedule{}, ErrNotFound
	}
	return record, nil
}

// occurrenceResolved reports whether a persisted log already resolved the
// occurrence to a non-pending status.
func (c *IntakeCoordinator) occurrenceResolved(ctx context.Context, occurrence reconcile.Occurrence) (bool, error) {
	records, err := c.logs.ListLogsForSchedules(ctx, []string{occurrence.ScheduleID})
	if err != nil {
		return false, mapRepoError(err)
	}
	logs := make([]reconcile.DoseLog, 0, len(records))
	for _, record := range records {
		logs = append(logs, reconcileLog(logFromRecord(record)))
	}
	matched := reconcile.MatchLogs([]reconcile.Occurrence{occurrence}, logs)
	return len(matched) == 1 && matched[0].Status != reconcile.StatusPending, nil
}

func (c *IntakeCoordinator) synthesizeLog(params MarkTakenParams, occurrence reconcile.Occurrence) DoseLog {
	now := c.now()
	takenAt := now
	if params.TakenAt != nil {
		takenAt = *params.TakenAt
	}
	return DoseLog{
		ID:          c.idGenerator(),
		ScheduleID:  occurrence.ScheduleID,
		ScheduledAt: slotTimestamp(occurrence.Date, occurrence.TimeSlot),
		TakenAt:     &takenAt,
		Status:      string(reconcile.StatusTaken),
		Notes:       cloneStringPtr(params.Notes),
		CreatedAt:   now,
	}
}

// decrementStock is best effort: stock tracking is advisory and a failed
// decrement never unwinds a committed log.
func (c *IntakeCoordinator) decrementStock(ctx context.Context, schedule persistence.Schedule) {
	if schedule.CurrentStock <= 0 {
		return
	}
	schedule.CurrentStock--
	schedule.UpdatedAt = c.now()
	_ = c.schedules.UpdateSchedule(ctx, schedule)
}

// findOccurrence projects the schedule onto the date and locates the slot.
// A date outside the validity window, an inactive schedule, or an unknown
// slot all mean the occurrence does not exist.
func findOccurrence(record persistence.Schedule, date time.Time, slot string) (reconcile.Occurrence, error) {
	engine := reconcile.Schedule{
		ID:        record.ID,
		TimeSlots: record.TimeSlots,
		StartDate: record.StartDate,
		EndDate:   record.EndDate,
		Active:    record.Active,
	}
	for _, occurrence := range reconcile.Generate(engine, date) {
		if occurrence.TimeSlot == slot {
			return occurrence, nil
		}
	}
	return reconcile.Occurrence{}, ErrNotFound
}

func slotTimestamp(date time.Time, slot string) time.Time {
	parsed, err := time.Parse(reconcile.SlotLayout, slot)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

func validateMarkTaken(params MarkTakenParams) error {
	vErr := &ValidationError{}
	if params.Principal.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if params.ScheduleID == "" {
		vErr.add("schedule_id", "schedule is required")
	}
	if params.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !reconcile.ValidTimeSlot(params.TimeSlot) {
		vErr.add("time_slot", "time slot must be an HH:MM value between 00:00 and 23:59")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrIntakeInFlight):
		return err
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
