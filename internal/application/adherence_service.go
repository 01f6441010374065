package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
	"github.com/example/intake-tracker/internal/reconcile"
)

// LogOverlay exposes optimistic dose logs that have been synthesized locally
// but not yet confirmed by the record store. Adherence reads merge these over
// the persisted history so an in-flight mark-taken is visible immediately.
type LogOverlay interface {
	OverlayLogs(scheduleIDs []string) []DoseLog
}

// IndicatorSource serves per-day adherence aggregates for a user over a date
// range. When the dose log record store is external it owns the aggregate
// query, so indicator reads delegate to it instead of reconciling locally.
type IndicatorSource interface {
	Indicators(ctx context.Context, userID string, start, end time.Time) ([]DayIndicator, error)
}

// AdherenceService answers day sheet and range indicator queries by
// reconciling persisted schedules and logs through the pure engine.
type AdherenceService struct {
	medications persistence.MedicationRepository
	schedules   persistence.ScheduleRepository
	logs        persistence.DoseLogRepository
	overlay     LogOverlay
	indicators  IndicatorSource
	cache       *indicatorCache
	now         func() time.Time
}

// NewAdherenceService wires dependencies for adherence queries. The overlay
// may be nil, in which case only persisted logs are consulted.
func NewAdherenceService(medications persistence.MedicationRepository, schedules persistence.ScheduleRepository, logs persistence.DoseLogRepository, overlay LogOverlay, cacheTTL time.Duration, now func() time.Time) *AdherenceService {
	return NewAdherenceServiceWithSource(medications, schedules, logs, overlay, nil, cacheTTL, now)
}

// NewAdherenceServiceWithSource additionally wires a delegated indicator
// source. Day sheets always reconcile locally; only the range aggregates are
// delegated, because reconciling a day needs full schedule context.
func NewAdherenceServiceWithSource(medications persistence.MedicationRepository, schedules persistence.ScheduleRepository, logs persistence.DoseLogRepository, overlay LogOverlay, indicators IndicatorSource, cacheTTL time.Duration, now func() time.Time) *AdherenceService {
	if now == nil {
		now = time.Now
	}
	return &AdherenceService{
		medications: medications,
		schedules:   schedules,
		logs:        logs,
		overlay:     overlay,
		indicators:  indicators,
		cache:       newIndicatorCache(cacheTTL, 0, now),
		now:         now,
	}
}

// DaySheet reconciles every occurrence expected on the given calendar date
// for the principal's active schedules.
func (s *AdherenceService) DaySheet(ctx context.Context, principal Principal, date time.Time) (DaySheet, error) {
	if s == nil {
		return DaySheet{}, fmt.Errorf("AdherenceService is nil")
	}
	if err := validateAdherenceQuery(principal, date, date); err != nil {
		return DaySheet{}, err
	}
	date = reconcile.DateOf(date)

	schedules, logs, err := s.snapshot(ctx, principal.UserID, date, date)
	if err != nil {
		return DaySheet{}, err
	}

	engineSchedules := make([]reconcile.Schedule, 0, len(schedules))
	byID := make(map[string]Schedule, len(schedules))
	for _, schedule := range schedules {
		engineSchedules = append(engineSchedules, reconcileSchedule(schedule))
		byID[schedule.ID] = schedule
	}
	engineLogs := make([]reconcile.DoseLog, 0, len(logs))
	for _, log := range logs {
		engineLogs = append(engineLogs, reconcileLog(log))
	}

	reconciled := reconcile.ReconcileDay(engineSchedules, engineLogs, date)

	sheet := DaySheet{
		Date:  reconciled.Date,
		Total: reconciled.Total,
		Taken: reconciled.Taken,
	}
	for _, occurrence := range reconciled.Occurrences {
		converted := Occurrence{
			Schedule: byID[occurrence.ScheduleID],
			Date:     occurrence.Date,
			TimeSlot: occurrence.TimeSlot,
			Status:   string(occurrence.Status),
		}
		if occurrence.Log != nil {
			log := logFromReconcile(*occurrence.Log)
			converted.Log = &log
		}
		sheet.Occurrences = append(sheet.Occurrences, converted)
	}
	return sheet, nil
}

// RangeIndicators aggregates per-day totals over a date range. A period
// preset resolves the range from the reference date: a single day, the
// Sunday-start week, or the month padded to full display weeks. Results are
// cached briefly; any successful mutation flushes the cache.
func (s *AdherenceService) RangeIndicators(ctx context.Context, params RangeIndicatorsParams) ([]DayIndicator, error) {
	if s == nil {
		return nil, fmt.Errorf("AdherenceService is nil")
	}

	start, end, err := resolveRange(params)
	if err != nil {
		return nil, err
	}
	if err := validateAdherenceQuery(params.Principal, start, end); err != nil {
		return nil, err
	}

	key := buildIndicatorCacheKey(params.Principal.UserID, start, end)
	if indicators, ok := s.cache.Get(key); ok {
		return indicators, nil
	}

	if s.indicators != nil {
		indicators, err := s.indicators.Indicators(ctx, params.Principal.UserID, start, end)
		if err != nil {
			return nil, mapStoreError(err)
		}
		s.cache.Store(key, indicators)
		return indicators, nil
	}

	schedules, logs, err := s.snapshot(ctx, params.Principal.UserID, start, end)
	if err != nil {
		return nil, err
	}

	engineSchedules := make([]reconcile.Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		engineSchedules = append(engineSchedules, reconcileSchedule(schedule))
	}
	engineLogs := make([]reconcile.DoseLog, 0, len(logs))
	for _, log := range logs {
		engineLogs = append(engineLogs, reconcileLog(log))
	}

	indicators := indicatorsFromReconcile(reconcile.AggregateRange(engineSchedules, engineLogs, start, end))
	s.cache.Store(key, indicators)
	return indicators, nil
}

// InvalidateIndicators flushes the indicator cache. Mutation paths call this
// after every successful write so stale aggregates never outlive a change.
func (s *AdherenceService) InvalidateIndicators() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

// snapshot loads the principal's active schedules overlapping the range, each
// with its catalog medication, plus their persisted logs merged with the
// optimistic overlay.
func (s *AdherenceService) snapshot(ctx context.Context, userID string, start, end time.Time) ([]Schedule, []DoseLog, error) {
	filter := persistence.ScheduleFilter{
		UserID:        userID,
		OverlapsStart: &start,
		OverlapsEnd:   &end,
	}
	records, err := s.schedules.ListSchedules(ctx, filter)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}

	schedules := make([]Schedule, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		medication, err := s.medications.GetMedication(ctx, record.MedicationID)
		if err != nil {
			return nil, nil, mapRepoError(err)
		}
		schedules = append(schedules, scheduleFromRecord(record, medication))
		ids = append(ids, record.ID)
	}

	logRecords, err := s.logs.ListLogsForSchedules(ctx, ids)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}
	logs := make([]DoseLog, 0, len(logRecords))
	for _, record := range logRecords {
		logs = append(logs, logFromRecord(record))
	}
	if s.overlay != nil {
		logs = append(logs, s.overlay.OverlayLogs(ids)...)
	}
	return schedules, logs, nil
}

func resolveRange(params RangeIndicatorsParams) (time.Time, time.Time, error) {
	if params.Period != RangePeriodNone && params.Reference.IsZero() {
		vErr := &ValidationError{}
		vErr.add("reference", "reference date is required with a period")
		return time.Time{}, time.Time{}, vErr
	}
	switch params.Period {
	case RangePeriodNone:
		return reconcile.DateOf(params.Start), reconcile.DateOf(params.End), nil
	case RangePeriodDay:
		date := reconcile.DateOf(params.Reference)
		return date, date, nil
	case RangePeriodWeek:
		return reconcile.StartOfWeek(params.Reference), reconcile.EndOfWeek(params.Reference), nil
	case RangePeriodMonth:
		start, end := reconcile.MonthViewBounds(params.Reference)
		return start, end, nil
	default:
		vErr := &ValidationError{}
		vErr.add("period", "period must be one of day, week, month")
		return time.Time{}, time.Time{}, vErr
	}
}

func validateAdherenceQuery(principal Principal, start, end time.Time) error {
	vErr := &ValidationError{}
	if principal.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if start.IsZero() || end.IsZero() {
		vErr.add("date", "date is required")
	} else if end.Before(start) {
		vErr.add("range", "start date must not be after end date")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
