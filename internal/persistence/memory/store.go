// Package memory provides a mutex-guarded in-memory implementation of the
// persistence repositories for tests and development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
)

// Store keeps every record in process memory. All methods are safe for
// concurrent use and return defensive copies.
type Store struct {
	mu          sync.RWMutex
	medications map[string]persistence.Medication
	schedules   map[string]persistence.Schedule
	logs        map[string]persistence.DoseLog
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		medications: make(map[string]persistence.Medication),
		schedules:   make(map[string]persistence.Schedule),
		logs:        make(map[string]persistence.DoseLog),
	}
}

// --- MedicationRepository implementation ---

// CreateMedication stores a new catalog entry.
func (s *Store) CreateMedication(ctx context.Context, medication persistence.Medication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.medications[medication.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.medications[medication.ID] = medication
	return nil
}

// GetMedication retrieves a catalog entry by ID.
func (s *Store) GetMedication(ctx context.Context, id string) (persistence.Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	medication, ok := s.medications[id]
	if !ok {
		return persistence.Medication{}, persistence.ErrNotFound
	}
	return medication, nil
}

// SearchMedications matches the query against name and active principle,
// case-insensitively, ordered by name.
func (s *Store) SearchMedications(ctx context.Context, query string, limit int) ([]persistence.Medication, error) {
	if limit <= 0 {
		limit = 20
	}
	needle := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []persistence.Medication
	for _, medication := range s.medications {
		if strings.Contains(strings.ToLower(medication.Name), needle) ||
			strings.Contains(strings.ToLower(medication.ActivePrinciple), needle) {
			matches = append(matches, medication)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name == matches[j].Name {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Name < matches[j].Name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// --- ScheduleRepository implementation ---

// CreateSchedule stores a new schedule.
func (s *Store) CreateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[schedule.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.medications[schedule.MedicationID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if schedule.EndDate != nil && schedule.EndDate.Before(schedule.StartDate) {
		return persistence.ErrConstraintViolation
	}
	s.schedules[schedule.ID] = cloneSchedule(schedule)
	return nil
}

// UpdateSchedule replaces an existing schedule.
func (s *Store) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[schedule.ID]; !ok {
		return persistence.ErrNotFound
	}
	if schedule.EndDate != nil && schedule.EndDate.Before(schedule.StartDate) {
		return persistence.ErrConstraintViolation
	}
	s.schedules[schedule.ID] = cloneSchedule(schedule)
	return nil
}

// GetSchedule retrieves a schedule by ID.
func (s *Store) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return cloneSchedule(schedule), nil
}

// ListSchedules returns the schedules matching the filter ordered by
// creation time then ID.
func (s *Store) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var schedules []persistence.Schedule
	for _, schedule := range s.schedules {
		if filter.UserID != "" && schedule.UserID != filter.UserID {
			continue
		}
		if !filter.IncludeInactive && !schedule.Active {
			continue
		}
		if filter.OverlapsEnd != nil && schedule.StartDate.After(*filter.OverlapsEnd) {
			continue
		}
		if filter.OverlapsStart != nil && schedule.EndDate != nil && schedule.EndDate.Before(*filter.OverlapsStart) {
			continue
		}
		schedules = append(schedules, cloneSchedule(schedule))
	}

	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].CreatedAt.Equal(schedules[j].CreatedAt) {
			return schedules[i].ID < schedules[j].ID
		}
		return schedules[i].CreatedAt.Before(schedules[j].CreatedAt)
	})
	return schedules, nil
}

// DeactivateSchedule performs the soft delete.
func (s *Store) DeactivateSchedule(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return persistence.ErrNotFound
	}
	schedule.Active = false
	schedule.UpdatedAt = at
	s.schedules[id] = schedule
	return nil
}

// --- DoseLogRepository implementation ---

// AppendLog stores a new dose log.
func (s *Store) AppendLog(ctx context.Context, log persistence.DoseLog) (persistence.DoseLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[log.ID]; ok {
		return persistence.DoseLog{}, persistence.ErrDuplicate
	}
	if _, ok := s.schedules[log.ScheduleID]; !ok {
		return persistence.DoseLog{}, persistence.ErrForeignKeyViolation
	}
	s.logs[log.ID] = log
	return log, nil
}

// ListLogsForSchedules returns every log owned by the given schedules,
// ordered by scheduled timestamp then creation time then ID.
func (s *Store) ListLogsForSchedules(ctx context.Context, scheduleIDs []string) ([]persistence.DoseLog, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(scheduleIDs))
	for _, id := range scheduleIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []persistence.DoseLog
	for _, log := range s.logs {
		if _, ok := wanted[log.ScheduleID]; ok {
			logs = append(logs, log)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].ScheduledAt.Equal(logs[j].ScheduledAt) {
			return logs[i].ScheduledAt.Before(logs[j].ScheduledAt)
		}
		if !logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].CreatedAt.Before(logs[j].CreatedAt)
		}
		return logs[i].ID < logs[j].ID
	})
	return logs, nil
}

func cloneSchedule(schedule persistence.Schedule) persistence.Schedule {
	clone := schedule
	clone.TimeSlots = append([]string(nil), schedule.TimeSlots...)
	if schedule.EndDate != nil {
		end := *schedule.EndDate
		clone.EndDate = &end
	}
	if schedule.Notes != nil {
		notes := *schedule.Notes
		clone.Notes = &notes
	}
	return clone
}
