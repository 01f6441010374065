package application

import (
	"time"

	"github.com/example/intake-tracker/internal/persistence"
	"github.com/example/intake-tracker/internal/reconcile"
)

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func medicationFromRecord(record persistence.Medication) Medication {
	return Medication{
		ID:              record.ID,
		Name:            record.Name,
		ActivePrinciple: record.ActivePrinciple,
		Manufacturer:    cloneStringPtr(record.Manufacturer),
		Category:        cloneStringPtr(record.Category),
		Strength:        cloneStringPtr(record.Strength),
		Form:            cloneStringPtr(record.Form),
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func scheduleFromRecord(record persistence.Schedule, medication persistence.Medication) Schedule {
	return Schedule{
		ID:                record.ID,
		UserID:            record.UserID,
		Medication:        medicationFromRecord(medication),
		Dosage:            record.Dosage,
		TimeSlots:         append([]string(nil), record.TimeSlots...),
		Route:             record.Route,
		StartDate:         record.StartDate,
		EndDate:           cloneTimePtr(record.EndDate),
		InitialStock:      record.InitialStock,
		CurrentStock:      record.CurrentStock,
		LowStockThreshold: record.LowStockThreshold,
		LowStock:          record.CurrentStock <= record.LowStockThreshold,
		Notes:             cloneStringPtr(record.Notes),
		Active:            record.Active,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

func logFromRecord(record persistence.DoseLog) DoseLog {
	return DoseLog{
		ID:          record.ID,
		ScheduleID:  record.ScheduleID,
		ScheduledAt: record.ScheduledAt,
		TakenAt:     cloneTimePtr(record.TakenAt),
		Status:      record.Status,
		Notes:       cloneStringPtr(record.Notes),
		CreatedAt:   record.CreatedAt,
	}
}

func reconcileSchedule(schedule Schedule) reconcile.Schedule {
	return reconcile.Schedule{
		ID:        schedule.ID,
		TimeSlots: schedule.TimeSlots,
		StartDate: schedule.StartDate,
		EndDate:   schedule.EndDate,
		Active:    schedule.Active,
	}
}

func reconcileLog(log DoseLog) reconcile.DoseLog {
	converted := reconcile.DoseLog{
		ID:          log.ID,
		ScheduleID:  log.ScheduleID,
		ScheduledAt: log.ScheduledAt,
		TakenAt:     log.TakenAt,
		Status:      reconcile.Status(log.Status),
		CreatedAt:   log.CreatedAt,
	}
	if log.Notes != nil {
		converted.Notes = *log.Notes
	}
	return converted
}

func logFromReconcile(log reconcile.DoseLog) DoseLog {
	converted := DoseLog{
		ID:          log.ID,
		ScheduleID:  log.ScheduleID,
		ScheduledAt: log.ScheduledAt,
		TakenAt:     cloneTimePtr(log.TakenAt),
		Status:      string(log.Status),
		CreatedAt:   log.CreatedAt,
	}
	if log.Notes != "" {
		notes := log.Notes
		converted.Notes = &notes
	}
	return converted
}

func indicatorsFromReconcile(indicators []reconcile.DayIndicator) []DayIndicator {
	if len(indicators) == 0 {
		return nil
	}
	out := make([]DayIndicator, len(indicators))
	for i, indicator := range indicators {
		out[i] = DayIndicator{
			Date:  indicator.Date,
			Total: indicator.Total,
			Taken: indicator.Taken,
		}
	}
	return out
}
