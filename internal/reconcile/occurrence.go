package reconcile

import "time"

// Generate produces the expected occurrences for one schedule on one calendar
// date: one occurrence per time slot if, and only if, the schedule is active
// and the date falls within [StartDate, EndDate] (open-ended when EndDate is
// nil). Outside the window, or for an inactive schedule, no occurrences are
// produced at all — absence is the signal, never a "not applicable" status.
//
// Time slots are consumed as stored; callers normalize them with
// NormalizeTimeSlots when the schedule is written.
func Generate(schedule Schedule, date time.Time) []Occurrence {
	if !schedule.Active {
		return nil
	}

	date = DateOf(date)
	if date.Before(DateOf(schedule.StartDate)) {
		return nil
	}
	if schedule.EndDate != nil && date.After(DateOf(*schedule.EndDate)) {
		return nil
	}

	occurrences := make([]Occurrence, 0, len(schedule.TimeSlots))
	for _, slot := range schedule.TimeSlots {
		occurrences = append(occurrences, Occurrence{
			ScheduleID: schedule.ID,
			Date:       date,
			TimeSlot:   slot,
			Status:     StatusPending,
		})
	}
	return occurrences
}
