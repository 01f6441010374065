package reconcile

import (
	"sort"
	"time"
)

// ReconcileDay composes occurrence generation and log matching across every
// schedule for a single date. The output is sorted by time slot ascending,
// with schedule ID ascending as the tie-break, so repeated calls over the
// same snapshot produce identical lists regardless of input order.
func ReconcileDay(schedules []Schedule, logs []DoseLog, date time.Time) DaySheet {
	date = DateOf(date)

	var occurrences []Occurrence
	for _, schedule := range schedules {
		occurrences = append(occurrences, Generate(schedule, date)...)
	}

	occurrences = MatchLogs(occurrences, logs)

	sort.Slice(occurrences, func(i, j int) bool {
		if occurrences[i].TimeSlot == occurrences[j].TimeSlot {
			return occurrences[i].ScheduleID < occurrences[j].ScheduleID
		}
		return occurrences[i].TimeSlot < occurrences[j].TimeSlot
	})

	taken := 0
	for _, occurrence := range occurrences {
		if occurrence.Status == StatusTaken {
			taken++
		}
	}

	return DaySheet{
		Date:        date,
		Occurrences: occurrences,
		Total:       len(occurrences),
		Taken:       taken,
	}
}
