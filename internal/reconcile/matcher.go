package reconcile

import "fmt"

// occurrenceKey identifies an occurrence by its (schedule, date, slot) triple.
type occurrenceKey struct {
	scheduleID string
	date       string
	slot       string
}

// Key returns the identity triple of the occurrence in a printable form.
func (o Occurrence) Key() string {
	return fmt.Sprintf("%s|%s|%s", o.ScheduleID, FormatDate(o.Date), o.TimeSlot)
}

// MatchLogs aligns each occurrence to at most one dose log. A log matches an
// occurrence when its scheduled timestamp decomposes to the same calendar
// date and the same HH:MM time of day as the occurrence's slot; matching is
// string equality on the normalized forms, never timestamp proximity.
//
// When several logs claim the same triple the most recently created log wins
// (CreatedAt descending, log ID descending as the final arbiter), which keeps
// the result independent of input order. Unmatched occurrences stay pending
// with no log reference. Logs that match no occurrence are simply ignored;
// they remain in storage for history views.
func MatchLogs(occurrences []Occurrence, logs []DoseLog) []Occurrence {
	if len(occurrences) == 0 {
		return nil
	}

	winners := make(map[occurrenceKey]DoseLog, len(logs))
	for _, log := range logs {
		key := occurrenceKey{
			scheduleID: log.ScheduleID,
			date:       FormatDate(log.ScheduledAt),
			slot:       log.ScheduledAt.Format(SlotLayout),
		}
		current, ok := winners[key]
		if !ok || moreRecentLog(log, current) {
			winners[key] = log
		}
	}

	matched := make([]Occurrence, len(occurrences))
	for i, occurrence := range occurrences {
		key := occurrenceKey{
			scheduleID: occurrence.ScheduleID,
			date:       FormatDate(occurrence.Date),
			slot:       occurrence.TimeSlot,
		}
		matched[i] = occurrence
		if log, ok := winners[key]; ok {
			logCopy := log
			matched[i].Status = log.Status
			matched[i].Log = &logCopy
		} else {
			matched[i].Status = StatusPending
			matched[i].Log = nil
		}
	}
	return matched
}

func moreRecentLog(candidate, current DoseLog) bool {
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return candidate.ID > current.ID
}
