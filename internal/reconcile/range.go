package reconcile

import "time"

// AggregateRange reconciles every calendar date from start through end
// inclusive and projects the per-day totals into indicators, in ascending
// date order with no gaps or duplicates. No cross-date state is shared; the
// cost is O(days × schedules × slots), which is negligible for medication
// counts and display windows (≤ 42 padded days for a month view).
func AggregateRange(schedules []Schedule, logs []DoseLog, start, end time.Time) []DayIndicator {
	dates := datesBetween(start, end)
	if len(dates) == 0 {
		return nil
	}

	indicators := make([]DayIndicator, 0, len(dates))
	for _, date := range dates {
		sheet := ReconcileDay(schedules, logs, date)
		indicators = append(indicators, DayIndicator{
			Date:  date,
			Total: sheet.Total,
			Taken: sheet.Taken,
		})
	}
	return indicators
}
