package reconcile

import "time"

// DateLayout is the calendar-date exchange format. Dates carry no timezone
// component; the engine treats them as local wall-clock days.
const DateLayout = "2006-01-02"

// SlotLayout is the time-of-day form used for slot matching.
const SlotLayout = "15:04"

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// DateOf truncates a timestamp to its calendar date, discarding the time of
// day while keeping the original location's notion of "day".
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two timestamps fall on the same calendar date in
// their respective locations.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfWeek returns the Sunday beginning the display week containing date.
func StartOfWeek(date time.Time) time.Time {
	date = DateOf(date)
	return date.AddDate(0, 0, -int(date.Weekday()))
}

// EndOfWeek returns the Saturday ending the display week containing date.
func EndOfWeek(date time.Time) time.Time {
	return StartOfWeek(date).AddDate(0, 0, 6)
}

// MonthBounds returns the first and last calendar dates of the month
// containing date.
func MonthBounds(date time.Time) (time.Time, time.Time) {
	date = DateOf(date)
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// MonthViewBounds returns the month's bounds padded outward to full display
// weeks, so a month view always spans whole Sunday-to-Saturday rows. The
// padding days belong to adjacent months but are aggregated the same way as
// in-month dates.
func MonthViewBounds(date time.Time) (time.Time, time.Time) {
	first, last := MonthBounds(date)
	return StartOfWeek(first), EndOfWeek(last)
}

// datesBetween enumerates every calendar date from start through end
// inclusive, in ascending order.
func datesBetween(start, end time.Time) []time.Time {
	start = DateOf(start)
	end = DateOf(end)
	if start.After(end) {
		return nil
	}

	dates := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		dates = append(dates, current)
	}
	return dates
}
