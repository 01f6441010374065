package reconcile

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTimeSlot indicates a time-of-day value does not match the
// zero-padded 24-hour HH:MM form.
var ErrInvalidTimeSlot = errors.New("reconcile: invalid time slot")

// NormalizeTimeSlots canonicalizes a schedule's time-of-day list into an
// ascending, duplicate-free sequence. Two inputs differing only in order or
// duplicate entries normalize to the same sequence. A malformed entry fails
// the whole call; slots are never silently dropped.
func NormalizeTimeSlots(slots []string) ([]string, error) {
	seen := make(map[string]struct{}, len(slots))
	normalized := make([]string, 0, len(slots))

	for _, slot := range slots {
		if !ValidTimeSlot(slot) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, slot)
		}
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		normalized = append(normalized, slot)
	}

	// Lexicographic order equals chronological order for zero-padded HH:MM.
	sort.Strings(normalized)
	return normalized, nil
}

// ValidTimeSlot reports whether value is a zero-padded HH:MM time of day with
// hour 00-23 and minute 00-59.
func ValidTimeSlot(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	for _, i := range [...]int{0, 1, 3, 4} {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[3]-'0')*10 + int(value[4]-'0')
	return hour <= 23 && minute <= 59
}
