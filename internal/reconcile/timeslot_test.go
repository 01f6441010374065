package reconcile

import (
	"errors"
	"slices"
	"testing"
)

func TestNormalizeTimeSlots(t *testing.T) {
	t.Parallel()

	t.Run("sorts and deduplicates", func(t *testing.T) {
		t.Parallel()

		got, err := NormalizeTimeSlots([]string{"20:00", "08:00", "12:30", "08:00"})
		if err != nil {
			t.Fatalf("NormalizeTimeSlots returned error: %v", err)
		}
		want := []string{"08:00", "12:30", "20:00"}
		if !slices.Equal(got, want) {
			t.Fatalf("normalized slots = %v, want %v", got, want)
		}
	})

	t.Run("order and duplicates do not change the result", func(t *testing.T) {
		t.Parallel()

		first, err := NormalizeTimeSlots([]string{"08:00", "20:00"})
		if err != nil {
			t.Fatalf("NormalizeTimeSlots returned error: %v", err)
		}
		second, err := NormalizeTimeSlots([]string{"20:00", "08:00", "20:00"})
		if err != nil {
			t.Fatalf("NormalizeTimeSlots returned error: %v", err)
		}
		if !slices.Equal(first, second) {
			t.Fatalf("equivalent inputs normalized differently: %v vs %v", first, second)
		}
	})

	t.Run("empty input yields empty sequence", func(t *testing.T) {
		t.Parallel()

		got, err := NormalizeTimeSlots(nil)
		if err != nil {
			t.Fatalf("NormalizeTimeSlots returned error: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("normalized slots = %v, want empty", got)
		}
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		t.Parallel()

		malformed := []string{"8:00", "24:00", "12:60", "1200", "12:0", "ab:cd", "12:00 ", ""}
		for _, slot := range malformed {
			if _, err := NormalizeTimeSlots([]string{"08:00", slot}); !errors.Is(err, ErrInvalidTimeSlot) {
				t.Fatalf("NormalizeTimeSlots(%q) error = %v, want ErrInvalidTimeSlot", slot, err)
			}
		}
	})
}

func TestValidTimeSlot(t *testing.T) {
	t.Parallel()

	valid := []string{"00:00", "08:05", "12:30", "23:59"}
	for _, slot := range valid {
		if !ValidTimeSlot(slot) {
			t.Errorf("ValidTimeSlot(%q) = false, want true", slot)
		}
	}

	invalid := []string{"24:00", "23:60", "7:30", "07-30", "07:3", "", "aa:bb"}
	for _, slot := range invalid {
		if ValidTimeSlot(slot) {
			t.Errorf("ValidTimeSlot(%q) = true, want false", slot)
		}
	}
}
