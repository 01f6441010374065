package reconcile

import (
	"reflect"
	"testing"
)

func TestReconcileDay(t *testing.T) {
	t.Parallel()

	morning := Schedule{
		ID:        "sched-a",
		TimeSlots: []string{"08:00", "20:00"},
		StartDate: date("2024-01-01"),
		Active:    true,
	}
	noon := Schedule{
		ID:        "sched-b",
		TimeSlots: []string{"12:00", "08:00"},
		StartDate: date("2024-01-01"),
		Active:    true,
	}

	t.Run("spec scenario: one taken one pending", func(t *testing.T) {
		t.Parallel()

		logs := []DoseLog{takenLog("log-1", "sched-a", "2024-01-01", "08:00", slotTime("2024-01-01", "08:02"))}
		sheet := ReconcileDay([]Schedule{morning}, logs, date("2024-01-01"))

		if sheet.Total != 2 || sheet.Taken != 1 {
			t.Fatalf("day totals = {total:%d, taken:%d}, want {total:2, taken:1}", sheet.Total, sheet.Taken)
		}
		if sheet.Occurrences[0].TimeSlot != "08:00" || sheet.Occurrences[0].Status != StatusTaken {
			t.Fatalf("first occurrence = (%s, %s), want (08:00, taken)", sheet.Occurrences[0].TimeSlot, sheet.Occurrences[0].Status)
		}
		if sheet.Occurrences[1].TimeSlot != "20:00" || sheet.Occurrences[1].Status != StatusPending {
			t.Fatalf("second occurrence = (%s, %s), want (20:00, pending)", sheet.Occurrences[1].TimeSlot, sheet.Occurrences[1].Status)
		}
	})

	t.Run("date before the window yields an empty sheet", func(t *testing.T) {
		t.Parallel()

		sheet := ReconcileDay([]Schedule{morning}, nil, date("2023-12-31"))
		if sheet.Total != 0 || len(sheet.Occurrences) != 0 {
			t.Fatalf("sheet before start date has %d occurrences, want 0", len(sheet.Occurrences))
		}
	})

	t.Run("sorted by slot then schedule ID", func(t *testing.T) {
		t.Parallel()

		sheet := ReconcileDay([]Schedule{noon, morning}, nil, date("2024-01-05"))

		got := make([][2]string, 0, len(sheet.Occurrences))
		for _, occurrence := range sheet.Occurrences {
			got = append(got, [2]string{occurrence.TimeSlot, occurrence.ScheduleID})
		}
		want := [][2]string{
			{"08:00", "sched-a"},
			{"08:00", "sched-b"},
			{"12:00", "sched-b"},
			{"20:00", "sched-a"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("occurrence order = %v, want %v", got, want)
		}
	})

	t.Run("idempotent under input reordering", func(t *testing.T) {
		t.Parallel()

		logs := []DoseLog{takenLog("log-1", "sched-b", "2024-01-05", "12:00", slotTime("2024-01-05", "12:10"))}

		forward := ReconcileDay([]Schedule{morning, noon}, logs, date("2024-01-05"))
		reversed := ReconcileDay([]Schedule{noon, morning}, logs, date("2024-01-05"))
		if !reflect.DeepEqual(forward, reversed) {
			t.Fatalf("reconciliation depends on schedule input order")
		}
	})

	t.Run("no duplicate identity triples", func(t *testing.T) {
		t.Parallel()

		sheet := ReconcileDay([]Schedule{morning, noon}, nil, date("2024-01-05"))
		seen := make(map[string]struct{}, len(sheet.Occurrences))
		for _, occurrence := range sheet.Occurrences {
			key := occurrence.Key()
			if _, dup := seen[key]; dup {
				t.Fatalf("duplicate occurrence identity %s", key)
			}
			seen[key] = struct{}{}
		}
	})

	t.Run("deterministic across repeated calls", func(t *testing.T) {
		t.Parallel()

		logs := []DoseLog{takenLog("log-1", "sched-a", "2024-01-05", "08:00", slotTime("2024-01-05", "08:00"))}
		first := ReconcileDay([]Schedule{morning, noon}, logs, date("2024-01-05"))
		second := ReconcileDay([]Schedule{morning, noon}, logs, date("2024-01-05"))
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("reconciling the same snapshot twice produced different sheets")
		}
	})
}
