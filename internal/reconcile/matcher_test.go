package reconcile

import (
	"testing"
	"time"
)

func slotTime(day, slot string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", day+" "+slot)
	if err != nil {
		panic(err)
	}
	return t
}

func takenLog(id, scheduleID, day, slot string, createdAt time.Time) DoseLog {
	taken := slotTime(day, slot)
	return DoseLog{
		ID:          id,
		ScheduleID:  scheduleID,
		ScheduledAt: slotTime(day, slot),
		TakenAt:     &taken,
		Status:      StatusTaken,
		CreatedAt:   createdAt,
	}
}

func TestMatchLogs(t *testing.T) {
	t.Parallel()

	schedule := Schedule{
		ID:        "sched-1",
		TimeSlots: []string{"08:00", "20:00"},
		StartDate: date("2024-01-01"),
		Active:    true,
	}

	t.Run("matches by exact date and slot", func(t *testing.T) {
		t.Parallel()

		occurrences := Generate(schedule, date("2024-01-01"))
		logs := []DoseLog{takenLog("log-1", "sched-1", "2024-01-01", "08:00", slotTime("2024-01-01", "08:05"))}

		matched := MatchLogs(occurrences, logs)
		if matched[0].Status != StatusTaken || matched[0].Log == nil || matched[0].Log.ID != "log-1" {
			t.Fatalf("08:00 occurrence = %s (log %v), want taken with log-1", matched[0].Status, matched[0].Log)
		}
		if matched[1].Status != StatusPending || matched[1].Log != nil {
			t.Fatalf("20:00 occurrence = %s, want pending with no log", matched[1].Status)
		}
	})

	t.Run("does not match by proximity", func(t *testing.T) {
		t.Parallel()

		occurrences := Generate(schedule, date("2024-01-01"))
		// Scheduled one minute off the slot: must not match.
		logs := []DoseLog{takenLog("log-1", "sched-1", "2024-01-01", "08:01", slotTime("2024-01-01", "08:01"))}

		matched := MatchLogs(occurrences, logs)
		for _, occurrence := range matched {
			if occurrence.Status != StatusPending {
				t.Fatalf("occurrence %s matched a near-miss log", occurrence.Key())
			}
		}
	})

	t.Run("log from another date stays unmatched", func(t *testing.T) {
		t.Parallel()

		occurrences := Generate(schedule, date("2024-01-02"))
		logs := []DoseLog{takenLog("log-1", "sched-1", "2024-01-01", "08:00", slotTime("2024-01-01", "08:00"))}

		matched := MatchLogs(occurrences, logs)
		if matched[0].Status != StatusPending {
			t.Fatalf("occurrence matched a log from a different date")
		}
	})

	t.Run("log from another schedule stays unmatched", func(t *testing.T) {
		t.Parallel()

		occurrences := Generate(schedule, date("2024-01-01"))
		logs := []DoseLog{takenLog("log-1", "sched-2", "2024-01-01", "08:00", slotTime("2024-01-01", "08:00"))}

		matched := MatchLogs(occurrences, logs)
		if matched[0].Status != StatusPending {
			t.Fatalf("occurrence matched a log owned by a different schedule")
		}
	})

	t.Run("most recently created log wins duplicates", func(t *testing.T) {
		t.Parallel()

		occurrences := Generate(schedule, date("2024-01-01"))
		logs := []DoseLog{
			takenLog("log-old", "sched-1", "2024-01-01", "08:00", slotTime("2024-01-01", "08:01")),
			takenLog("log-new", "sched-1", "2024-01-01", "08:00", slotTime("2024-01-01", "09:30")),
		}

		for _, ordering := range [][]DoseLog{logs, {logs[1], logs[0]}} {
			matched := MatchLogs(occurrences, ordering)
			if matched[0].Log == nil || matched[0].Log.ID != "log-new" {
				t.Fatalf("duplicate tie-break picked %v, want log-new", matched[0].Log)
			}
		}
	})

	t.Run("identical creation instants fall back to log ID", func(t *testing.T) {
		t.Parallel()

		createdAt := slotTime("2024-01-01", "08:01")
		occurrences := Generate(schedule, date("2024-01-01"))
		logs := []DoseLog{
			takenLog("log-a", "sched-1", "2024-01-01", "08:00", createdAt),
			takenLog("log-b", "sched-1", "2024-01-01", "08:00", createdAt),
		}

		for _, ordering := range [][]DoseLog{logs, {logs[1], logs[0]}} {
			matched := MatchLogs(occurrences, ordering)
			if matched[0].Log == nil || matched[0].Log.ID != "log-b" {
				t.Fatalf("creation-time tie-break picked %v, want log-b", matched[0].Log)
			}
		}
	})

	t.Run("non-taken statuses carry through", func(t *testing.T) {
		t.Parallel()

		missed := takenLog("log-1", "sched-1", "2024-01-01", "08:00", slotTime("2024-01-01", "08:00"))
		missed.Status = StatusMissed
		missed.TakenAt = nil

		matched := MatchLogs(Generate(schedule, date("2024-01-01")), []DoseLog{missed})
		if matched[0].Status != StatusMissed {
			t.Fatalf("occurrence status = %s, want missed", matched[0].Status)
		}
	})
}
