package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/example/intake-tracker/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "intake_test.db") + "?_pragma=foreign_keys(1)"
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return store
}

func seedMedication(t *testing.T, store *Store, id, name string) {
	t.Helper()

	err := NewMedicationRepository(store).CreateMedication(context.Background(), persistence.Medication{
		ID:              id,
		Name:            name,
		ActivePrinciple: name + " principle",
	})
	if err != nil {
		t.Fatalf("CreateMedication failed: %v", err)
	}
}

func testSchedule(id, userID, medicationID string) persistence.Schedule {
	return persistence.Schedule{
		ID:           id,
		UserID:       userID,
		MedicationID: medicationID,
		Dosage:       "500mg",
		TimeSlots:    []string{"08:00", "20:00"},
		Route:        "oral",
		StartDate:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Active:       true,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestMedicationRepository_Search(t *testing.T) {
	store := openTestStore(t)
	repo := NewMedicationRepository(store)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")
	seedMedication(t, store, "med-2", "Paracetamol")
	seedMedication(t, store, "med-3", "Amlodipine")

	results, err := repo.SearchMedications(ctx, "Am", 10)
	if err != nil {
		t.Fatalf("SearchMedications failed: %v", err)
	}
	names := make([]string, 0, len(results))
	for _, medication := range results {
		names = append(names, medication.Name)
	}
	want := []string{"Amlodipine", "Amoxicillin"}
	if !slices.Equal(names, want) {
		t.Fatalf("search results = %v, want %v", names, want)
	}

	if _, err := repo.GetMedication(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("GetMedication(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMedicationRepository_DuplicateID(t *testing.T) {
	store := openTestStore(t)
	repo := NewMedicationRepository(store)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")
	err := repo.CreateMedication(ctx, persistence.Medication{ID: "med-1", Name: "Other", ActivePrinciple: "x"})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("duplicate create error = %v, want ErrDuplicate", err)
	}
}

func TestScheduleRepository_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	repo := NewScheduleRepository(store)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")
	schedule := testSchedule("sched-1", "user-1", "med-1")
	if err := repo.CreateSchedule(ctx, schedule); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	stored, err := repo.GetSchedule(ctx, "sched-1")
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if !slices.Equal(stored.TimeSlots, []string{"08:00", "20:00"}) {
		t.Fatalf("stored slots = %v, want [08:00 20:00]", stored.TimeSlots)
	}
	if stored.StartDate.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("stored start date = %s, want 2024-01-01", stored.StartDate.Format("2006-01-02"))
	}
	if !stored.Active {
		t.Fatal("stored schedule should be active")
	}

	stored.TimeSlots = []string{"09:00"}
	stored.Dosage = "250mg"
	if err := repo.UpdateSchedule(ctx, stored); err != nil {
		t.Fatalf("UpdateSchedule failed: %v", err)
	}
	updated, err := repo.GetSchedule(ctx, "sched-1")
	if err != nil {
		t.Fatalf("GetSchedule after update failed: %v", err)
	}
	if !slices.Equal(updated.TimeSlots, []string{"09:00"}) || updated.Dosage != "250mg" {
		t.Fatalf("update not applied: slots=%v dosage=%s", updated.TimeSlots, updated.Dosage)
	}
}

func TestScheduleRepository_ForeignKey(t *testing.T) {
	store := openTestStore(t)
	repo := NewScheduleRepository(store)

	err := repo.CreateSchedule(context.Background(), testSchedule("sched-1", "user-1", "missing-med"))
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("create with missing medication error = %v, want ErrForeignKeyViolation", err)
	}
}

func TestScheduleRepository_WindowConstraint(t *testing.T) {
	store := openTestStore(t)
	repo := NewScheduleRepository(store)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")
	schedule := testSchedule("sched-1", "user-1", "med-1")
	before := schedule.StartDate.AddDate(0, 0, -1)
	schedule.EndDate = &before

	err := repo.CreateSchedule(ctx, schedule)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("create with end before start error = %v, want ErrConstraintViolation", err)
	}
}

func TestScheduleRepository_ListFilters(t *testing.T) {
	store := openTestStore(t)
	repo := NewScheduleRepository(store)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")

	january := testSchedule("sched-jan", "user-1", "med-1")
	end := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	january.EndDate = &end

	march := testSchedule("sched-mar", "user-1", "med-1")
	march.StartDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	other := testSchedule("sched-other", "user-2", "med-1")

	inactive := testSchedule("sched-off", "user-1", "med-1")
	inactive.Active = false

	for _, schedule := range []persistence.Schedule{january, march, other, inactive} {
		if err := repo.CreateSchedule(ctx, schedule); err != nil {
			t.Fatalf("CreateSchedule(%s) failed: %v", schedule.ID, err)
		}
	}

	listIDs := func(filter persistence.ScheduleFilter) []string {
		t.Helper()
		schedules, err := repo.ListSchedules(ctx, filter)
		if err != nil {
			t.Fatalf("ListSchedules failed: %v", err)
		}
		ids := make([]string, 0, len(schedules))
		for _, schedule := range schedules {
			ids = append(ids, schedule.ID)
		}
		slices.Sort(ids)
		return ids
	}

	if got := listIDs(persistence.ScheduleFilter{UserID: "user-1"}); !slices.Equal(got, []string{"sched-jan", "sched-mar"}) {
		t.Fatalf("active user-1 schedules = %v", got)
	}
	if got := listIDs(persistence.ScheduleFilter{UserID: "user-1", IncludeInactive: true}); !slices.Equal(got, []string{"sched-jan", "sched-mar", "sched-off"}) {
		t.Fatalf("all user-1 schedules = %v", got)
	}

	overlapStart := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	overlapEnd := time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC)
	if got := listIDs(persistence.ScheduleFilter{
		UserID:        "user-1",
		OverlapsStart: &overlapStart,
		OverlapsEnd:   &overlapEnd,
	}); len(got) != 0 {
		t.Fatalf("february overlap = %v, want none", got)
	}

	overlapEnd = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if got := listIDs(persistence.ScheduleFilter{
		UserID:        "user-1",
		OverlapsStart: &overlapStart,
		OverlapsEnd:   &overlapEnd,
	}); !slices.Equal(got, []string{"sched-mar"}) {
		t.Fatalf("feb-mar overlap = %v, want [sched-mar]", got)
	}
}

func TestScheduleRepository_Deactivate(t *testing.T) {
	store := openTestStore(t)
	repo := NewScheduleRepository(store)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")
	if err := repo.CreateSchedule(ctx, testSchedule("sched-1", "user-1", "med-1")); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	if err := repo.DeactivateSchedule(ctx, "sched-1", time.Now()); err != nil {
		t.Fatalf("DeactivateSchedule failed: %v", err)
	}
	stored, err := repo.GetSchedule(ctx, "sched-1")
	if err != nil {
		t.Fatalf("GetSchedule after deactivate failed: %v", err)
	}
	if stored.Active {
		t.Fatal("schedule still active after soft delete")
	}

	if err := repo.DeactivateSchedule(ctx, "missing", time.Now()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("DeactivateSchedule(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDoseLogRepository_AppendAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")
	if err := NewScheduleRepository(store).CreateSchedule(ctx, testSchedule("sched-1", "user-1", "med-1")); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	repo := NewDoseLogRepository(store)
	scheduledAt := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	takenAt := scheduledAt.Add(5 * time.Minute)

	stored, err := repo.AppendLog(ctx, persistence.DoseLog{
		ID:          "log-1",
		ScheduleID:  "sched-1",
		ScheduledAt: scheduledAt,
		TakenAt:     &takenAt,
		Status:      "taken",
	})
	if err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}
	if stored.ID != "log-1" {
		t.Fatalf("stored log ID = %s, want log-1", stored.ID)
	}

	logs, err := repo.ListLogsForSchedules(ctx, []string{"sched-1"})
	if err != nil {
		t.Fatalf("ListLogsForSchedules failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("listed %d logs, want 1", len(logs))
	}
	log := logs[0]
	if log.ScheduledAt.Format("2006-01-02 15:04") != "2024-01-01 08:00" {
		t.Fatalf("scheduled_at round-trip = %s", log.ScheduledAt)
	}
	if log.TakenAt == nil || !log.TakenAt.Equal(takenAt) {
		t.Fatalf("taken_at round-trip = %v, want %v", log.TakenAt, takenAt)
	}

	if logs, err := repo.ListLogsForSchedules(ctx, nil); err != nil || logs != nil {
		t.Fatalf("ListLogsForSchedules(nil) = (%v, %v), want (nil, nil)", logs, err)
	}
}

func TestDoseLogRepository_RejectsUnknownStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seedMedication(t, store, "med-1", "Amoxicillin")
	if err := NewScheduleRepository(store).CreateSchedule(ctx, testSchedule("sched-1", "user-1", "med-1")); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	_, err := NewDoseLogRepository(store).AppendLog(ctx, persistence.DoseLog{
		ID:          "log-1",
		ScheduleID:  "sched-1",
		ScheduledAt: time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC),
		Status:      "confirmed",
	})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("unknown status error = %v, want ErrConstraintViolation", err)
	}
}
