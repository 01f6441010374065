package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/intake-tracker/internal/persistence/memory"
)

type blockingLogStore struct {
	delegate LogStore
	entered  chan struct{}
	proceed  chan struct{}
}

func (s *blockingLogStore) AppendLog(ctx context.Context, log DoseLog) (DoseLog, error) {
	s.entered <- struct{}{}
	<-s.proceed
	return s.delegate.AppendLog(ctx, log)
}

// remoteLogStore stands in for an external record store: it assigns its own
// identifiers and keeps the submitted logs to itself.
type remoteLogStore struct {
	mu   sync.Mutex
	logs []DoseLog
}

func (s *remoteLogStore) AppendLog(ctx context.Context, log DoseLog) (DoseLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = fmt.Sprintf("remote-%d", len(s.logs)+1)
	s.logs = append(s.logs, log)
	return log, nil
}

type failingLogStore struct {
	err error
}

func (s *failingLogStore) AppendLog(ctx context.Context, log DoseLog) (DoseLog, error) {
	return DoseLog{}, s.err
}

func newCoordinatorFixture(t *testing.T, store LogStore, onCommit func()) (*IntakeCoordinator, *memory.Store) {
	t.Helper()
	repo := memory.NewStore()
	seedAdherenceFixture(t, repo, "user-1")
	if store == nil {
		store = NewRepositoryLogStore(repo)
	}
	now := fixedNow(t)
	coordinator := NewIntakeCoordinator(repo, repo, store, onCommit, sequentialIDs("log"), func() time.Time { return now })
	return coordinator, repo
}

func markTakenParams(t *testing.T, slot string) MarkTakenParams {
	t.Helper()
	return MarkTakenParams{
		Principal:  Principal{UserID: "user-1"},
		ScheduleID: "sched-1",
		Date:       mustDate(t, "2024-02-10"),
		TimeSlot:   slot,
	}
}

func TestIntakeCoordinator_MarkTaken_RecordsCanonicalLog(t *testing.T) {
	t.Parallel()

	committed := 0
	coordinator, repo := newCoordinatorFixture(t, nil, func() { committed++ })

	record, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00"))
	if err != nil {
		t.Fatalf("MarkTaken failed: %v", err)
	}

	if record.Status != "taken" {
		t.Fatalf("expected taken status, got %q", record.Status)
	}
	if !record.ScheduledAt.Equal(time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected scheduled timestamp at the slot, got %s", record.ScheduledAt)
	}
	if record.TakenAt == nil || !record.TakenAt.Equal(fixedNow(t)) {
		t.Fatalf("expected taken-at defaulted to now, got %v", record.TakenAt)
	}
	if committed != 1 {
		t.Fatalf("expected one commit notification, got %d", committed)
	}

	logs, err := repo.ListLogsForSchedules(context.Background(), []string{"sched-1"})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly one persisted log, got %d", len(logs))
	}

	if overlay := coordinator.OverlayLogs([]string{"sched-1"}); len(overlay) != 0 {
		t.Fatalf("expected overlay drained after commit, got %d entries", len(overlay))
	}
}

func TestIntakeCoordinator_MarkTaken_MirrorsRemoteCanonicalLog(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore()
	seedAdherenceFixture(t, repo, "user-1")
	remote := &remoteLogStore{}
	coordinator := NewIntakeCoordinator(repo, repo, NewMirroredLogStore(remote, repo), nil, sequentialIDs("log"), func() time.Time { return fixedNow(t) })

	record, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00"))
	if err != nil {
		t.Fatalf("MarkTaken failed: %v", err)
	}
	if record.ID != "remote-1" {
		t.Fatalf("expected the remote store's canonical id, got %q", record.ID)
	}

	// The canonical record must land in the local repository so adherence
	// reads and the resolved-occurrence check see it.
	logs, err := repo.ListLogsForSchedules(context.Background(), []string{"sched-1"})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != "remote-1" {
		t.Fatalf("expected the canonical log mirrored locally, got %+v", logs)
	}

	sheet, err := NewAdherenceService(repo, repo, repo, coordinator, time.Minute, nil).
		DaySheet(context.Background(), Principal{UserID: "user-1"}, mustDate(t, "2024-02-10"))
	if err != nil {
		t.Fatalf("DaySheet failed: %v", err)
	}
	if sheet.Taken != 1 {
		t.Fatalf("expected the committed dose visible to adherence reads, got taken=%d", sheet.Taken)
	}

	if _, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for an already resolved occurrence, got %v", err)
	}
	if len(remote.logs) != 1 {
		t.Fatalf("expected exactly one remote log, got %d", len(remote.logs))
	}
}

func TestIntakeCoordinator_MarkTaken_DecrementsStock(t *testing.T) {
	t.Parallel()

	coordinator, repo := newCoordinatorFixture(t, nil, nil)

	seeded, err := repo.GetSchedule(context.Background(), "sched-1")
	if err != nil {
		t.Fatalf("failed to load schedule: %v", err)
	}
	seeded.CurrentStock = 3
	if err := repo.UpdateSchedule(context.Background(), seeded); err != nil {
		t.Fatalf("failed to set stock: %v", err)
	}

	if _, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00")); err != nil {
		t.Fatalf("MarkTaken failed: %v", err)
	}

	schedule, err := repo.GetSchedule(context.Background(), "sched-1")
	if err != nil {
		t.Fatalf("failed to reload schedule: %v", err)
	}
	if schedule.CurrentStock != 2 {
		t.Fatalf("expected stock decremented to 2, got %d", schedule.CurrentStock)
	}
}

func TestIntakeCoordinator_MarkTaken_ConflictWhenResolved(t *testing.T) {
	t.Parallel()

	coordinator, repo := newCoordinatorFixture(t, nil, nil)
	seedTakenLog(t, repo, "log-existing", "sched-1", time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC))

	_, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for resolved occurrence, got %v", err)
	}

	logs, listErr := repo.ListLogsForSchedules(context.Background(), []string{"sched-1"})
	if listErr != nil {
		t.Fatalf("failed to list logs: %v", listErr)
	}
	if len(logs) != 1 {
		t.Fatalf("expected no additional log, got %d", len(logs))
	}
}

func TestIntakeCoordinator_MarkTaken_UnknownOccurrence(t *testing.T) {
	t.Parallel()

	coordinator, _ := newCoordinatorFixture(t, nil, nil)

	cases := []struct {
		name   string
		params MarkTakenParams
	}{
		{
			name: "slot not on schedule",
			params: MarkTakenParams{
				Principal:  Principal{UserID: "user-1"},
				ScheduleID: "sched-1",
				Date:       mustDate(t, "2024-02-10"),
				TimeSlot:   "12:00",
			},
		},
		{
			name: "date before window",
			params: MarkTakenParams{
				Principal:  Principal{UserID: "user-1"},
				ScheduleID: "sched-1",
				Date:       mustDate(t, "2024-01-15"),
				TimeSlot:   "08:00",
			},
		},
		{
			name: "foreign schedule",
			params: MarkTakenParams{
				Principal:  Principal{UserID: "user-2"},
				ScheduleID: "sched-1",
				Date:       mustDate(t, "2024-02-10"),
				TimeSlot:   "08:00",
			},
		},
		{
			name: "unknown schedule",
			params: MarkTakenParams{
				Principal:  Principal{UserID: "user-1"},
				ScheduleID: "missing",
				Date:       mustDate(t, "2024-02-10"),
				TimeSlot:   "08:00",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := coordinator.MarkTaken(context.Background(), tc.params); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestIntakeCoordinator_MarkTaken_ValidatesSlotFormat(t *testing.T) {
	t.Parallel()

	coordinator, _ := newCoordinatorFixture(t, nil, nil)

	_, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "8am"))

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["time_slot"]; !ok {
		t.Fatalf("expected time_slot validation error, got %v", vErr.FieldErrors)
	}
}

func TestIntakeCoordinator_MarkTaken_RollsBackOnStoreFailure(t *testing.T) {
	t.Parallel()

	committed := 0
	coordinator, repo := newCoordinatorFixture(t, &failingLogStore{err: errors.New("record store down")}, func() { committed++ })

	_, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if committed != 0 {
		t.Fatalf("expected no commit notification, got %d", committed)
	}
	if overlay := coordinator.OverlayLogs([]string{"sched-1"}); len(overlay) != 0 {
		t.Fatalf("expected optimistic log withdrawn, got %d entries", len(overlay))
	}

	logs, listErr := repo.ListLogsForSchedules(context.Background(), []string{"sched-1"})
	if listErr != nil {
		t.Fatalf("failed to list logs: %v", listErr)
	}
	if len(logs) != 0 {
		t.Fatalf("expected no persisted log after rollback, got %d", len(logs))
	}

	// The key must be free again so a retry can go through.
	coordinator.store = NewRepositoryLogStore(repo)
	if _, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00")); err != nil {
		t.Fatalf("expected retry to succeed after rollback, got %v", err)
	}
}

func TestIntakeCoordinator_MarkTaken_SerializesPerOccurrence(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore()
	seedAdherenceFixture(t, repo, "user-1")
	blocking := &blockingLogStore{
		delegate: NewRepositoryLogStore(repo),
		entered:  make(chan struct{}),
		proceed:  make(chan struct{}),
	}
	coordinator := NewIntakeCoordinator(repo, repo, blocking, nil, sequentialIDs("log"), func() time.Time { return fixedNow(t) })

	firstDone := make(chan error, 1)
	go func() {
		_, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00"))
		firstDone <- err
	}()
	<-blocking.entered

	// While the first submission is outstanding the optimistic log is
	// visible to adherence reads.
	if overlay := coordinator.OverlayLogs([]string{"sched-1"}); len(overlay) != 1 {
		t.Fatalf("expected one in-flight overlay log, got %d", len(overlay))
	}

	if _, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00")); !errors.Is(err, ErrIntakeInFlight) {
		t.Fatalf("expected ErrIntakeInFlight for duplicate submission, got %v", err)
	}

	// A different slot is a different occurrence and is not blocked.
	secondDone := make(chan error, 1)
	go func() {
		_, err := coordinator.MarkTaken(context.Background(), markTakenParams(t, "20:00"))
		secondDone <- err
	}()
	<-blocking.entered

	close(blocking.proceed)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if err := <-secondDone; err != nil {
		t.Fatalf("second submission failed: %v", err)
	}

	logs, err := repo.ListLogsForSchedules(context.Background(), []string{"sched-1"})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected one log per occurrence, got %d", len(logs))
	}
}

func TestIntakeCoordinator_MarkTaken_ConcurrentRequestsStoreOneLog(t *testing.T) {
	t.Parallel()

	coordinator, repo := newCoordinatorFixture(t, nil, nil)

	const attempts = 8
	results := make([]error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, results[i] = coordinator.MarkTaken(context.Background(), markTakenParams(t, "08:00"))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrConflict), errors.Is(err, ErrIntakeInFlight):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful submission, got %d", successes)
	}

	logs, err := repo.ListLogsForSchedules(context.Background(), []string{"sched-1"})
	if err != nil {
		t.Fatalf("failed to list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly one persisted log, got %d", len(logs))
	}
}
