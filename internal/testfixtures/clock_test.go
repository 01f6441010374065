package testfixtures

import (
	"testing"
	"time"
)

func TestClockZeroStartUsesReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	if moved := clock.Advance(90 * time.Minute); !moved.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", moved)
	}

	pinned := start.Add(2 * time.Hour)
	clock.Set(pinned)
	if got := clock.Current(); !got.Equal(pinned) {
		t.Fatalf("expected %v, got %v", pinned, got)
	}
}

func TestClockNowFuncTracksAdvances(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	if got := nowFn(); !got.Equal(clock.Current()) {
		t.Fatalf("expected %v from NowFunc, got %v", clock.Current(), got)
	}

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Current()) {
		t.Fatalf("expected advanced time %v, got %v", clock.Current(), got)
	}
}
