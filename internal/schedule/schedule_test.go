package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsBadSpec(t *testing.T) {
	job := func(context.Context) error { return nil }
	if _, err := New(context.Background(), "not a cron", "", job, zerolog.Nop()); err == nil {
		t.Error("expected parse error")
	}
	if _, err := New(context.Background(), DefaultSpec, "Mars/Olympus", job, zerolog.Nop()); err == nil {
		t.Error("expected timezone error")
	}
}

func TestNext(t *testing.T) {
	s, err := New(context.Background(), "", "America/New_York", func(context.Context) error { return nil }, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ny, _ := time.LoadLocation("America/New_York")
	// Friday 2024-03-08 17:00 ET: the next weekday trigger is Monday 16:30.
	s.now = func() time.Time { return time.Date(2024, 3, 8, 17, 0, 0, 0, ny) }

	want := time.Date(2024, 3, 11, 16, 30, 0, 0, ny)
	if got := s.Next(); !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestTriggerSkipsHolidays(t *testing.T) {
	calls := 0
	job := func(context.Context) error {
		calls++
		return errors.New("provider down")
	}
	s, err := New(context.Background(), DefaultSpec, "America/New_York", job, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ny, _ := time.LoadLocation("America/New_York")

	s.now = func() time.Time { return time.Date(2024, 12, 25, 16, 30, 0, 0, ny) }
	s.Trigger()
	if calls != 0 {
		t.Fatal("job ran on Christmas")
	}

	s.now = func() time.Time { return time.Date(2024, 12, 28, 16, 30, 0, 0, ny) }
	s.Trigger()
	if calls != 0 {
		t.Fatal("job ran on a Saturday")
	}

	s.now = func() time.Time { return time.Date(2024, 12, 26, 16, 30, 0, 0, ny) }
	s.Trigger()
	runs, lastErr := s.Stats()
	if calls != 1 || runs != 1 || lastErr == nil {
		t.Errorf("calls=%d runs=%d err=%v", calls, runs, lastErr)
	}
}

func TestTriggerAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := false
	s, err := New(ctx, DefaultSpec, "", func(context.Context) error { called = true; return nil }, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ny, _ := time.LoadLocation("America/New_York")
	s.now = func() time.Time { return time.Date(2024, 12, 26, 16, 30, 0, 0, ny) }

	cancel()
	s.Trigger()
	if called {
		t.Error("job should not run once the context is cancelled")
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(context.Background(), "@every 1h", "", func(context.Context) error { return nil }, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Start()
	s.Stop()
}
