package sync

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubRunner struct {
	calls chan int
}

func (s *stubRunner) Run(_ context.Context, year int) (Result, error) {
	s.calls <- year
	return Result{Year: year}, nil
}

func TestScheduler_NextRun(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	tests := []struct {
		name string
		hour int
		loc  *time.Location
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			hour: 2,
			loc:  time.UTC,
			now:  time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the hour rolls to tomorrow",
			hour: 2,
			loc:  time.UTC,
			now:  time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "year boundary",
			hour: 2,
			loc:  time.UTC,
			now:  time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "configured zone",
			hour: 3,
			loc:  berlin,
			now:  time.Date(2025, 7, 1, 0, 30, 0, 0, time.UTC), // 02:30 in Berlin
			want: time.Date(2025, 7, 1, 3, 0, 0, 0, berlin),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(&stubRunner{}, tt.hour, tt.loc, testLogger)
			if got := s.NextRun(tt.now); !got.Equal(tt.want) {
				t.Errorf("NextRun(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestScheduler_ClampsHour(t *testing.T) {
	s := NewScheduler(&stubRunner{}, 99, nil, testLogger)
	got := s.NextRun(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if got.Hour() != 23 {
		t.Errorf("hour = %d, want 23", got.Hour())
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	runner := &stubRunner{calls: make(chan int, 1)}
	s := NewScheduler(runner, 2, time.UTC, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if len(runner.calls) != 0 {
		t.Error("runner triggered before the scheduled hour")
	}
}

func TestScheduler_FiresAtScheduledTime(t *testing.T) {
	runner := &stubRunner{calls: make(chan int, 1)}
	s := NewScheduler(runner, 2, time.UTC, testLogger)

	// Pretend it is 1ms before the hour on the first check.
	base := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	start := time.Now()
	s.now = func() time.Time { return base.Add(time.Since(start)) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	select {
	case year := <-runner.calls:
		if year != 0 {
			t.Errorf("scheduled run year = %d, want 0 (current year)", year)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run did not fire")
	}
}
