package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Runner is the sync entry point the scheduler triggers.
// Implemented by [Engine].
type Runner interface {
	Run(ctx context.Context, year int) (Result, error)
}

// Scheduler triggers a sync for the current year once a day at a fixed
// hour in a fixed time zone.
type Scheduler struct {
	runner Runner
	hour   int
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

// NewScheduler creates a Scheduler firing daily at hour:00 in loc. nil loc
// means UTC; hour is clamped to 0-23.
func NewScheduler(runner Runner, hour int, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	hour = max(0, min(hour, 23))
	return &Scheduler{runner: runner, hour: hour, loc: loc, now: time.Now, log: logger}
}

// NextRun returns the first hour:00 in the scheduler's zone strictly after
// now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, 0, 0, 0, s.loc)
	}
	return next
}

// Run blocks until ctx is cancelled, triggering one sync per day. A trigger
// that collides with a manual sync still in progress is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.NextRun(s.now())
		s.log.Info("next scheduled sync", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler shutting down")
			return ctx.Err()
		case <-timer.C:
		}

		res, err := s.runner.Run(ctx, 0)
		switch {
		case errors.Is(err, ErrSyncInProgress):
			s.log.Warn("scheduled sync skipped, another sync is running")
		case err != nil:
			s.log.Error("scheduled sync failed", "error", err)
		default:
			s.log.Info("scheduled sync complete",
				"year", res.Year, "created", res.Total, "recurring", res.Recurring, "errors", res.Errors)
		}
	}
}
