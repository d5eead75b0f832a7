// Package sched fires unattended maintenance operations at cron-determined
// times. Submissions go through the same conflict gate as manual requests,
// so a run that is already in flight is skipped, never queued.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"platter/internal/logging"
	"platter/internal/services"
)

// Job submits one scheduled operation. Implementations return
// services.ErrConflict when the operation is already running.
type Job func(ctx context.Context) error

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type entry struct {
	name     string
	schedule cron.Schedule
	job      Job
}

// Scheduler runs registered jobs on their schedules until its context is
// cancelled.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []entry
	started bool

	wg sync.WaitGroup
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logging.NewComponentLogger(logger, "sched")}
}

// Add registers a job under a five-field cron expression.
func (s *Scheduler) Add(name, spec string, job Job) error {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "sched", name, fmt.Sprintf("invalid cron expression %q", spec), err)
	}
	s.AddSchedule(name, schedule, job)
	return nil
}

// AddSchedule registers a job under a pre-parsed schedule.
func (s *Scheduler) AddSchedule(name string, schedule cron.Schedule, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, schedule: schedule, job: job})
}

// Start launches one goroutine per registered entry and returns immediately.
// The goroutines stop when ctx is cancelled; Wait blocks until they have.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	entries := make([]entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	for _, e := range entries {
		s.wg.Add(1)
		go func(e entry) {
			defer s.wg.Done()
			s.runEntry(ctx, e)
		}(e)
	}
}

// Wait blocks until every entry goroutine has stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runEntry(ctx context.Context, e entry) {
	for {
		now := time.Now()
		next := e.schedule.Next(now)
		if next.IsZero() {
			logging.WarnWithContext(s.logger, "schedule never fires", "schedule_never_fires",
				logging.String(logging.FieldOperation, e.name),
				logging.String(logging.FieldImpact, "automatic maintenance disabled for this operation"),
				logging.String(logging.FieldErrorHint, "fix the cron expression in the [schedule] config section"))
			return
		}

		timer := time.NewTimer(next.Sub(now))
		s.logger.Debug("scheduled run armed",
			logging.String(logging.FieldOperation, e.name),
			logging.String("next_run", next.Format(time.RFC3339)))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.fire(ctx, e)
	}
}

func (s *Scheduler) fire(ctx context.Context, e entry) {
	s.logger.Info("scheduled run due", logging.String(logging.FieldOperation, e.name))

	err := e.job(ctx)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrConflict):
		s.logger.Info("scheduled run skipped",
			logging.String(logging.FieldOperation, e.name),
			logging.String("reason", "another operation is already running"))
	case errors.Is(err, context.Canceled):
	default:
		logging.WarnWithContext(s.logger, "scheduled run failed to start", "scheduled_run_failed",
			logging.String(logging.FieldOperation, e.name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "maintenance run missed until the next scheduled time"))
	}
}
