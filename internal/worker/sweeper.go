package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// JobTimeout bounds a single run of any scheduled job.
const JobTimeout = 4 * time.Minute

// Lifecycle moves classes along their time-driven transitions.
type Lifecycle interface {
	StartDue(ctx context.Context) (*apperror.BulkResult, error)
	CompleteDue(ctx context.Context) (*apperror.BulkResult, error)
}

// Calendar rebuilds session calendars and sends session reminders.
type Calendar interface {
	RegenerateAll(ctx context.Context) (*apperror.BulkResult, error)
	SendReminders(ctx context.Context, day time.Time) (*apperror.BulkResult, error)
}

// HolidayChanges reports whether holidays changed since the last check.
type HolidayChanges interface {
	ConsumeDirty(ctx context.Context) (bool, error)
}

// SweeperSchedule holds the cron expressions of the periodic jobs.
type SweeperSchedule struct {
	Lifecycle  string
	Regenerate string
	Reminders  string
}

// Sweeper runs the periodic schedule jobs on cron.
type Sweeper struct {
	lifecycle Lifecycle
	calendar  Calendar
	holidays  HolidayChanges
	exprs     SweeperSchedule
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

func NewSweeper(
	lifecycle Lifecycle,
	calendar Calendar,
	holidays HolidayChanges,
	exprs SweeperSchedule,
	loc *time.Location,
	now func() time.Time,
	log zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		lifecycle: lifecycle,
		calendar:  calendar,
		holidays:  holidays,
		exprs:     exprs,
		loc:       loc,
		now:       now,
		log:       log.With().Str("component", "sweeper").Logger(),
	}
}

// Start registers every job and blocks until ctx is cancelled. Running jobs
// are allowed to finish before it returns.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLogger{log: s.log}),
		cron.WithChain(cron.Recover(cronLogger{log: s.log}), cron.SkipIfStillRunning(cronLogger{log: s.log})),
	)

	jobs := []struct {
		name string
		expr string
		run  func(context.Context) error
	}{
		{name: "lifecycle", expr: s.exprs.Lifecycle, run: s.RunLifecycle},
		{name: "regenerate", expr: s.exprs.Regenerate, run: s.RunRegenerate},
		{name: "reminders", expr: s.exprs.Reminders, run: s.RunReminders},
	}
	for _, j := range jobs {
		if j.expr == "" {
			s.log.Info().Str("job", j.name).Msg("Job disabled")
			continue
		}
		if _, err := c.AddFunc(j.expr, func() {
			jobCtx, cancel := context.WithTimeout(ctx, JobTimeout)
			defer cancel()
			if err := j.run(jobCtx); err != nil {
				s.log.Error().Err(err).Str("job", j.name).Msg("Scheduled job failed")
			}
		}); err != nil {
			return fmt.Errorf("add %s job %q: %w", j.name, j.expr, err)
		}
		s.log.Info().Str("job", j.name).Str("expr", j.expr).Msg("Job scheduled")
	}

	c.Start()
	<-ctx.Done()
	s.log.Info().Msg("Sweeper stopping, waiting for running jobs...")
	<-c.Stop().Done()
	return nil
}

// RunLifecycle starts published classes that reached their start date and
// completes started classes that are past their last session.
func (s *Sweeper) RunLifecycle(ctx context.Context) error {
	started, err := s.lifecycle.StartDue(ctx)
	if err != nil {
		return fmt.Errorf("start due classes: %w", err)
	}
	s.report("start_due", started)

	completed, err := s.lifecycle.CompleteDue(ctx)
	if err != nil {
		return fmt.Errorf("complete due classes: %w", err)
	}
	s.report("complete_due", completed)
	return nil
}

// RunRegenerate rebuilds every live calendar when holidays changed.
func (s *Sweeper) RunRegenerate(ctx context.Context) error {
	dirty, err := s.holidays.ConsumeDirty(ctx)
	if err != nil {
		return fmt.Errorf("check holiday changes: %w", err)
	}
	if !dirty {
		return nil
	}
	result, err := s.calendar.RegenerateAll(ctx)
	if err != nil {
		return fmt.Errorf("regenerate sessions: %w", err)
	}
	s.report("regenerate", result)
	return nil
}

// RunReminders queues reminders for tomorrow's sessions.
func (s *Sweeper) RunReminders(ctx context.Context) error {
	tomorrow := schedule.AddDays(schedule.Day(s.now()), 1)
	result, err := s.calendar.SendReminders(ctx, tomorrow)
	if err != nil {
		return fmt.Errorf("send reminders for %s: %w", schedule.KeyOf(tomorrow), err)
	}
	s.report("reminders", result)
	return nil
}

func (s *Sweeper) report(job string, r *apperror.BulkResult) {
	ev := s.log.Info()
	if !r.OK() {
		ev = s.log.Warn().Interface("errors", r.Failed)
	}
	ev.Str("job", job).Int("processed", r.Processed).Int("failed", len(r.Failed)).Msg("Job finished")
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
