package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// ScheduleService turns class recurrences into session calendars and moves
// individual sessions.
type ScheduleService struct {
	classes  ClassStore
	sessions SessionStore
	holidays *HolidayService
	notifier Notifier
	maxDays  int
	now      Clock
	log      zerolog.Logger
}

// NewScheduleService creates a new ScheduleService. maxDays caps every
// forward calendar scan.
func NewScheduleService(
	classes ClassStore,
	sessions SessionStore,
	holidays *HolidayService,
	notifier Notifier,
	maxDays int,
	now Clock,
	log zerolog.Logger,
) *ScheduleService {
	if maxDays <= 0 {
		maxDays = schedule.DefaultMaxScanDays
	}
	return &ScheduleService{
		classes:  classes,
		sessions: sessions,
		holidays: holidays,
		notifier: notifier,
		maxDays:  maxDays,
		now:      now,
		log:      log.With().Str("component", "schedule_service").Logger(),
	}
}

// PlanDates computes the session dates of c, skipping its branch's holidays.
func (s *ScheduleService) PlanDates(ctx context.Context, c *model.Class) ([]time.Time, error) {
	return s.planDates(ctx, c, c.TotalSessions, nil)
}

func (s *ScheduleService) planDates(ctx context.Context, c *model.Class, total int, exclude schedule.DateSet) ([]time.Time, error) {
	if err := schedule.Pattern(c.DaysOfWeek).Validate(); err != nil {
		return nil, err
	}
	horizon := schedule.AddDays(c.StartDate, s.maxDays)
	holidays, err := s.holidays.HolidaysInRange(ctx, c.BranchID, c.StartDate, horizon)
	if err != nil {
		return nil, err
	}
	if len(exclude) > 0 {
		// The holiday set may be shared with the cache.
		skip := make(schedule.DateSet, len(holidays)+len(exclude))
		for k := range holidays {
			skip[k] = struct{}{}
		}
		for k := range exclude {
			skip[k] = struct{}{}
		}
		holidays = skip
	}
	return schedule.Generate(c.StartDate, c.DaysOfWeek, total, holidays, s.maxDays)
}

// PlanCalendar works out how the stored sessions of c must change to follow
// its current pattern and the holiday calendar. Held, moved, cancelled and
// marked sessions keep their rows and dates; the free ones take the
// remaining dates in session-number order.
func (s *ScheduleService) PlanCalendar(ctx context.Context, c *model.Class) (schedule.CalendarPlan, error) {
	existing, err := s.sessions.ListByClass(ctx, c.ID)
	if err != nil {
		return schedule.CalendarPlan{}, err
	}
	pinned, taken := schedule.PinnedSessions(existing)

	var dates []time.Time
	if remaining := c.TotalSessions - pinned; remaining > 0 {
		if dates, err = s.planDates(ctx, c, remaining, taken); err != nil {
			return schedule.CalendarPlan{}, err
		}
	}
	return schedule.ReconcileCalendar(existing, dates), nil
}

// GenerateSessions builds the calendar of a published or started class that
// has none yet.
func (s *ScheduleService) GenerateSessions(ctx context.Context, classID int) ([]model.Session, error) {
	c, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ClassStatusPublished && c.Status != model.ClassStatusStarted {
		return nil, apperror.InvalidTransition("class", c.ID, string(c.Status), "sessions_generated",
			"sessions are generated for published or started classes")
	}

	existing, err := s.sessions.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperror.Conflict("class", fmt.Sprint(classID), "class already has sessions")
	}

	plan, err := s.PlanCalendar(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.ApplyCalendar(ctx, classID, plan); err != nil {
		return nil, err
	}

	s.log.Info().Int("class_id", classID).Int("sessions", len(plan.Inserts)).Msg("Sessions generated")
	announce(ctx, s.notifier, s.log, model.ScheduleEvent{
		Type: model.EventSessionsGenerated, BranchID: c.BranchID, ClassID: c.ID, At: s.now(),
	})
	return s.sessions.ListByClass(ctx, classID)
}

// RegenerateAll re-dates the free sessions of every published or started
// class. Session ids survive, so makeups and attendance keep pointing at the
// same rows. Each class is applied in its own transaction; a failing class is
// reported and the sweep moves on.
func (s *ScheduleService) RegenerateAll(ctx context.Context) (*apperror.BulkResult, error) {
	classes, err := s.classes.ListByStatus(ctx, model.ClassStatusPublished, model.ClassStatusStarted)
	if err != nil {
		return nil, err
	}

	result := &apperror.BulkResult{Failed: []apperror.ItemError{}}
	for i := range classes {
		c := &classes[i]
		err := s.regenerate(ctx, c)
		result.Add(c.ID, err)
		if err != nil {
			s.log.Error().Err(err).Int("class_id", c.ID).Msg("Failed to regenerate sessions")
			continue
		}
		announce(ctx, s.notifier, s.log, model.ScheduleEvent{
			Type: model.EventSessionsGenerated, BranchID: c.BranchID, ClassID: c.ID, At: s.now(),
		})
	}

	s.log.Info().Int("processed", result.Processed).Int("failed", len(result.Failed)).Msg("Regeneration finished")
	return result, nil
}

func (s *ScheduleService) regenerate(ctx context.Context, c *model.Class) error {
	plan, err := s.PlanCalendar(ctx, c)
	if err != nil || plan.Empty() {
		return err
	}
	s.log.Debug().Int("class_id", c.ID).Int("moved", len(plan.Moves)).Int("added", len(plan.Inserts)).
		Int("dropped", len(plan.Drops)).Msg("Applying calendar changes")
	return s.sessions.ApplyCalendar(ctx, c.ID, plan)
}

// FindNextAvailableDate returns the first day after from on the class's
// pattern that is neither a holiday nor already holding a live session.
// A zero until defaults to the scan cap.
func (s *ScheduleService) FindNextAvailableDate(ctx context.Context, classID int, from, until time.Time) (time.Time, error) {
	c, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		return time.Time{}, err
	}
	if err := schedule.Pattern(c.DaysOfWeek).Validate(); err != nil {
		return time.Time{}, err
	}
	if until.IsZero() {
		until = schedule.AddDays(from, s.maxDays)
	}

	sessions, err := s.sessions.ListByClass(ctx, classID)
	if err != nil {
		return time.Time{}, err
	}
	taken := make(schedule.DateSet, len(sessions))
	for i := range sessions {
		if sessions[i].Active() {
			taken.Add(sessions[i].SessionDate)
		}
	}

	holidays, err := s.holidays.HolidaysInRange(ctx, c.BranchID, schedule.AddDays(from, 1), until)
	if err != nil {
		return time.Time{}, err
	}

	day, ok := schedule.NextAvailableDate(from, until, c.DaysOfWeek, holidays, taken)
	if !ok {
		return time.Time{}, apperror.NotFound("available_date",
			fmt.Sprintf("class %d between %s and %s", classID, schedule.KeyOf(from), schedule.KeyOf(until)))
	}
	return day, nil
}

// RescheduleSession moves a session to newDate. The first date the session
// ever had is kept as its original date; every move is logged.
func (s *ScheduleService) RescheduleSession(ctx context.Context, sessionID int, req model.RescheduleSessionRequest, actorID int) (*model.Session, error) {
	newDate, err := schedule.ParseDate(req.NewDate)
	if err != nil {
		return nil, apperror.Validation("new_date", "datetime", err.Error())
	}
	if len(req.Reason) == 0 {
		return nil, apperror.Validation("reason", "required", "a reschedule reason is required")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusCancelled || session.Status == model.SessionStatusCompleted {
		return nil, apperror.InvalidTransition("session", session.ID, string(session.Status),
			string(model.SessionStatusRescheduled), "only upcoming sessions can be rescheduled")
	}
	if schedule.SameDay(session.SessionDate, newDate) {
		return nil, apperror.Validation("new_date", "changed", "the session is already on this date")
	}

	c, err := s.classes.GetByID(ctx, session.ClassID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, apperror.InvalidTransition("class", c.ID, string(c.Status), "session_rescheduled", "class is closed")
	}

	holiday, err := s.holidays.IsHoliday(ctx, newDate, c.BranchID)
	if err != nil {
		return nil, err
	}
	if holiday {
		return nil, apperror.Validation("new_date", "holiday",
			fmt.Sprintf("%s is a holiday for branch %d", schedule.KeyOf(newDate), c.BranchID))
	}

	siblings, err := s.sessions.ListByClass(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for i := range siblings {
		other := &siblings[i]
		if other.ID != session.ID && other.Active() && schedule.SameDay(other.SessionDate, newDate) {
			return nil, &apperror.ConflictError{
				Entity:    "session",
				Key:       fmt.Sprintf("class %d on %s", c.ID, schedule.KeyOf(newDate)),
				Message:   fmt.Sprintf("session %d is already on this date", other.SessionNumber),
				Conflicts: []model.Session{*other},
			}
		}
	}

	moved, err := s.sessions.Reschedule(ctx, session.ID, newDate, req.Reason, actorID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("session_id", session.ID).Str("from", string(schedule.KeyOf(session.SessionDate))).
		Str("to", string(schedule.KeyOf(newDate))).Int("actor_id", actorID).Msg("Session rescheduled")
	announce(ctx, s.notifier, s.log, model.ScheduleEvent{
		Type: model.EventSessionRescheduled, BranchID: c.BranchID, ClassID: c.ID, SessionID: session.ID,
		Status: string(moved.Status), At: s.now(),
	})
	return moved, nil
}

// ListReschedules returns the move history of a session.
func (s *ScheduleService) ListReschedules(ctx context.Context, sessionID int) ([]model.RescheduleLog, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListReschedules(ctx, sessionID)
}

// ListSessions returns a class's sessions in order.
func (s *ScheduleService) ListSessions(ctx context.Context, classID int) ([]model.Session, error) {
	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		return nil, err
	}
	return s.sessions.ListByClass(ctx, classID)
}

// SendReminders queues a reminder for every live session held on day.
// Delivery failures are logged and reported per session.
func (s *ScheduleService) SendReminders(ctx context.Context, day time.Time) (*apperror.BulkResult, error) {
	due, err := s.sessions.ListOnDate(ctx, day)
	if err != nil {
		return nil, err
	}
	result := &apperror.BulkResult{Failed: []apperror.ItemError{}}
	for _, r := range due {
		err := s.notifier.SendClassReminder(ctx, r)
		if err != nil {
			s.log.Warn().Err(err).Int("session_id", r.SessionID).Msg("Failed to queue class reminder")
		}
		result.Add(r.SessionID, err)
	}
	return result, nil
}
