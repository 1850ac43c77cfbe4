package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// ClassService handles class business logic and the class lifecycle.
type ClassService struct {
	classes      ClassStore
	sessions     SessionStore
	schedules    *ScheduleService
	availability *AvailabilityService
	notifier     Notifier
	now          Clock
	log          zerolog.Logger
}

// NewClassService creates a new ClassService.
func NewClassService(
	classes ClassStore,
	sessions SessionStore,
	schedules *ScheduleService,
	availability *AvailabilityService,
	notifier Notifier,
	now Clock,
	log zerolog.Logger,
) *ClassService {
	return &ClassService{
		classes:      classes,
		sessions:     sessions,
		schedules:    schedules,
		availability: availability,
		notifier:     notifier,
		now:          now,
		log:          log.With().Str("component", "class_service").Logger(),
	}
}

// applyRequest copies the request fields onto c.
func applyRequest(c *model.Class, req model.CreateClassRequest) error {
	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		return apperror.Validation("start_date", "datetime", err.Error())
	}
	from, to, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	c.Name = req.Name
	c.Description = req.Description
	c.SubjectID = req.SubjectID
	c.TeacherID = req.TeacherID
	c.BranchID = req.BranchID
	c.RoomID = req.RoomID
	c.StartDate = start
	c.TotalSessions = req.TotalSessions
	c.DaysOfWeek = weekdays(req.DaysOfWeek)
	c.StartTime = from
	c.EndTime = to
	c.MaxStudents = req.MaxStudents
	c.MinStudents = req.MinStudents
	return nil
}

// Create stores a new draft class.
func (s *ClassService) Create(ctx context.Context, req model.CreateClassRequest) (*model.Class, error) {
	c := &model.Class{Status: model.ClassStatusDraft}
	if err := applyRequest(c, req); err != nil {
		return nil, err
	}
	if err := schedule.ValidateClass(c); err != nil {
		return nil, err
	}
	if err := s.classes.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	s.log.Info().Int("class_id", c.ID).Str("name", c.Name).Msg("Class created")
	return c, nil
}

// Get returns a class with the field groups currently editable.
func (s *ClassService) Get(ctx context.Context, id int) (*model.ClassWithPermissions, error) {
	c, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ClassWithPermissions{
		Class:       c,
		Permissions: schedule.EditPermissionsFor(c.Status, c.EnrolledCount),
	}, nil
}

// Update applies a full replacement of the editable fields. Changes to field
// groups locked in the class's current state are rejected. When the
// recurrence changes on a class that already has a calendar, the calendar is
// rebuilt in the same transaction.
func (s *ClassService) Update(ctx context.Context, id int, req model.UpdateClassRequest) (*model.Class, error) {
	current, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if err := applyRequest(&next, req.CreateClassRequest); err != nil {
		return nil, err
	}
	if req.EnrolledCount != nil {
		next.EnrolledCount = *req.EnrolledCount
	}

	changes := schedule.DiffClass(current, &next)
	if err := schedule.CheckEdit(schedule.EditPermissionsFor(current.Status, current.EnrolledCount), changes); err != nil {
		return nil, err
	}
	if err := schedule.ValidateClass(&next); err != nil {
		return nil, err
	}

	if changes.Schedule {
		next.EndDate = nil
	}

	hasCalendar := current.Status == model.ClassStatusPublished || current.Status == model.ClassStatusStarted
	if hasCalendar && (changes.Schedule || changes.Room) {
		if err := s.ensureRoomFree(ctx, &next); err != nil {
			return nil, err
		}
	}

	if hasCalendar && changes.Schedule {
		plan, err := s.schedules.PlanCalendar(ctx, &next)
		if err != nil {
			return nil, err
		}
		if err := s.classes.UpdateWithSessions(ctx, &next, plan); err != nil {
			return nil, err
		}
		s.log.Info().Int("class_id", id).Int("moved", len(plan.Moves)).Int("added", len(plan.Inserts)).
			Int("dropped", len(plan.Drops)).Msg("Class schedule changed, sessions regenerated")
		announce(ctx, s.notifier, s.log, model.ScheduleEvent{
			Type: model.EventSessionsGenerated, BranchID: next.BranchID, ClassID: id, At: s.now(),
		})
	} else if err := s.classes.Update(ctx, &next); err != nil {
		return nil, err
	}

	return s.classes.GetByID(ctx, id)
}

// ensureRoomFree rejects c when another class that is neither cancelled nor
// completed holds its room at the same time. It sees the same classes as the
// room availability report.
func (s *ClassService) ensureRoomFree(ctx context.Context, c *model.Class) error {
	from, to := schedule.ClassRange(c)
	conflicts, err := s.availability.roomConflicts(ctx, schedule.RoomProposal{
		BranchID:       c.BranchID,
		RoomID:         c.RoomID,
		Days:           c.DaysOfWeek,
		StartTime:      c.StartTime,
		EndTime:        c.EndTime,
		From:           from,
		To:             to,
		ExcludeClassID: c.ID,
	})
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &apperror.ConflictError{
			Entity:    "room",
			Key:       fmt.Sprintf("branch %d room %d", c.BranchID, c.RoomID),
			Message:   fmt.Sprintf("room is booked by %d other class(es)", len(conflicts)),
			Conflicts: conflicts,
		}
	}
	return nil
}

// TransitionClassStatus performs an explicit lifecycle transition.
func (s *ClassService) TransitionClassStatus(ctx context.Context, id int, req model.TransitionClassRequest) (*model.Class, error) {
	c, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var sessions []model.Session
	if req.Status == model.ClassStatusCompleted {
		if sessions, err = s.sessions.ListByClass(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := schedule.CheckClassTransition(c, req.Status, now, sessions); err != nil {
		return nil, err
	}

	switch req.Status {
	case model.ClassStatusPublished:
		err = s.publish(ctx, c)
	case model.ClassStatusCancelled:
		err = s.classes.Cancel(ctx, id, c.Status, now)
	default:
		err = s.classes.SetStatus(ctx, id, c.Status, req.Status)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("class_id", id).Str("from", string(c.Status)).Str("to", string(req.Status)).
		Str("reason", req.Reason).Msg("Class status changed")
	announce(ctx, s.notifier, s.log, model.ScheduleEvent{
		Type: model.EventClassStatusChanged, BranchID: c.BranchID, ClassID: id, Status: string(req.Status), At: now,
	})
	return s.classes.GetByID(ctx, id)
}

func (s *ClassService) publish(ctx context.Context, c *model.Class) error {
	published := *c
	published.Status = model.ClassStatusPublished
	if err := schedule.ValidateClass(&published); err != nil {
		return err
	}
	if err := s.ensureRoomFree(ctx, &published); err != nil {
		return err
	}
	dates, err := s.schedules.PlanDates(ctx, c)
	if err != nil {
		return err
	}
	return s.classes.Publish(ctx, c.ID, dates)
}

// EndClassNow completes a running class today: its end date becomes the
// latest session held so far and every later session is cancelled.
func (s *ClassService) EndClassNow(ctx context.Context, id int) (*model.Class, error) {
	c, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ClassStatusPublished && c.Status != model.ClassStatusStarted {
		return nil, apperror.InvalidTransition("class", id, string(c.Status), string(model.ClassStatusCompleted),
			"only published or started classes can be ended")
	}

	sessions, err := s.sessions.ListByClass(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	plan := schedule.PlanEndNow(sessions, now)
	if err := s.classes.EndNow(ctx, id, c.Status, plan); err != nil {
		return nil, err
	}

	s.log.Info().Int("class_id", id).Str("end_date", string(schedule.KeyOf(plan.EndDate))).
		Int("cancelled_sessions", len(plan.CancelledIDs)).Msg("Class ended early")
	announce(ctx, s.notifier, s.log, model.ScheduleEvent{
		Type: model.EventClassStatusChanged, BranchID: c.BranchID, ClassID: id,
		Status: string(model.ClassStatusCompleted), At: now,
	})
	return s.classes.GetByID(ctx, id)
}

// StartDue moves every published class whose start date has come to started.
func (s *ClassService) StartDue(ctx context.Context) (*apperror.BulkResult, error) {
	return s.sweep(ctx, model.ClassStatusPublished, model.ClassStatusStarted, false)
}

// CompleteDue moves every started class past its last session to completed.
func (s *ClassService) CompleteDue(ctx context.Context) (*apperror.BulkResult, error) {
	return s.sweep(ctx, model.ClassStatusStarted, model.ClassStatusCompleted, true)
}

// sweep reads a snapshot of classes in from and moves each eligible one to
// to with a conditional write. A class that changed since the snapshot is
// skipped.
func (s *ClassService) sweep(ctx context.Context, from, to model.ClassStatus, needSessions bool) (*apperror.BulkResult, error) {
	classes, err := s.classes.ListByStatus(ctx, from)
	if err != nil {
		return nil, err
	}

	result := &apperror.BulkResult{Failed: []apperror.ItemError{}}
	now := s.now()
	for i := range classes {
		c := &classes[i]

		var sessions []model.Session
		if needSessions {
			if sessions, err = s.sessions.ListByClass(ctx, c.ID); err != nil {
				result.Add(c.ID, err)
				continue
			}
		}
		if schedule.CheckClassTransition(c, to, now, sessions) != nil {
			continue
		}

		err := s.classes.SetStatus(ctx, c.ID, from, to)
		var ise *apperror.InvalidStateTransitionError
		if errors.As(err, &ise) {
			s.log.Debug().Int("class_id", c.ID).Msg("Class changed during sweep, skipping")
			continue
		}
		result.Add(c.ID, err)
		if err != nil {
			s.log.Error().Err(err).Int("class_id", c.ID).Str("to", string(to)).Msg("Sweep transition failed")
			continue
		}
		announce(ctx, s.notifier, s.log, model.ScheduleEvent{
			Type: model.EventClassStatusChanged, BranchID: c.BranchID, ClassID: c.ID, Status: string(to), At: now,
		})
	}
	return result, nil
}
