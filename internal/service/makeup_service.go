package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// MakeupService runs the makeup workflow from request to attendance.
type MakeupService struct {
	makeups      MakeupStore
	sessions     SessionStore
	classes      ClassStore
	policy       PolicyStore
	holidays     *HolidayService
	availability *AvailabilityService
	audit        AuditLog
	notifier     Notifier
	now          Clock
	log          zerolog.Logger
}

// NewMakeupService creates a new MakeupService.
func NewMakeupService(
	makeups MakeupStore,
	sessions SessionStore,
	classes ClassStore,
	policy PolicyStore,
	holidays *HolidayService,
	availability *AvailabilityService,
	audit AuditLog,
	notifier Notifier,
	now Clock,
	log zerolog.Logger,
) *MakeupService {
	return &MakeupService{
		makeups:      makeups,
		sessions:     sessions,
		classes:      classes,
		policy:       policy,
		holidays:     holidays,
		availability: availability,
		audit:        audit,
		notifier:     notifier,
		now:          now,
		log:          log.With().Str("component", "makeup_service").Logger(),
	}
}

// makeupNote is written on the original attendance record of a requested makeup.
func makeupNote(id uuid.UUID) string {
	return "makeup requested: " + id.String()
}

// Create opens a pending makeup for a missed session. bypass skips the
// policy rules but never the one-live-makeup-per-session rule.
func (s *MakeupService) Create(ctx context.Context, req model.CreateMakeupRequest, actorID int) (*model.Makeup, error) {
	session, err := s.sessions.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if session.ClassID != req.ClassID {
		return nil, apperror.Validation("schedule_id", "class_mismatch",
			fmt.Sprintf("session %d does not belong to class %d", req.ScheduleID, req.ClassID))
	}
	if !session.Active() {
		return nil, apperror.Validation("schedule_id", "cancelled_session", "the session was cancelled")
	}

	policy, err := s.policy.GetMakeupPolicy(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := &model.Makeup{
		ID:                 uuid.New(),
		StudentID:          req.StudentID,
		OriginalClassID:    req.ClassID,
		OriginalScheduleID: req.ScheduleID,
		Status:             model.MakeupStatusPending,
		TriggerStatus:      req.TriggerStatus,
		Reason:             req.Reason,
		RequestedBy:        actorID,
		PolicyBypassed:     req.BypassPolicy,
		StudentName:        req.StudentName,
		ClassName:          req.ClassName,
		BranchName:         req.BranchName,
	}
	gate := func(active int) error {
		return schedule.CheckMakeupRequest(policy, schedule.MakeupRequest{
			StudentID:     req.StudentID,
			ClassID:       req.ClassID,
			TriggerStatus: req.TriggerStatus,
			SessionDate:   session.SessionDate,
			Now:           now,
			Bypass:        req.BypassPolicy,
			ActiveCount:   active,
		})
	}
	if err := s.makeups.CreateWithinLimit(ctx, m, gate, makeupNote(m.ID)); err != nil {
		return nil, err
	}

	s.log.Info().Str("makeup_id", m.ID.String()).Int("student_id", m.StudentID).Int("session_id", m.OriginalScheduleID).
		Bool("bypassed", m.PolicyBypassed).Msg("Makeup requested")
	return m, nil
}

// Get returns a makeup.
func (s *MakeupService) Get(ctx context.Context, id uuid.UUID) (*model.Makeup, error) {
	return s.makeups.GetByID(ctx, id)
}

// List returns makeups matching filter and the total number of matches.
func (s *MakeupService) List(ctx context.Context, filter model.MakeupFilter) ([]model.Makeup, int, error) {
	return s.makeups.List(ctx, filter)
}

// Schedule places a pending makeup in a free slot within the validity window.
func (s *MakeupService) Schedule(ctx context.Context, id uuid.UUID, req model.ScheduleMakeupRequest, actorID int) (*model.Makeup, error) {
	m, err := s.makeups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := schedule.ApplyMakeupEvent(m, schedule.MakeupEventSchedule)
	if err != nil {
		return nil, err
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.Validation("date", "datetime", err.Error())
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if schedule.Before(date, now) {
		return nil, apperror.Validation("date", "future", "a makeup cannot be placed in the past")
	}

	original, err := s.sessions.GetByID(ctx, m.OriginalScheduleID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy.GetMakeupPolicy(ctx)
	if err != nil {
		return nil, err
	}
	if deadline, ok := schedule.MakeupDeadline(policy, original.SessionDate); ok && schedule.After(date, deadline) {
		return nil, apperror.Validation("date", "validity",
			fmt.Sprintf("the makeup must take place by %s", schedule.KeyOf(deadline)))
	}

	holiday, err := s.holidays.IsHoliday(ctx, date, req.BranchID)
	if err != nil {
		return nil, err
	}
	if holiday {
		return nil, apperror.Validation("date", "holiday",
			fmt.Sprintf("%s is a holiday for branch %d", schedule.KeyOf(date), req.BranchID))
	}

	slot := schedule.Slot{
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		TeacherID:       req.TeacherID,
		BranchID:        req.BranchID,
		RoomID:          req.RoomID,
		ExcludeMakeupID: m.ID,
	}
	avail, err := s.availability.CheckSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, &apperror.ConflictError{
			Entity:    "makeup_slot",
			Key:       fmt.Sprintf("%s %s-%s", schedule.KeyOf(date), start, end),
			Message:   "the room or teacher is already booked in this slot",
			Conflicts: avail.Conflicts,
		}
	}

	from := m.Status
	m.Status = to
	m.Schedule = &model.MakeupSchedule{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		TeacherID: req.TeacherID,
		BranchID:  req.BranchID,
		RoomID:    req.RoomID,
	}
	m.ConfirmedBy = &actorID
	m.ConfirmedAt = &now
	if err := s.makeups.Save(ctx, m, from); err != nil {
		return nil, err
	}

	if err := s.notifier.SendMakeupScheduled(ctx, m); err != nil {
		s.log.Warn().Err(err).Str("makeup_id", m.ID.String()).Msg("Failed to send makeup notification")
	}
	announce(ctx, s.notifier, s.log, model.ScheduleEvent{
		Type: model.EventMakeupScheduled, BranchID: req.BranchID, ClassID: m.OriginalClassID,
		MakeupID: m.ID.String(), Status: string(m.Status), At: now,
	})
	return m, nil
}

// RecordAttendance completes a scheduled makeup with the outcome of its slot.
func (s *MakeupService) RecordAttendance(ctx context.Context, id uuid.UUID, req model.MakeupAttendanceRequest, actorID int) (*model.Makeup, error) {
	m, err := s.makeups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := schedule.ApplyMakeupEvent(m, schedule.MakeupEventComplete)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if m.Schedule != nil && schedule.After(m.Schedule.Date, now) {
		return nil, apperror.Validation("status", "not_held", "the makeup slot has not taken place yet")
	}

	from := m.Status
	m.Status = to
	m.Attendance = &model.MakeupAttendance{
		Status:    req.Status,
		Note:      req.Note,
		CheckedBy: actorID,
		CheckedAt: now,
	}
	if err := s.makeups.Save(ctx, m, from); err != nil {
		return nil, err
	}
	return m, nil
}

// RevertAttendance returns a completed makeup to scheduled and clears its
// attendance. The correction is audited.
func (s *MakeupService) RevertAttendance(ctx context.Context, id uuid.UUID, reason string, actorID int) (*model.Makeup, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}
	m, err := s.makeups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := schedule.ApplyMakeupEvent(m, schedule.MakeupEventRevert)
	if err != nil {
		return nil, err
	}

	before := m.Attendance
	from := m.Status
	m.Status = to
	m.Attendance = nil
	if err := s.makeups.Save(ctx, m, from); err != nil {
		return nil, err
	}

	s.record(ctx, model.AuditEvent{
		Action:     model.AuditMakeupAttendanceReverted,
		EntityType: "makeup",
		EntityID:   m.ID.String(),
		ActorID:    actorID,
		Reason:     reason,
		Before:     before,
	})
	return m, nil
}

// Cancel ends a pending or scheduled makeup. The record stays for history
// and stops counting toward the per-course limit.
func (s *MakeupService) Cancel(ctx context.Context, id uuid.UUID, reason string, actorID int) (*model.Makeup, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}
	m, err := s.makeups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cancel(ctx, m, schedule.MakeupEventCancel, reason, actorID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MakeupService) cancel(ctx context.Context, m *model.Makeup, ev schedule.MakeupEvent, reason string, actorID int) error {
	to, err := schedule.ApplyMakeupEvent(m, ev)
	if err != nil {
		return err
	}
	now := s.now()
	from := m.Status
	m.Status = to
	m.CancelReason = reason
	m.CancelledBy = &actorID
	m.CancelledAt = &now
	if err := s.makeups.Save(ctx, m, from); err != nil {
		return err
	}

	if m.Schedule != nil {
		announce(ctx, s.notifier, s.log, model.ScheduleEvent{
			Type: model.EventMakeupCancelled, BranchID: m.Schedule.BranchID, ClassID: m.OriginalClassID,
			MakeupID: m.ID.String(), Status: string(m.Status), At: now,
		})
	}
	return nil
}

// DeleteForSchedule withdraws the makeup of a student whose absence from
// scheduleID was corrected to attended. A pending makeup is deleted; one that
// was already placed or held is voided. Both are audited.
func (s *MakeupService) DeleteForSchedule(ctx context.Context, studentID, scheduleID, actorID int) error {
	m, err := s.makeups.FindActive(ctx, studentID, scheduleID)
	if apperror.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	const reason = "original attendance corrected to attended"
	snapshot := *m
	action := model.AuditMakeupVoided

	if m.Status == model.MakeupStatusPending {
		if err := s.makeups.Delete(ctx, m.ID, m.Status); err != nil {
			return err
		}
		action = model.AuditMakeupDeleted
	} else if err := s.cancel(ctx, m, schedule.MakeupEventVoid, reason, actorID); err != nil {
		return err
	}

	s.log.Info().Str("makeup_id", m.ID.String()).Str("action", action).Msg("Makeup withdrawn after attendance correction")
	var after any
	if action == model.AuditMakeupVoided {
		after = m
	}
	s.record(ctx, model.AuditEvent{
		Action:     action,
		EntityType: "makeup",
		EntityID:   m.ID.String(),
		ActorID:    actorID,
		Reason:     reason,
		Before:     snapshot,
		After:      after,
	})
	return nil
}

func (s *MakeupService) record(ctx context.Context, e model.AuditEvent) {
	e.CreatedAt = s.now()
	if err := s.audit.Record(ctx, e); err != nil {
		s.log.Error().Err(err).Str("action", e.Action).Str("entity_id", e.EntityID).Msg("Failed to record audit event")
	}
}

func requireReason(reason string) error {
	if len(strings.TrimSpace(reason)) < 3 {
		return apperror.Validation("reason", "required", "a reason of at least 3 characters is required")
	}
	return nil
}
