package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// AttendanceService records session attendance and keeps makeups in step
// with corrections.
type AttendanceService struct {
	sessions SessionStore
	classes  ClassStore
	makeups  MakeupStore
	workflow *MakeupService
	notifier Notifier
	now      Clock
	log      zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(
	sessions SessionStore,
	classes ClassStore,
	makeups MakeupStore,
	workflow *MakeupService,
	notifier Notifier,
	now Clock,
	log zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		sessions: sessions,
		classes:  classes,
		makeups:  makeups,
		workflow: workflow,
		notifier: notifier,
		now:      now,
		log:      log.With().Str("component", "attendance_service").Logger(),
	}
}

// RecordAttendance replaces the attendance of a session and recomputes its
// status. Students corrected from absent to attended lose their makeup.
func (s *AttendanceService) RecordAttendance(ctx context.Context, sessionID int, records []model.AttendanceRecord, actorID int) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusCancelled {
		return nil, apperror.InvalidTransition("session", sessionID, string(session.Status), "attendance_recorded",
			"attendance cannot be taken for a cancelled session")
	}

	c, err := s.classes.GetByID(ctx, session.ClassID)
	if err != nil {
		return nil, err
	}
	if c.Status == model.ClassStatusDraft || c.Status == model.ClassStatusCancelled {
		return nil, apperror.InvalidTransition("class", c.ID, string(c.Status), "attendance_recorded",
			"attendance is only taken for running classes")
	}

	now := s.now()
	seen := make(map[int]struct{}, len(records))
	stamped := make([]model.AttendanceRecord, len(records))
	for i, r := range records {
		if _, dup := seen[r.StudentID]; dup {
			return nil, apperror.Validation(fmt.Sprintf("records[%d].student_id", i), "unique",
				fmt.Sprintf("student %d appears more than once", r.StudentID))
		}
		seen[r.StudentID] = struct{}{}
		r.CheckedBy = actorID
		r.CheckedAt = now
		stamped[i] = r
	}

	status := schedule.DeriveSessionStatus(session.Status, stamped)
	if err := s.sessions.ReplaceAttendance(ctx, sessionID, stamped, status); err != nil {
		return nil, err
	}

	for _, studentID := range schedule.CorrectedToAttended(session.Attendance, stamped) {
		if err := s.workflow.DeleteForSchedule(ctx, studentID, sessionID, actorID); err != nil {
			s.log.Error().Err(err).Int("session_id", sessionID).Int("student_id", studentID).
				Msg("Failed to withdraw makeup after attendance correction")
		}
	}

	announce(ctx, s.notifier, s.log, model.ScheduleEvent{
		Type: model.EventAttendanceRecorded, BranchID: c.BranchID, ClassID: c.ID, SessionID: sessionID,
		Status: string(status), At: now,
	})
	return s.sessions.GetByID(ctx, sessionID)
}

// StudentAttendanceSummary accounts a student's sessions in a class,
// counting held makeups toward effective attendance.
func (s *AttendanceService) StudentAttendanceSummary(ctx context.Context, classID, studentID int) (*model.AttendanceSummary, error) {
	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	makeups, err := s.makeups.ListByStudentClass(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}

	sum := &model.AttendanceSummary{ClassID: classID, StudentID: studentID}
	for i := range sessions {
		if !sessions[i].Active() {
			continue
		}
		sum.TotalSessions++
		rec, ok := sessions[i].AttendanceFor(studentID)
		if !ok {
			continue
		}
		if rec.Status.Attended() {
			sum.Attended++
		} else {
			sum.Missed++
		}
	}
	for _, m := range makeups {
		switch m.Status {
		case model.MakeupStatusPending:
			sum.MakeupsPending++
		case model.MakeupStatusScheduled:
			sum.MakeupsScheduled++
		case model.MakeupStatusCompleted:
			if m.Attendance != nil && m.Attendance.Status == model.MakeupAttendancePresent {
				sum.MakeupsAttended++
			}
		}
	}
	sum.EffectiveAttended = sum.Attended + sum.MakeupsAttended
	return sum, nil
}
