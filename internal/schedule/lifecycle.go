package schedule

import (
	"time"

	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
)

// EditPermissionsFor derives which field groups may change for a class.
//
//	draft                      everything
//	published, nobody enrolled everything
//	published, enrolled        basic info, capacity, status
//	started                    basic info, status
//	completed / cancelled      nothing
func EditPermissionsFor(status model.ClassStatus, enrolledCount int) model.EditPermissions {
	switch status {
	case model.ClassStatusDraft:
		return allEditable()
	case model.ClassStatusPublished:
		if enrolledCount == 0 {
			return allEditable()
		}
		return model.EditPermissions{BasicInfo: true, Capacity: true, Status: true}
	case model.ClassStatusStarted:
		return model.EditPermissions{BasicInfo: true, Status: true}
	default:
		return model.EditPermissions{}
	}
}

func allEditable() model.EditPermissions {
	return model.EditPermissions{BasicInfo: true, Capacity: true, Status: true, Schedule: true, Room: true, Pricing: true}
}

// ClassChanges lists which field groups differ between two versions of a class.
type ClassChanges struct {
	BasicInfo bool
	Capacity  bool
	Schedule  bool
	Room      bool
}

// DiffClass compares the editable fields of before and after.
func DiffClass(before, after *model.Class) ClassChanges {
	var ch ClassChanges
	ch.BasicInfo = before.Name != after.Name ||
		before.Description != after.Description ||
		before.SubjectID != after.SubjectID
	ch.Capacity = before.MaxStudents != after.MaxStudents ||
		before.MinStudents != after.MinStudents ||
		before.EnrolledCount != after.EnrolledCount
	ch.Schedule = !SameDay(before.StartDate, after.StartDate) ||
		before.TotalSessions != after.TotalSessions ||
		!sameDays(before.DaysOfWeek, after.DaysOfWeek) ||
		before.StartTime != after.StartTime ||
		before.EndTime != after.EndTime
	// Staffing moves with the room: neither changes a session date.
	ch.Room = before.BranchID != after.BranchID || before.RoomID != after.RoomID ||
		before.TeacherID != after.TeacherID
	return ch
}

func sameDays(a, b []time.Weekday) bool {
	if len(a) != len(b) {
		return false
	}
	for _, d := range a {
		if !Pattern(b).Has(d) {
			return false
		}
	}
	return true
}

// CheckEdit rejects changes to field groups locked by perms.
func CheckEdit(perms model.EditPermissions, changes ClassChanges) error {
	switch {
	case changes.BasicInfo && !perms.BasicInfo:
		return apperror.Validation("name", "locked", "basic information can no longer be edited")
	case changes.Capacity && !perms.Capacity:
		return apperror.Validation("max_students", "locked", "capacity can no longer be edited")
	case changes.Schedule && !perms.Schedule:
		return apperror.Validation("days_of_week", "locked", "schedule can no longer be edited")
	case changes.Room && !perms.Room:
		return apperror.Validation("room_id", "locked", "room can no longer be edited")
	}
	return nil
}

// ValidateClass checks the structural invariants of a class definition.
func ValidateClass(c *model.Class) error {
	if c.EnrolledCount > c.MaxStudents {
		return apperror.Validation("enrolled_count", "max", "enrolled count exceeds max students")
	}
	if c.MinStudents > c.MaxStudents {
		return apperror.Validation("min_students", "max", "min students exceeds max students")
	}
	if c.StartTime >= c.EndTime {
		return apperror.Validation("end_time", "gtfield", "end time must be after start time")
	}
	if c.TotalSessions <= 0 {
		return apperror.Validation("total_sessions", "positive", "total sessions must be greater than zero")
	}
	if c.Status != model.ClassStatusDraft {
		if err := Pattern(c.DaysOfWeek).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// classTransitions are the lifecycle edges; started and completed are also
// reached by the periodic sweep, which applies the same guards.
var classTransitions = map[model.ClassStatus][]model.ClassStatus{
	model.ClassStatusDraft:     {model.ClassStatusPublished, model.ClassStatusCancelled},
	model.ClassStatusPublished: {model.ClassStatusStarted, model.ClassStatusCancelled},
	model.ClassStatusStarted:   {model.ClassStatusCompleted, model.ClassStatusCancelled},
}

// CheckClassTransition validates moving c to status to at time now.
// sessions are the class's current sessions, needed for the completion guard.
func CheckClassTransition(c *model.Class, to model.ClassStatus, now time.Time, sessions []model.Session) error {
	allowed := false
	for _, s := range classTransitions[c.Status] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.InvalidTransition("class", c.ID, string(c.Status), string(to), "transition not permitted")
	}

	switch to {
	case model.ClassStatusPublished:
		if err := Pattern(c.DaysOfWeek).Validate(); err != nil {
			return err
		}
		if c.TotalSessions <= 0 {
			return apperror.Validation("total_sessions", "positive", "total sessions must be greater than zero")
		}
	case model.ClassStatusStarted:
		if Before(now, c.StartDate) {
			return apperror.InvalidTransition("class", c.ID, string(c.Status), string(to), "start date not reached")
		}
	case model.ClassStatusCompleted:
		if !ReadyToComplete(c, now, sessions) {
			return apperror.InvalidTransition("class", c.ID, string(c.Status), string(to), "class still has upcoming sessions")
		}
	}
	return nil
}

// ReadyToComplete reports whether now is past the end date and no active
// session lies in the future.
func ReadyToComplete(c *model.Class, now time.Time, sessions []model.Session) bool {
	if c.EndDate == nil || !After(now, *c.EndDate) {
		return false
	}
	for i := range sessions {
		if sessions[i].Active() && After(sessions[i].SessionDate, now) {
			return false
		}
	}
	return true
}

// EndPlan is the outcome of ending a class early.
type EndPlan struct {
	EndDate      time.Time
	CancelledIDs []int
}

// PlanEndNow picks the latest active session on or before now as the new end
// date (falling back to now) and lists every active future session to cancel.
func PlanEndNow(sessions []model.Session, now time.Time) EndPlan {
	plan := EndPlan{EndDate: Day(now)}
	var latest *time.Time
	for i := range sessions {
		s := &sessions[i]
		if !s.Active() {
			continue
		}
		if After(s.SessionDate, now) {
			plan.CancelledIDs = append(plan.CancelledIDs, s.ID)
			continue
		}
		if latest == nil || After(s.SessionDate, *latest) {
			d := s.SessionDate
			latest = &d
		}
	}
	if latest != nil {
		plan.EndDate = *latest
	}
	return plan
}
