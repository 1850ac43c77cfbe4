package schedule

import (
	"fmt"
	"time"

	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
)

// MakeupEvent is an action applied to a makeup.
type MakeupEvent string

const (
	MakeupEventSchedule MakeupEvent = "schedule"
	MakeupEventComplete MakeupEvent = "complete"
	MakeupEventRevert   MakeupEvent = "revert"
	MakeupEventCancel   MakeupEvent = "cancel"
	// MakeupEventVoid is raised when the original session's absence is
	// corrected after the makeup was already placed or held.
	MakeupEventVoid MakeupEvent = "void"
)

// MakeupTransition is a single allowed edge of the makeup state machine.
type MakeupTransition struct {
	From  model.MakeupStatus
	To    model.MakeupStatus
	Event MakeupEvent
}

var makeupTransitions = []MakeupTransition{
	{From: model.MakeupStatusPending, To: model.MakeupStatusScheduled, Event: MakeupEventSchedule},
	{From: model.MakeupStatusScheduled, To: model.MakeupStatusCompleted, Event: MakeupEventComplete},
	{From: model.MakeupStatusCompleted, To: model.MakeupStatusScheduled, Event: MakeupEventRevert},

	{From: model.MakeupStatusPending, To: model.MakeupStatusCancelled, Event: MakeupEventCancel},
	{From: model.MakeupStatusScheduled, To: model.MakeupStatusCancelled, Event: MakeupEventCancel},

	{From: model.MakeupStatusScheduled, To: model.MakeupStatusCancelled, Event: MakeupEventVoid},
	{From: model.MakeupStatusCompleted, To: model.MakeupStatusCancelled, Event: MakeupEventVoid},
}

// MakeupTransitionFor returns the target state for from+ev, if the edge exists.
func MakeupTransitionFor(from model.MakeupStatus, ev MakeupEvent) (model.MakeupStatus, bool) {
	for _, tr := range makeupTransitions {
		if tr.From == from && tr.Event == ev {
			return tr.To, true
		}
	}
	return "", false
}

// ApplyMakeupEvent validates ev against m's current status and returns the new status.
func ApplyMakeupEvent(m *model.Makeup, ev MakeupEvent) (model.MakeupStatus, error) {
	to, ok := MakeupTransitionFor(m.Status, ev)
	if !ok {
		return "", apperror.InvalidTransition("makeup", m.ID, string(m.Status), string(ev),
			fmt.Sprintf("%s is not allowed from %s", ev, m.Status))
	}
	return to, nil
}

// MakeupRequest is the input of the makeup creation policy gate.
type MakeupRequest struct {
	StudentID     int
	ClassID       int
	TriggerStatus model.AttendanceStatus
	SessionDate   time.Time
	Now           time.Time
	Bypass        bool
	ActiveCount   int
}

// CheckMakeupRequest applies the makeup policy. An operator bypass skips every
// policy rule; only the uniqueness of the makeup key is enforced regardless.
func CheckMakeupRequest(p model.MakeupPolicy, r MakeupRequest) error {
	if r.Bypass {
		return nil
	}
	if !p.AutoCreateMakeup {
		return apperror.Validation("bypass_policy", "auto_create_disabled",
			"automatic makeup creation is disabled; an operator must bypass the policy")
	}
	if !p.Allows(r.TriggerStatus) {
		return apperror.Validation("trigger_status", "not_eligible",
			fmt.Sprintf("attendance status %q does not qualify for a makeup", r.TriggerStatus))
	}
	if p.RequestDeadlineDays > 0 && After(r.Now, AddDays(r.SessionDate, p.RequestDeadlineDays)) {
		return apperror.Validation("schedule_id", "request_deadline",
			fmt.Sprintf("makeup requests must be made within %d days of the session", p.RequestDeadlineDays))
	}
	if !p.Unlimited() && r.ActiveCount >= p.MakeupLimitPerCourse {
		return &apperror.LimitExceededError{
			StudentID: r.StudentID,
			ClassID:   r.ClassID,
			Count:     r.ActiveCount,
			Limit:     p.MakeupLimitPerCourse,
		}
	}
	return nil
}

// MakeupDeadline is the last day a makeup for a session held on sessionDate
// may take place. ok is false when the policy sets no validity window.
func MakeupDeadline(p model.MakeupPolicy, sessionDate time.Time) (time.Time, bool) {
	if p.ValidityDays <= 0 {
		return time.Time{}, false
	}
	return AddDays(sessionDate, p.ValidityDays), true
}
