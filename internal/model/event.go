package model

import "time"

// ScheduleEventType names a change pushed to live schedule views.
type ScheduleEventType string

const (
	EventClassStatusChanged ScheduleEventType = "class.status_changed"
	EventSessionsGenerated  ScheduleEventType = "class.sessions_generated"
	EventSessionRescheduled ScheduleEventType = "session.rescheduled"
	EventAttendanceRecorded ScheduleEventType = "session.attendance_recorded"
	EventMakeupScheduled    ScheduleEventType = "makeup.scheduled"
	EventMakeupCancelled    ScheduleEventType = "makeup.cancelled"
)

// ScheduleEvent is published on the branch channel after a committed change.
type ScheduleEvent struct {
	Type      ScheduleEventType `json:"type"`
	BranchID  int               `json:"branch_id"`
	ClassID   int               `json:"class_id,omitempty"`
	SessionID int               `json:"session_id,omitempty"`
	MakeupID  string            `json:"makeup_id,omitempty"`
	Status    string            `json:"status,omitempty"`
	At        time.Time         `json:"at"`
}
