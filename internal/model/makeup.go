package model

import (
	"time"

	"github.com/google/uuid"
)

// MakeupStatus enumerates the states of a makeup class.
type MakeupStatus string

const (
	MakeupStatusPending   MakeupStatus = "pending"
	MakeupStatusScheduled MakeupStatus = "scheduled"
	MakeupStatusCompleted MakeupStatus = "completed"
	MakeupStatusCancelled MakeupStatus = "cancelled"
)

// MakeupAttendanceStatus is the outcome of the makeup slot itself.
type MakeupAttendanceStatus string

const (
	MakeupAttendancePresent MakeupAttendanceStatus = "present"
	MakeupAttendanceAbsent  MakeupAttendanceStatus = "absent"
)

// MakeupSchedule is the concrete slot a makeup was placed in.
type MakeupSchedule struct {
	Date      time.Time `json:"date"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	TeacherID int       `json:"teacher_id"`
	BranchID  int       `json:"branch_id"`
	RoomID    int       `json:"room_id"`
}

// MakeupAttendance records whether the student attended the makeup slot.
type MakeupAttendance struct {
	Status    MakeupAttendanceStatus `json:"status"`
	Note      string                 `json:"note,omitempty"`
	CheckedBy int                    `json:"checked_by"`
	CheckedAt time.Time              `json:"checked_at"`
}

// Makeup is a compensating session offered to a student who missed a regular session.
// At most one non-cancelled makeup exists per (StudentID, OriginalClassID, OriginalScheduleID).
type Makeup struct {
	ID                 uuid.UUID         `json:"id"`
	StudentID          int               `json:"student_id"`
	OriginalClassID    int               `json:"original_class_id"`
	OriginalScheduleID int               `json:"original_schedule_id"`
	Status             MakeupStatus      `json:"status"`
	TriggerStatus      AttendanceStatus  `json:"trigger_status"`
	Reason             string            `json:"reason"`
	RequestedBy        int               `json:"requested_by"`
	PolicyBypassed     bool              `json:"policy_bypassed"`
	Schedule           *MakeupSchedule   `json:"makeup_schedule,omitempty"`
	ConfirmedBy        *int              `json:"confirmed_by,omitempty"`
	ConfirmedAt        *time.Time        `json:"confirmed_at,omitempty"`
	Attendance         *MakeupAttendance `json:"attendance,omitempty"`
	CancelReason       string            `json:"cancel_reason,omitempty"`
	CancelledBy        *int              `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`

	// Display-only copies; never used for decisions.
	StudentName string `json:"student_name,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
	BranchName  string `json:"branch_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MakeupFilter narrows makeup listings. Zero values are ignored.
type MakeupFilter struct {
	StudentID int
	ClassID   int
	Status    MakeupStatus
	Page      int
	PerPage   int
}

// CreateMakeupRequest asks for a makeup for a missed session.
type CreateMakeupRequest struct {
	StudentID     int              `json:"student_id" binding:"required,min=1"`
	ClassID       int              `json:"class_id" binding:"required,min=1"`
	ScheduleID    int              `json:"schedule_id" binding:"required,min=1"`
	TriggerStatus AttendanceStatus `json:"trigger_status" binding:"required,oneof=absent sick leave"`
	Reason        string           `json:"reason" binding:"max=500"`
	BypassPolicy  bool             `json:"bypass_policy"`
	StudentName   string           `json:"student_name" binding:"max=150"`
	ClassName     string           `json:"class_name" binding:"max=150"`
	BranchName    string           `json:"branch_name" binding:"max=150"`
}

// ScheduleMakeupRequest places a pending makeup in a concrete slot.
type ScheduleMakeupRequest struct {
	Date      string `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
	TeacherID int    `json:"teacher_id" binding:"required,min=1"`
	BranchID  int    `json:"branch_id" binding:"required,min=1"`
	RoomID    int    `json:"room_id" binding:"required,min=1"`
}

// MakeupAttendanceRequest records the outcome of a makeup slot.
type MakeupAttendanceRequest struct {
	Status MakeupAttendanceStatus `json:"status" binding:"required,oneof=present absent"`
	Note   string                 `json:"note" binding:"max=500"`
}

// ReasonRequest carries the mandatory reason of revert/cancel operations.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// AuditEvent is an append-only record of a correction to makeup data.
type AuditEvent struct {
	ID         int       `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ActorID    int       `json:"actor_id"`
	Reason     string    `json:"reason"`
	Before     any       `json:"before,omitempty"`
	After      any       `json:"after,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Audit actions.
const (
	AuditMakeupAttendanceReverted = "makeup.attendance_reverted"
	AuditMakeupDeleted            = "makeup.deleted"
	AuditMakeupVoided             = "makeup.voided"
)
