package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// The interfaces below are what the services need from storage and from the
// outside world. The repository package satisfies the storage ones; tests use
// in-memory fakes.

// ClassStore persists class definitions and their lifecycle transitions.
type ClassStore interface {
	GetByID(ctx context.Context, id int) (*model.Class, error)
	Create(ctx context.Context, c *model.Class) error
	Update(ctx context.Context, c *model.Class) error
	UpdateWithSessions(ctx context.Context, c *model.Class, plan schedule.CalendarPlan) error
	Publish(ctx context.Context, id int, dates []time.Time) error
	SetStatus(ctx context.Context, id int, from, to model.ClassStatus) error
	Cancel(ctx context.Context, id int, from model.ClassStatus, today time.Time) error
	EndNow(ctx context.Context, id int, from model.ClassStatus, plan schedule.EndPlan) error
	ListByStatus(ctx context.Context, statuses ...model.ClassStatus) ([]model.Class, error)
	ListBlocking(ctx context.Context, branchID, roomID, teacherID int) ([]model.Class, error)
}

// SessionStore persists sessions, their attendance and reschedule history.
type SessionStore interface {
	ListByClass(ctx context.Context, classID int) ([]model.Session, error)
	GetByID(ctx context.Context, id int) (*model.Session, error)
	ApplyCalendar(ctx context.Context, classID int, plan schedule.CalendarPlan) error
	Reschedule(ctx context.Context, id int, newDate time.Time, reason string, actorID int) (*model.Session, error)
	ListReschedules(ctx context.Context, sessionID int) ([]model.RescheduleLog, error)
	ReplaceAttendance(ctx context.Context, id int, records []model.AttendanceRecord, status model.SessionStatus) error
	ListOnDate(ctx context.Context, day time.Time) ([]model.SessionReminder, error)
}

// HolidayStore is the source of holiday records.
type HolidayStore interface {
	ForBranchAndRange(ctx context.Context, branchID int, from, to time.Time) ([]model.Holiday, error)
	List(ctx context.Context, from, to time.Time) ([]model.Holiday, error)
	Create(ctx context.Context, h *model.Holiday) error
	Delete(ctx context.Context, id int) error
}

// MakeupStore persists makeups. CreateWithinLimit must serialize concurrent
// creations for one student and class and call gate with the live count.
type MakeupStore interface {
	CreateWithinLimit(ctx context.Context, m *model.Makeup, gate func(active int) error, note string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Makeup, error)
	FindActive(ctx context.Context, studentID, scheduleID int) (*model.Makeup, error)
	List(ctx context.Context, filter model.MakeupFilter) ([]model.Makeup, int, error)
	ListByStudentClass(ctx context.Context, studentID, classID int) ([]model.Makeup, error)
	ListPlacedOn(ctx context.Context, day time.Time) ([]model.Makeup, error)
	Save(ctx context.Context, m *model.Makeup, expected model.MakeupStatus) error
	Delete(ctx context.Context, id uuid.UUID, expected model.MakeupStatus) error
}

// SettingStore reads raw school settings.
type SettingStore interface {
	GetByPrefix(ctx context.Context, prefix string) ([]model.AppSetting, error)
}

// PolicyStore yields the validated makeup policy.
type PolicyStore interface {
	GetMakeupPolicy(ctx context.Context) (model.MakeupPolicy, error)
}

// AuditLog records corrections to makeup data.
type AuditLog interface {
	Record(ctx context.Context, e model.AuditEvent) error
}

// Notifier hands messages to the external delivery service. Callers treat
// every method as fire-and-forget.
type Notifier interface {
	SendMakeupScheduled(ctx context.Context, m *model.Makeup) error
	SendClassReminder(ctx context.Context, r model.SessionReminder) error
	PublishScheduleEvent(ctx context.Context, e model.ScheduleEvent) error
}

// Clock returns the current instant in the school's timezone.
type Clock func() time.Time

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}
