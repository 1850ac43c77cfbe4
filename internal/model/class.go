package model

import "time"

// ClassStatus enumerates the lifecycle states of a class.
type ClassStatus string

const (
	ClassStatusDraft     ClassStatus = "draft"
	ClassStatusPublished ClassStatus = "published"
	ClassStatusStarted   ClassStatus = "started"
	ClassStatusCompleted ClassStatus = "completed"
	ClassStatusCancelled ClassStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s ClassStatus) IsTerminal() bool {
	return s == ClassStatusCompleted || s == ClassStatusCancelled
}

// Valid reports whether s is a known status.
func (s ClassStatus) Valid() bool {
	switch s {
	case ClassStatusDraft, ClassStatusPublished, ClassStatusStarted, ClassStatusCompleted, ClassStatusCancelled:
		return true
	}
	return false
}

// Class is a class definition: a recurring course taught in one room of a branch.
type Class struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	SubjectID     int            `json:"subject_id"`
	TeacherID     int            `json:"teacher_id"`
	BranchID      int            `json:"branch_id"`
	RoomID        int            `json:"room_id"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
	TotalSessions int            `json:"total_sessions"`
	DaysOfWeek    []time.Weekday `json:"days_of_week"`
	StartTime     TimeOfDay      `json:"start_time"`
	EndTime       TimeOfDay      `json:"end_time"`
	MaxStudents   int            `json:"max_students"`
	MinStudents   int            `json:"min_students"`
	EnrolledCount int            `json:"enrolled_count"`
	Status        ClassStatus    `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// HasDay reports whether the class meets on weekday d.
func (c *Class) HasDay(d time.Weekday) bool {
	for _, w := range c.DaysOfWeek {
		if w == d {
			return true
		}
	}
	return false
}

// EditPermissions are the field groups that may change for a class in its current state.
type EditPermissions struct {
	BasicInfo bool `json:"basic_info"`
	Capacity  bool `json:"capacity"`
	Status    bool `json:"status"`
	Schedule  bool `json:"schedule"`
	Room      bool `json:"room"`
	Pricing   bool `json:"pricing"`
}

// ClassWithPermissions is the class detail payload returned to the admin UI.
type ClassWithPermissions struct {
	Class       *Class          `json:"class"`
	Permissions EditPermissions `json:"permissions"`
}

// CreateClassRequest is the payload for creating a draft class.
type CreateClassRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=150"`
	Description   string `json:"description" binding:"max=2000"`
	SubjectID     int    `json:"subject_id" binding:"required,min=1"`
	TeacherID     int    `json:"teacher_id" binding:"required,min=1"`
	BranchID      int    `json:"branch_id" binding:"required,min=1"`
	RoomID        int    `json:"room_id" binding:"required,min=1"`
	StartDate     string `json:"start_date" binding:"required,datetime=2006-01-02"`
	TotalSessions int    `json:"total_sessions" binding:"required,min=1,max=500"`
	DaysOfWeek    []int  `json:"days_of_week" binding:"omitempty,unique,dive,weekday"`
	StartTime     string `json:"start_time" binding:"required,hhmm"`
	EndTime       string `json:"end_time" binding:"required,hhmm"`
	MaxStudents   int    `json:"max_students" binding:"required,min=1"`
	MinStudents   int    `json:"min_students" binding:"min=0"`
}

// UpdateClassRequest carries a full replacement of the editable fields.
// Fields locked for the class's current state must be sent unchanged.
type UpdateClassRequest struct {
	CreateClassRequest
	EnrolledCount *int `json:"enrolled_count" binding:"omitempty,min=0"`
}

// TransitionClassRequest asks for an explicit lifecycle transition.
type TransitionClassRequest struct {
	Status ClassStatus `json:"status" binding:"required,oneof=published started completed cancelled"`
	Reason string      `json:"reason" binding:"max=500"`
}
