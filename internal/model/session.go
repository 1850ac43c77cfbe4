package model

import "time"

// SessionStatus enumerates the states of a single class session.
type SessionStatus string

const (
	SessionStatusScheduled   SessionStatus = "scheduled"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusCancelled   SessionStatus = "cancelled"
	SessionStatusRescheduled SessionStatus = "rescheduled"
)

// AttendanceStatus is the outcome recorded for one student in one session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceSick    AttendanceStatus = "sick"
	AttendanceLeave   AttendanceStatus = "leave"
)

// Attended reports whether the student was physically in class.
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// Session is one concrete occurrence of a class on a specific date.
type Session struct {
	ID               int                `json:"id"`
	ClassID          int                `json:"class_id"`
	SessionNumber    int                `json:"session_number"`
	SessionDate      time.Time          `json:"session_date"`
	Status           SessionStatus      `json:"status"`
	OriginalDate     *time.Time         `json:"original_date,omitempty"`
	RescheduledBy    *int               `json:"rescheduled_by,omitempty"`
	RescheduledAt    *time.Time         `json:"rescheduled_at,omitempty"`
	RescheduleReason string             `json:"reschedule_reason,omitempty"`
	Attendance       []AttendanceRecord `json:"attendance"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Active reports whether the session still counts toward the class calendar.
func (s *Session) Active() bool {
	return s.Status != SessionStatusCancelled
}

// AttendanceFor returns the record for studentID, if any.
func (s *Session) AttendanceFor(studentID int) (AttendanceRecord, bool) {
	for _, r := range s.Attendance {
		if r.StudentID == studentID {
			return r, true
		}
	}
	return AttendanceRecord{}, false
}

// AttendanceRecord is a per-student outcome inside a session.
type AttendanceRecord struct {
	StudentID int              `json:"student_id" binding:"required,min=1"`
	Status    AttendanceStatus `json:"status" binding:"required,oneof=present absent late sick leave"`
	Note      string           `json:"note" binding:"max=500"`
	Feedback  string           `json:"feedback" binding:"max=2000"`
	CheckedBy int              `json:"checked_by"`
	CheckedAt time.Time        `json:"checked_at"`
}

// RescheduleLog is one append-only entry of a session's reschedule history.
type RescheduleLog struct {
	ID           int       `json:"id"`
	SessionID    int       `json:"session_id"`
	PreviousDate time.Time `json:"previous_date"`
	NewDate      time.Time `json:"new_date"`
	Reason       string    `json:"reason"`
	ActorID      int       `json:"actor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RescheduleSessionRequest is the payload for moving a session to a new date.
type RescheduleSessionRequest struct {
	NewDate string `json:"new_date" binding:"required,datetime=2006-01-02"`
	Reason  string `json:"reason" binding:"required,min=3,max=500"`
}

// RecordAttendanceRequest replaces the attendance list of a session.
type RecordAttendanceRequest struct {
	Records []AttendanceRecord `json:"records" binding:"omitempty,dive"`
}

// AttendanceSummary is the per-student accounting of a class, including makeups.
type AttendanceSummary struct {
	ClassID           int `json:"class_id"`
	StudentID         int `json:"student_id"`
	TotalSessions     int `json:"total_sessions"`
	Attended          int `json:"attended"`
	Missed            int `json:"missed"`
	MakeupsPending    int `json:"makeups_pending"`
	MakeupsScheduled  int `json:"makeups_scheduled"`
	MakeupsAttended   int `json:"makeups_attended"`
	EffectiveAttended int `json:"effective_attended"`
}

// SessionReminder is a session due soon, joined with the class fields a
// reminder message needs.
type SessionReminder struct {
	SessionID     int       `json:"session_id"`
	SessionNumber int       `json:"session_number"`
	SessionDate   time.Time `json:"session_date"`
	ClassID       int       `json:"class_id"`
	ClassName     string    `json:"class_name"`
	BranchID      int       `json:"branch_id"`
	RoomID        int       `json:"room_id"`
	TeacherID     int       `json:"teacher_id"`
	StartTime     TimeOfDay `json:"start_time"`
	EndTime       TimeOfDay `json:"end_time"`
}
