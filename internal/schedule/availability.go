package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/tutorhub/class-engine/internal/model"
)

// TimesOverlap is the half-open interval test a.start < b.end && b.start < a.end.
func TimesOverlap(aStart, aEnd, bStart, bEnd model.TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// DateRangesOverlap compares two inclusive calendar-day ranges.
func DateRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return KeyOf(aStart) <= KeyOf(bEnd) && KeyOf(bStart) <= KeyOf(aEnd)
}

// SharedDays returns the weekdays present in both patterns, in a's order.
func SharedDays(a, b Pattern) []time.Weekday {
	var out []time.Weekday
	for _, d := range a {
		if b.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// ClassRange is the calendar range a class occupies. Classes without a
// generated calendar use the holiday-free estimate.
func ClassRange(c *model.Class) (time.Time, time.Time) {
	if c.EndDate != nil {
		return c.StartDate, *c.EndDate
	}
	return c.StartDate, EstimateEndDate(c.StartDate, c.DaysOfWeek, c.TotalSessions)
}

// occupiesCalendar reports whether a class can still block rooms and teachers.
func occupiesCalendar(c *model.Class) bool {
	return c.Status != model.ClassStatusCancelled && c.Status != model.ClassStatusCompleted
}

// RoomProposal is a recurring booking request for one room.
type RoomProposal struct {
	BranchID       int
	RoomID         int
	Days           Pattern
	StartTime      model.TimeOfDay
	EndTime        model.TimeOfDay
	From           time.Time
	To             time.Time
	ExcludeClassID int
}

// ClassConflict describes an existing class that collides with a proposal.
type ClassConflict struct {
	ClassID    int             `json:"class_id"`
	ClassName  string          `json:"class_name"`
	Dimension  string          `json:"dimension"`
	TeacherID  int             `json:"teacher_id"`
	RoomID     int             `json:"room_id"`
	SharedDays []time.Weekday  `json:"shared_days"`
	StartTime  model.TimeOfDay `json:"start_time"`
	EndTime    model.TimeOfDay `json:"end_time"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
}

// RoomConflicts returns every class in candidates that shares the room, is
// still active, meets on a common weekday, overlaps the date range and
// overlaps the time window.
func RoomConflicts(p RoomProposal, candidates []model.Class) []ClassConflict {
	var out []ClassConflict
	for i := range candidates {
		c := &candidates[i]
		if c.ID == p.ExcludeClassID || c.BranchID != p.BranchID || c.RoomID != p.RoomID || !occupiesCalendar(c) {
			continue
		}
		shared := SharedDays(p.Days, c.DaysOfWeek)
		if len(shared) == 0 {
			continue
		}
		from, to := ClassRange(c)
		if !DateRangesOverlap(p.From, p.To, from, to) {
			continue
		}
		if !TimesOverlap(p.StartTime, p.EndTime, c.StartTime, c.EndTime) {
			continue
		}
		out = append(out, ClassConflict{
			ClassID:    c.ID,
			ClassName:  c.Name,
			Dimension:  "room",
			TeacherID:  c.TeacherID,
			RoomID:     c.RoomID,
			SharedDays: shared,
			StartTime:  c.StartTime,
			EndTime:    c.EndTime,
			StartDate:  from,
			EndDate:    to,
		})
	}
	return out
}

// Slot is a single-date booking request, used to place makeup sessions.
type Slot struct {
	Date            time.Time
	StartTime       model.TimeOfDay
	EndTime         model.TimeOfDay
	TeacherID       int
	BranchID        int
	RoomID          int
	ExcludeMakeupID uuid.UUID
}

// SlotConflict describes a class or makeup occupying the room or teacher of a slot.
type SlotConflict struct {
	Kind      string          `json:"kind"`
	Dimension string          `json:"dimension"`
	ClassID   int             `json:"class_id,omitempty"`
	MakeupID  *uuid.UUID      `json:"makeup_id,omitempty"`
	StartTime model.TimeOfDay `json:"start_time"`
	EndTime   model.TimeOfDay `json:"end_time"`
}

// SlotConflicts checks a slot against recurring classes and placed makeups.
// A booking conflicts when it uses the same room or the same teacher on the
// slot's date with an overlapping time window.
func SlotConflicts(s Slot, classes []model.Class, makeups []model.Makeup) []SlotConflict {
	var out []SlotConflict
	for i := range classes {
		c := &classes[i]
		if !occupiesCalendar(c) || !Pattern(c.DaysOfWeek).Has(s.Date.Weekday()) {
			continue
		}
		from, to := ClassRange(c)
		if Before(s.Date, from) || After(s.Date, to) {
			continue
		}
		if !TimesOverlap(s.StartTime, s.EndTime, c.StartTime, c.EndTime) {
			continue
		}
		if dim := dimension(s, c.BranchID, c.RoomID, c.TeacherID); dim != "" {
			out = append(out, SlotConflict{
				Kind:      "class",
				Dimension: dim,
				ClassID:   c.ID,
				StartTime: c.StartTime,
				EndTime:   c.EndTime,
			})
		}
	}
	for i := range makeups {
		m := &makeups[i]
		if m.ID == s.ExcludeMakeupID || m.Schedule == nil {
			continue
		}
		if m.Status != model.MakeupStatusScheduled && m.Status != model.MakeupStatusCompleted {
			continue
		}
		ms := m.Schedule
		if !SameDay(ms.Date, s.Date) || !TimesOverlap(s.StartTime, s.EndTime, ms.StartTime, ms.EndTime) {
			continue
		}
		if dim := dimension(s, ms.BranchID, ms.RoomID, ms.TeacherID); dim != "" {
			id := m.ID
			out = append(out, SlotConflict{
				Kind:      "makeup",
				Dimension: dim,
				ClassID:   m.OriginalClassID,
				MakeupID:  &id,
				StartTime: ms.StartTime,
				EndTime:   ms.EndTime,
			})
		}
	}
	return out
}

func dimension(s Slot, branchID, roomID, teacherID int) string {
	switch {
	case branchID == s.BranchID && roomID == s.RoomID:
		return "room"
	case teacherID == s.TeacherID:
		return "teacher"
	}
	return ""
}
