package schedule

import (
	"sort"
	"time"

	"github.com/tutorhub/class-engine/internal/model"
)

// SessionMove re-dates an existing session.
type SessionMove struct {
	ID   int
	Date time.Time
}

// NewSession is a session to create.
type NewSession struct {
	Number int
	Date   time.Time
}

// CalendarPlan is the set of row changes that turns a class's stored
// calendar into a regenerated one. Session ids of surviving rows never change.
type CalendarPlan struct {
	Moves   []SessionMove
	Inserts []NewSession
	Drops   []int
}

// Empty reports whether applying p changes nothing.
func (p CalendarPlan) Empty() bool {
	return len(p.Moves) == 0 && len(p.Inserts) == 0 && len(p.Drops) == 0
}

// Pinned reports whether regeneration must leave s where it is: it was held,
// moved by hand, cancelled, or carries attendance that makeups point back to.
func Pinned(s *model.Session) bool {
	return s.Status != model.SessionStatusScheduled || s.OriginalDate != nil || len(s.Attendance) > 0
}

// PinnedSessions counts the live pinned sessions of existing and returns the
// days they occupy.
func PinnedSessions(existing []model.Session) (int, DateSet) {
	taken := DateSet{}
	count := 0
	for i := range existing {
		s := &existing[i]
		if !Pinned(s) || !s.Active() {
			continue
		}
		count++
		taken.Add(s.SessionDate)
	}
	return count, taken
}

// ReconcileCalendar lines dates up with the free sessions of existing in
// session-number order. Free sessions whose date differs are moved, missing
// ones are appended after the highest existing number, and surplus free
// sessions are dropped. Pinned sessions are never touched.
func ReconcileCalendar(existing []model.Session, dates []time.Time) CalendarPlan {
	var (
		plan      CalendarPlan
		free      []*model.Session
		maxNumber int
	)
	for i := range existing {
		s := &existing[i]
		if s.SessionNumber > maxNumber {
			maxNumber = s.SessionNumber
		}
		if !Pinned(s) {
			free = append(free, s)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i].SessionNumber < free[j].SessionNumber })

	for i, d := range dates {
		if i < len(free) {
			if !SameDay(free[i].SessionDate, d) {
				plan.Moves = append(plan.Moves, SessionMove{ID: free[i].ID, Date: Day(d)})
			}
			continue
		}
		maxNumber++
		plan.Inserts = append(plan.Inserts, NewSession{Number: maxNumber, Date: Day(d)})
	}
	for i := len(dates); i < len(free); i++ {
		plan.Drops = append(plan.Drops, free[i].ID)
	}
	return plan
}
