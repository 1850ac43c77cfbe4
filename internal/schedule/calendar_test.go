package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tutorhub/class-engine/internal/model"
)

func stored(id, number int, day string, status model.SessionStatus) model.Session {
	return model.Session{ID: id, SessionNumber: number, SessionDate: date(day), Status: status}
}

func TestPinned(t *testing.T) {
	moved := stored(1, 1, "2024-01-05", model.SessionStatusScheduled)
	orig := date("2024-01-03")
	moved.OriginalDate = &orig

	marked := stored(2, 2, "2024-01-08", model.SessionStatusScheduled)
	marked.Attendance = marks(model.AttendanceAbsent)

	tests := []struct {
		name    string
		session model.Session
		want    bool
	}{
		{"plain scheduled", stored(3, 3, "2024-01-10", model.SessionStatusScheduled), false},
		{"held", stored(4, 4, "2024-01-01", model.SessionStatusCompleted), true},
		{"rescheduled", stored(5, 5, "2024-01-12", model.SessionStatusRescheduled), true},
		{"cancelled", stored(6, 6, "2024-01-15", model.SessionStatusCancelled), true},
		{"moved then reopened", moved, true},
		{"absent marks only", marked, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Pinned(&tt.session))
		})
	}
}

func TestPinnedSessionsSkipsCancelled(t *testing.T) {
	existing := []model.Session{
		stored(1, 1, "2024-01-01", model.SessionStatusCompleted),
		stored(2, 2, "2024-01-03", model.SessionStatusCancelled),
		stored(3, 3, "2024-01-08", model.SessionStatusScheduled),
	}

	count, taken := PinnedSessions(existing)
	assert.Equal(t, 1, count)
	assert.Equal(t, []DateKey{"2024-01-01"}, taken.Keys())
}

func TestReconcileCalendar(t *testing.T) {
	held := stored(10, 1, "2024-01-01", model.SessionStatusCompleted)
	held.Attendance = marks(model.AttendancePresent)

	tests := []struct {
		name     string
		existing []model.Session
		dates    []string
		want     CalendarPlan
	}{
		{
			name:  "empty calendar inserts from one",
			dates: []string{"2024-01-01", "2024-01-03"},
			want: CalendarPlan{Inserts: []NewSession{
				{Number: 1, Date: date("2024-01-01")},
				{Number: 2, Date: date("2024-01-03")},
			}},
		},
		{
			name: "holiday shifts free sessions in place",
			existing: []model.Session{
				held,
				stored(11, 2, "2024-01-03", model.SessionStatusScheduled),
				stored(12, 3, "2024-01-08", model.SessionStatusScheduled),
			},
			dates: []string{"2024-01-03", "2024-01-10"},
			want:  CalendarPlan{Moves: []SessionMove{{ID: 12, Date: date("2024-01-10")}}},
		},
		{
			name: "longer course appends after highest number",
			existing: []model.Session{
				held,
				stored(11, 2, "2024-01-03", model.SessionStatusScheduled),
				stored(13, 4, "2024-01-10", model.SessionStatusCancelled),
			},
			dates: []string{"2024-01-03", "2024-01-15"},
			want:  CalendarPlan{Inserts: []NewSession{{Number: 5, Date: date("2024-01-15")}}},
		},
		{
			name: "shorter course drops surplus free sessions",
			existing: []model.Session{
				stored(12, 3, "2024-01-08", model.SessionStatusScheduled),
				stored(11, 2, "2024-01-03", model.SessionStatusScheduled),
				held,
			},
			dates: []string{"2024-01-03"},
			want:  CalendarPlan{Drops: []int{12}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := make([]time.Time, len(tt.dates))
			for i, d := range tt.dates {
				dates[i] = date(d)
			}
			assert.Equal(t, tt.want, ReconcileCalendar(tt.existing, dates))
		})
	}
}

func TestReconcileCalendarUnchangedIsEmpty(t *testing.T) {
	existing := []model.Session{
		stored(1, 1, "2024-01-01", model.SessionStatusScheduled),
		stored(2, 2, "2024-01-03", model.SessionStatusScheduled),
	}
	plan := ReconcileCalendar(existing, []time.Time{date("2024-01-01"), date("2024-01-03")})
	assert.True(t, plan.Empty())
}
