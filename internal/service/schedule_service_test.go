package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

func dateKeys(dates []time.Time) []schedule.DateKey {
	out := make([]schedule.DateKey, len(dates))
	for i, d := range dates {
		out[i] = schedule.KeyOf(d)
	}
	return out
}

func TestScheduleService_PlanDatesSkipsBranchHolidays(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))
	e.db.holidays = []model.Holiday{
		{ID: 1, Date: date("2024-01-08"), Type: model.HolidayTypeNational},
		{ID: 2, Date: date("2024-01-10"), Type: model.HolidayTypeBranch, Branches: []int{2}},
	}
	c := monWedClass("2024-01-01", 3)

	dates, err := e.scheduleSvc.PlanDates(ctx, &c)
	require.NoError(t, err)
	assert.Equal(t, []schedule.DateKey{"2024-01-01", "2024-01-03", "2024-01-10"}, dateKeys(dates))

	_, err = e.scheduleSvc.PlanDates(ctx, &c)
	require.NoError(t, err)
	assert.Equal(t, 1, e.holidays.callCount(), "second lookup should be served from cache")
}

func TestScheduleService_HolidayStoreFailure(t *testing.T) {
	e := newEnv(date("2023-12-20"))
	e.holidays.err = errBoom
	c := monWedClass("2024-01-01", 3)

	_, err := e.scheduleSvc.PlanDates(context.Background(), &c)

	var de *apperror.DependencyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "holiday_store", de.Dependency)
	assert.ErrorIs(t, err, errBoom)
}

func TestScheduleService_GenerateSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("published class without calendar", func(t *testing.T) {
		e := newEnv(date("2023-12-20"))
		e.db.holidays = []model.Holiday{{ID: 1, Date: date("2024-01-08"), Type: model.HolidayTypeNational}}
		id := e.db.addClass(monWedClass("2024-01-01", 3))

		sessions, err := e.scheduleSvc.GenerateSessions(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []schedule.DateKey{"2024-01-01", "2024-01-03", "2024-01-10"}, sessionKeys(sessions))
		assert.Equal(t, []int{1, 2, 3}, []int{sessions[0].SessionNumber, sessions[1].SessionNumber, sessions[2].SessionNumber})

		c, err := e.classes.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, c.EndDate)
		assert.Equal(t, schedule.DateKey("2024-01-10"), schedule.KeyOf(*c.EndDate))

		require.Len(t, e.notifier.events, 1)
		assert.Equal(t, model.EventSessionsGenerated, e.notifier.events[0].Type)
	})

	t.Run("class already has sessions", func(t *testing.T) {
		e := newEnv(date("2023-12-20"))
		id := e.db.addClass(monWedClass("2024-01-01", 3))
		e.db.addSessions(id, date("2024-01-01"))

		_, err := e.scheduleSvc.GenerateSessions(ctx, id)
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("draft class", func(t *testing.T) {
		e := newEnv(date("2023-12-20"))
		c := monWedClass("2024-01-01", 3)
		c.Status = model.ClassStatusDraft
		id := e.db.addClass(c)

		_, err := e.scheduleSvc.GenerateSessions(ctx, id)
		var ise *apperror.InvalidStateTransitionError
		assert.ErrorAs(t, err, &ise)
	})

	t.Run("unknown class", func(t *testing.T) {
		e := newEnv(date("2023-12-20"))
		_, err := e.scheduleSvc.GenerateSessions(ctx, 99)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestScheduleService_RegenerateAllPartialSuccess(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))

	published := e.db.addClass(monWedClass("2024-01-01", 3))
	e.db.addSessions(published, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))

	startedClass := monWedClass("2024-01-01", 3)
	startedClass.Status = model.ClassStatusStarted
	started := e.db.addClass(startedClass)
	e.db.addSessions(started, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))
	e.sessions.failApply[started] = errBoom

	cancelledClass := monWedClass("2024-01-01", 2)
	cancelledClass.Status = model.ClassStatusCancelled
	cancelled := e.db.addClass(cancelledClass)
	e.db.addSessions(cancelled, date("2024-01-01"), date("2024-01-03"))

	// A new holiday moves the third session of the published class.
	e.db.holidays = []model.Holiday{{ID: 1, Date: date("2024-01-08"), Type: model.HolidayTypeNational}}

	result, err := e.scheduleSvc.RegenerateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []apperror.ItemError{{ID: started, Error: "boom"}}, result.Failed)

	sessions, err := e.sessions.ListByClass(ctx, published)
	require.NoError(t, err)
	assert.Equal(t, []schedule.DateKey{"2024-01-01", "2024-01-03", "2024-01-10"}, sessionKeys(sessions))

	untouched, err := e.sessions.ListByClass(ctx, started)
	require.NoError(t, err)
	assert.Equal(t, []schedule.DateKey{"2024-01-01", "2024-01-03", "2024-01-08"}, sessionKeys(untouched))

	closed, err := e.sessions.ListByClass(ctx, cancelled)
	require.NoError(t, err)
	assert.Equal(t, []schedule.DateKey{"2024-01-01", "2024-01-03"}, sessionKeys(closed))
}

func TestScheduleService_RegenerateAllKeepsMakeupsAndAttendance(t *testing.T) {
	ctx := context.Background()
	e, classID, ids := makeupFixture("2024-01-12")
	// The closure on the 3rd is announced after the calendar was built.
	e.db.holidays = []model.Holiday{{ID: 1, Date: date("2024-01-03"), Type: model.HolidayTypeNational}}

	held := e.db.sessions[ids[0]]
	held.Status = model.SessionStatusCompleted
	held.Attendance = []model.AttendanceRecord{{StudentID: 502, Status: model.AttendancePresent, CheckedBy: 9}}

	m, err := e.makeupSvc.Create(ctx, makeupRequest(classID, ids[2]), 42)
	require.NoError(t, err)

	result, err := e.scheduleSvc.RegenerateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Empty(t, result.Failed)

	sessions, err := e.sessions.ListByClass(ctx, classID)
	require.NoError(t, err)
	require.Len(t, sessions, 4)
	got := make(map[int]schedule.DateKey, len(sessions))
	for _, s := range sessions {
		got[s.ID] = schedule.KeyOf(s.SessionDate)
	}
	assert.Equal(t, map[int]schedule.DateKey{
		ids[0]: "2024-01-01",
		ids[1]: "2024-01-10",
		ids[2]: "2024-01-08",
		ids[3]: "2024-01-15",
	}, got, "session ids survive and only free sessions move")

	original, err := e.sessions.GetByID(ctx, ids[2])
	require.NoError(t, err)
	rec, ok := original.AttendanceFor(student)
	require.True(t, ok)
	assert.Equal(t, model.AttendanceAbsent, rec.Status)

	first, err := e.sessions.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, first.Status)
	assert.Len(t, first.Attendance, 1)

	scheduled, err := e.makeupSvc.Schedule(ctx, m.ID, slotRequest("2024-01-17", 8), 77)
	require.NoError(t, err)
	assert.Equal(t, model.MakeupStatusScheduled, scheduled.Status)
	assert.Equal(t, ids[2], scheduled.OriginalScheduleID)
}

func TestScheduleService_FindNextAvailableDate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))
	e.db.holidays = []model.Holiday{{ID: 1, Date: date("2024-01-08"), Type: model.HolidayTypeNational}}
	id := e.db.addClass(monWedClass("2024-01-01", 3))
	ids := e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-10"))

	got, err := e.scheduleSvc.FindNextAvailableDate(ctx, id, date("2024-01-03"), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, schedule.DateKey("2024-01-15"), schedule.KeyOf(got))

	_, err = e.scheduleSvc.FindNextAvailableDate(ctx, id, date("2024-01-03"), date("2024-01-12"))
	assert.True(t, apperror.IsNotFound(err))

	e.db.sessions[ids[2]].Status = model.SessionStatusCancelled
	got, err = e.scheduleSvc.FindNextAvailableDate(ctx, id, date("2024-01-03"), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, schedule.DateKey("2024-01-10"), schedule.KeyOf(got), "a cancelled session frees its day")
}

func TestScheduleService_RescheduleSession(t *testing.T) {
	ctx := context.Background()
	newFixture := func() (*env, []int) {
		e := newEnv(date("2023-12-20"))
		e.db.holidays = []model.Holiday{{ID: 1, Date: date("2024-01-05"), Type: model.HolidayTypeBranch, Branches: []int{1}}}
		id := e.db.addClass(monWedClass("2024-01-01", 3))
		return e, e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))
	}
	move := func(d string) model.RescheduleSessionRequest {
		return model.RescheduleSessionRequest{NewDate: d, Reason: "teacher unavailable"}
	}

	t.Run("original date is the first ever date", func(t *testing.T) {
		e, ids := newFixture()

		moved, err := e.scheduleSvc.RescheduleSession(ctx, ids[0], move("2024-01-02"), 42)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusRescheduled, moved.Status)
		require.NotNil(t, moved.OriginalDate)
		assert.Equal(t, schedule.DateKey("2024-01-01"), schedule.KeyOf(*moved.OriginalDate))

		moved, err = e.scheduleSvc.RescheduleSession(ctx, ids[0], move("2024-01-04"), 43)
		require.NoError(t, err)
		assert.Equal(t, schedule.DateKey("2024-01-04"), schedule.KeyOf(moved.SessionDate))
		assert.Equal(t, schedule.DateKey("2024-01-01"), schedule.KeyOf(*moved.OriginalDate))

		history, err := e.scheduleSvc.ListReschedules(ctx, ids[0])
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, schedule.DateKey("2024-01-01"), schedule.KeyOf(history[0].PreviousDate))
		assert.Equal(t, schedule.DateKey("2024-01-02"), schedule.KeyOf(history[1].PreviousDate))
		assert.Equal(t, 43, history[1].ActorID)
	})

	t.Run("target already holds a session", func(t *testing.T) {
		e, ids := newFixture()
		_, err := e.scheduleSvc.RescheduleSession(ctx, ids[0], move("2024-01-03"), 42)

		var ce *apperror.ConflictError
		require.ErrorAs(t, err, &ce)
		conflicts, ok := ce.Conflicts.([]model.Session)
		require.True(t, ok)
		assert.Equal(t, ids[1], conflicts[0].ID)
	})

	t.Run("target is a branch holiday", func(t *testing.T) {
		e, ids := newFixture()
		_, err := e.scheduleSvc.RescheduleSession(ctx, ids[0], move("2024-01-05"), 42)

		var ve *apperror.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "holiday", ve.Rule)
	})

	t.Run("completed session", func(t *testing.T) {
		e, ids := newFixture()
		e.db.sessions[ids[0]].Status = model.SessionStatusCompleted
		_, err := e.scheduleSvc.RescheduleSession(ctx, ids[0], move("2024-01-02"), 42)

		var ise *apperror.InvalidStateTransitionError
		assert.ErrorAs(t, err, &ise)
	})

	t.Run("same day", func(t *testing.T) {
		e, ids := newFixture()
		_, err := e.scheduleSvc.RescheduleSession(ctx, ids[0], move("2024-01-01"), 42)

		var ve *apperror.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestScheduleService_SendReminders(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2024-01-02"))

	running := e.db.addClass(monWedClass("2024-01-01", 2))
	due := e.db.addSessions(running, date("2024-01-01"), date("2024-01-03"))

	closedClass := monWedClass("2024-01-01", 2)
	closedClass.Status = model.ClassStatusCancelled
	closed := e.db.addClass(closedClass)
	e.db.addSessions(closed, date("2024-01-01"), date("2024-01-03"))

	result, err := e.scheduleSvc.SendReminders(ctx, date("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []int{due[1]}, e.notifier.reminders)

	e.notifier.err = errBoom
	result, err = e.scheduleSvc.SendReminders(ctx, date("2024-01-03"))
	require.NoError(t, err)
	assert.False(t, result.OK())
}
