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

func classRequest(start string) model.CreateClassRequest {
	return model.CreateClassRequest{
		Name:          "Math A",
		SubjectID:     1,
		TeacherID:     11,
		BranchID:      1,
		RoomID:        7,
		StartDate:     start,
		TotalSessions: 3,
		DaysOfWeek:    []int{1, 3},
		StartTime:     "10:00",
		EndTime:       "11:00",
		MaxStudents:   10,
	}
}

func TestClassService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*model.CreateClassRequest)
		wantErr bool
	}{
		{name: "valid draft", mutate: func(*model.CreateClassRequest) {}},
		{name: "end before start", mutate: func(r *model.CreateClassRequest) { r.StartTime, r.EndTime = "11:00", "10:00" }, wantErr: true},
		{name: "min above max", mutate: func(r *model.CreateClassRequest) { r.MinStudents = 20 }, wantErr: true},
		{name: "bad start date", mutate: func(r *model.CreateClassRequest) { r.StartDate = "2024-13-01" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(date("2023-12-20"))
			req := classRequest("2024-01-01")
			tt.mutate(&req)

			c, err := e.classSvc.Create(ctx, req)
			if tt.wantErr {
				var ve *apperror.ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.ClassStatusDraft, c.Status)
			assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, c.DaysOfWeek)

			sessions, err := e.sessions.ListByClass(ctx, c.ID)
			require.NoError(t, err)
			assert.Empty(t, sessions, "drafts have no calendar")
		})
	}
}

func TestClassService_PublishGeneratesSessions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))
	e.db.holidays = []model.Holiday{{ID: 1, Date: date("2024-01-03"), Type: model.HolidayTypeNational}}

	c, err := e.classSvc.Create(ctx, classRequest("2024-01-01"))
	require.NoError(t, err)

	published, err := e.classSvc.TransitionClassStatus(ctx, c.ID, model.TransitionClassRequest{Status: model.ClassStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, model.ClassStatusPublished, published.Status)
	require.NotNil(t, published.EndDate)
	assert.Equal(t, schedule.DateKey("2024-01-10"), schedule.KeyOf(*published.EndDate))

	sessions, err := e.scheduleSvc.ListSessions(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []schedule.DateKey{"2024-01-01", "2024-01-08", "2024-01-10"}, sessionKeys(sessions))

	require.Len(t, e.notifier.events, 1)
	assert.Equal(t, model.EventClassStatusChanged, e.notifier.events[0].Type)
	assert.Equal(t, string(model.ClassStatusPublished), e.notifier.events[0].Status)
}

func TestClassService_PublishRejectsRoomConflict(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))

	booked := e.db.addClass(monWedClass("2024-01-01", 3))
	e.db.addSessions(booked, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))

	// A draft in the same room blocks too: it holds the room once published.
	other := monWedClass("2024-01-01", 3)
	other.Status = model.ClassStatusDraft
	draft := e.db.addClass(other)

	// A completed class no longer holds the room.
	done := monWedClass("2024-01-01", 3)
	done.Status = model.ClassStatusCompleted
	e.db.addClass(done)

	req := classRequest("2024-01-03")
	req.TeacherID = 12
	req.StartTime, req.EndTime = "10:30", "11:30"
	c, err := e.classSvc.Create(ctx, req)
	require.NoError(t, err)

	_, err = e.classSvc.TransitionClassStatus(ctx, c.ID, model.TransitionClassRequest{Status: model.ClassStatusPublished})
	var ce *apperror.ConflictError
	require.ErrorAs(t, err, &ce)
	conflicts, ok := ce.Conflicts.([]schedule.ClassConflict)
	require.True(t, ok)
	assert.ElementsMatch(t, []int{booked, draft}, conflictIDs(conflicts))

	report, err := e.availSvc.CheckRoomAvailability(ctx, model.RoomAvailabilityRequest{
		BranchID: 1, RoomID: 7, DaysOfWeek: []int{1, 3}, StartTime: "10:30", EndTime: "11:30",
		StartDate: "2024-01-03", EndDate: "2024-01-10", ExcludeClassID: c.ID,
	})
	require.NoError(t, err)
	assert.False(t, report.Available)
	assert.ElementsMatch(t, conflictIDs(conflicts), conflictIDs(report.Conflicts), "publish and the room report agree")

	stored, err := e.classes.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClassStatusDraft, stored.Status)
}

func conflictIDs(conflicts []schedule.ClassConflict) []int {
	out := make([]int, len(conflicts))
	for i, c := range conflicts {
		out[i] = c.ClassID
	}
	return out
}

func TestClassService_UpdateRespectsEditPermissions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))

	c := monWedClass("2024-01-01", 3)
	c.EnrolledCount = 2
	id := e.db.addClass(c)
	e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))

	req := model.UpdateClassRequest{CreateClassRequest: classRequest("2024-01-01")}
	req.DaysOfWeek = []int{2, 4}
	_, err := e.classSvc.Update(ctx, id, req)
	var ve *apperror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "locked", ve.Rule)

	req = model.UpdateClassRequest{CreateClassRequest: classRequest("2024-01-01")}
	req.Name = "Math A (evening)"
	updated, err := e.classSvc.Update(ctx, id, req)
	require.NoError(t, err)
	assert.Equal(t, "Math A (evening)", updated.Name)

	sessions, err := e.sessions.ListByClass(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []schedule.DateKey{"2024-01-01", "2024-01-03", "2024-01-08"}, sessionKeys(sessions))
}

func TestClassService_UpdateRegeneratesCalendar(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))

	id := e.db.addClass(monWedClass("2024-01-01", 3))
	e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))

	req := model.UpdateClassRequest{CreateClassRequest: classRequest("2024-01-01")}
	req.DaysOfWeek = []int{2, 4}
	updated, err := e.classSvc.Update(ctx, id, req)
	require.NoError(t, err)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, schedule.DateKey("2024-01-09"), schedule.KeyOf(*updated.EndDate))

	sessions, err := e.sessions.ListByClass(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []schedule.DateKey{"2024-01-02", "2024-01-04", "2024-01-09"}, sessionKeys(sessions))
}

func TestClassService_ShorterCourseKeepsReferencedSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2023-12-20"))

	c := monWedClass("2024-01-01", 4)
	id := e.db.addClass(c)
	ids := e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"), date("2024-01-10"))
	e.addMakeup(model.Makeup{
		StudentID: student, OriginalClassID: id, OriginalScheduleID: ids[3], Status: model.MakeupStatusCancelled,
	})

	req := model.UpdateClassRequest{CreateClassRequest: classRequest("2024-01-01")}
	req.TotalSessions = 2
	updated, err := e.classSvc.Update(ctx, id, req)
	require.NoError(t, err)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, schedule.DateKey("2024-01-03"), schedule.KeyOf(*updated.EndDate))

	_, err = e.sessions.GetByID(ctx, ids[2])
	assert.True(t, apperror.IsNotFound(err), "an unreferenced surplus session is removed")

	kept, err := e.sessions.GetByID(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelled, kept.Status, "a session a makeup points at is cancelled instead")

	first, err := e.sessions.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, schedule.DateKey("2024-01-01"), schedule.KeyOf(first.SessionDate))
}

func TestClassService_EndClassNow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2024-01-05"))

	c := monWedClass("2024-01-01", 4)
	c.Status = model.ClassStatusStarted
	id := e.db.addClass(c)
	ids := e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"), date("2024-01-10"))

	ended, err := e.classSvc.EndClassNow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ClassStatusCompleted, ended.Status)
	require.NotNil(t, ended.EndDate)
	assert.Equal(t, schedule.DateKey("2024-01-03"), schedule.KeyOf(*ended.EndDate))

	want := map[int]model.SessionStatus{
		ids[0]: model.SessionStatusScheduled,
		ids[1]: model.SessionStatusScheduled,
		ids[2]: model.SessionStatusCancelled,
		ids[3]: model.SessionStatusCancelled,
	}
	for sid, status := range want {
		s, err := e.sessions.GetByID(ctx, sid)
		require.NoError(t, err)
		assert.Equal(t, status, s.Status, "session %d", sid)
	}

	_, err = e.classSvc.EndClassNow(ctx, id)
	var ise *apperror.InvalidStateTransitionError
	assert.ErrorAs(t, err, &ise)
}

func TestClassService_Cancel(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2024-01-05"))

	id := e.db.addClass(monWedClass("2024-01-01", 4))
	e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"), date("2024-01-10"))

	cancelled, err := e.classSvc.TransitionClassStatus(ctx, id, model.TransitionClassRequest{
		Status: model.ClassStatusCancelled, Reason: "not enough students",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ClassStatusCancelled, cancelled.Status)

	sessions, err := e.sessions.ListByClass(ctx, id)
	require.NoError(t, err)
	statuses := make([]model.SessionStatus, len(sessions))
	for i, s := range sessions {
		statuses[i] = s.Status
	}
	assert.Equal(t, []model.SessionStatus{
		model.SessionStatusScheduled, model.SessionStatusScheduled,
		model.SessionStatusCancelled, model.SessionStatusCancelled,
	}, statuses)

	_, err = e.classSvc.TransitionClassStatus(ctx, id, model.TransitionClassRequest{Status: model.ClassStatusPublished})
	var ise *apperror.InvalidStateTransitionError
	assert.ErrorAs(t, err, &ise)
}

func TestClassService_ManualCompleteNeedsFinishedCalendar(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2024-01-05"))

	c := monWedClass("2024-01-01", 3)
	c.Status = model.ClassStatusStarted
	id := e.db.addClass(c)
	e.db.addSessions(id, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))

	_, err := e.classSvc.TransitionClassStatus(ctx, id, model.TransitionClassRequest{Status: model.ClassStatusCompleted})
	var ise *apperror.InvalidStateTransitionError
	assert.ErrorAs(t, err, &ise)
}

func TestClassService_Sweeps(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2024-01-05"))

	due := e.db.addClass(monWedClass("2024-01-01", 3))
	e.db.addSessions(due, date("2024-01-01"), date("2024-01-03"), date("2024-01-08"))
	later := e.db.addClass(monWedClass("2024-01-15", 2))
	e.db.addSessions(later, date("2024-01-15"), date("2024-01-17"))

	result, err := e.classSvc.StartDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.True(t, result.OK())

	started, _ := e.classes.GetByID(ctx, due)
	assert.Equal(t, model.ClassStatusStarted, started.Status)
	waiting, _ := e.classes.GetByID(ctx, later)
	assert.Equal(t, model.ClassStatusPublished, waiting.Status)

	finished := monWedClass("2023-12-04", 2)
	finished.Status = model.ClassStatusStarted
	done := e.db.addClass(finished)
	e.db.addSessions(done, date("2023-12-04"), date("2023-12-06"))

	result, err = e.classSvc.CompleteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	completed, _ := e.classes.GetByID(ctx, done)
	assert.Equal(t, model.ClassStatusCompleted, completed.Status)
	running, _ := e.classes.GetByID(ctx, due)
	assert.Equal(t, model.ClassStatusStarted, running.Status, "a class with upcoming sessions keeps running")
}

func TestClassService_GetReportsPermissions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(date("2024-01-05"))

	c := monWedClass("2024-01-01", 3)
	c.Status = model.ClassStatusStarted
	id := e.db.addClass(c)

	got, err := e.classSvc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.EditPermissions{BasicInfo: true, Status: true}, got.Permissions)

	_, err = e.classSvc.Get(ctx, 999)
	assert.True(t, apperror.IsNotFound(err))
}
