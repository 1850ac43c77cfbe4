package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
)

func mark(studentID int, status model.AttendanceStatus) model.AttendanceRecord {
	return model.AttendanceRecord{StudentID: studentID, Status: status}
}

func TestAttendanceService_RecordAttendanceDerivesStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		records []model.AttendanceRecord
		want    model.SessionStatus
	}{
		{name: "nobody recorded", records: nil, want: model.SessionStatusScheduled},
		{name: "only absences", records: []model.AttendanceRecord{mark(1, model.AttendanceAbsent)}, want: model.SessionStatusScheduled},
		{name: "someone attended", records: []model.AttendanceRecord{mark(1, model.AttendanceAbsent), mark(2, model.AttendancePresent)}, want: model.SessionStatusCompleted},
		{name: "excused absence counts as held", records: []model.AttendanceRecord{mark(1, model.AttendanceSick)}, want: model.SessionStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, ids := makeupFixture("2024-01-12")

			session, err := e.attendSvc.RecordAttendance(ctx, ids[0], tt.records, 77)
			require.NoError(t, err)
			assert.Equal(t, tt.want, session.Status)
			require.Len(t, session.Attendance, len(tt.records))
			for _, r := range session.Attendance {
				assert.Equal(t, 77, r.CheckedBy)
				assert.False(t, r.CheckedAt.IsZero())
			}

			require.Len(t, e.notifier.events, 1)
			assert.Equal(t, model.EventAttendanceRecorded, e.notifier.events[0].Type)
		})
	}
}

func TestAttendanceService_RecordAttendanceRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate student", func(t *testing.T) {
		e, _, ids := makeupFixture("2024-01-12")
		_, err := e.attendSvc.RecordAttendance(ctx, ids[0], []model.AttendanceRecord{
			mark(1, model.AttendancePresent), mark(1, model.AttendanceAbsent),
		}, 77)
		var ve *apperror.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "records[1].student_id", ve.Field)
	})

	t.Run("cancelled session", func(t *testing.T) {
		e, _, ids := makeupFixture("2024-01-12")
		e.db.sessions[ids[0]].Status = model.SessionStatusCancelled
		_, err := e.attendSvc.RecordAttendance(ctx, ids[0], []model.AttendanceRecord{mark(1, model.AttendancePresent)}, 77)
		var ise *apperror.InvalidStateTransitionError
		assert.ErrorAs(t, err, &ise)
	})

	t.Run("cancelled class", func(t *testing.T) {
		e, classID, ids := makeupFixture("2024-01-12")
		e.db.classes[classID].Status = model.ClassStatusCancelled
		_, err := e.attendSvc.RecordAttendance(ctx, ids[0], []model.AttendanceRecord{mark(1, model.AttendancePresent)}, 77)
		var ise *apperror.InvalidStateTransitionError
		assert.ErrorAs(t, err, &ise)
	})

	t.Run("unknown session", func(t *testing.T) {
		e, _, _ := makeupFixture("2024-01-12")
		_, err := e.attendSvc.RecordAttendance(ctx, 9999, nil, 77)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestAttendanceService_CorrectionWithdrawsMakeups(t *testing.T) {
	ctx := context.Background()
	e, classID, ids := makeupFixture("2024-01-12")

	const other = 502
	pending, err := e.makeupSvc.Create(ctx, makeupRequest(classID, ids[2]), 42)
	require.NoError(t, err)

	req := makeupRequest(classID, ids[2])
	req.StudentID = other
	placed, err := e.makeupSvc.Create(ctx, req, 42)
	require.NoError(t, err)
	_, err = e.makeupSvc.Schedule(ctx, placed.ID, slotRequest("2024-01-15", 8), 77)
	require.NoError(t, err)

	session, err := e.attendSvc.RecordAttendance(ctx, ids[2], []model.AttendanceRecord{
		mark(student, model.AttendancePresent),
		mark(other, model.AttendanceLate),
	}, 77)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, session.Status)

	_, err = e.makeupSvc.Get(ctx, pending.ID)
	assert.True(t, apperror.IsNotFound(err), "a pending makeup is deleted")

	voided, err := e.makeupSvc.Get(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MakeupStatusCancelled, voided.Status)
	assert.Equal(t, "original attendance corrected to attended", voided.CancelReason)

	actions := map[string]string{}
	for _, ev := range e.audit.events {
		actions[ev.EntityID] = ev.Action
	}
	assert.Equal(t, map[string]string{
		pending.ID.String(): model.AuditMakeupDeleted,
		placed.ID.String():  model.AuditMakeupVoided,
	}, actions)
}

func TestAttendanceService_NoCorrectionKeepsMakeup(t *testing.T) {
	ctx := context.Background()
	e, classID, ids := makeupFixture("2024-01-12")

	m, err := e.makeupSvc.Create(ctx, makeupRequest(classID, ids[2]), 42)
	require.NoError(t, err)

	_, err = e.attendSvc.RecordAttendance(ctx, ids[2], []model.AttendanceRecord{
		mark(student, model.AttendanceAbsent),
		mark(502, model.AttendancePresent),
	}, 77)
	require.NoError(t, err)

	kept, err := e.makeupSvc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MakeupStatusPending, kept.Status)
	assert.Empty(t, e.audit.events)
}

func TestAttendanceService_StudentAttendanceSummary(t *testing.T) {
	ctx := context.Background()
	e, classID, ids := makeupFixture("2024-01-12")

	e.db.sessions[ids[0]].Attendance = []model.AttendanceRecord{mark(student, model.AttendancePresent)}
	e.db.sessions[ids[1]].Attendance = []model.AttendanceRecord{mark(student, model.AttendanceLate)}
	e.db.sessions[ids[2]].Attendance = []model.AttendanceRecord{mark(student, model.AttendanceAbsent)}
	e.db.sessions[ids[3]].Status = model.SessionStatusCancelled

	e.addMakeup(model.Makeup{
		StudentID: student, OriginalClassID: classID, OriginalScheduleID: ids[2], Status: model.MakeupStatusCompleted,
		Attendance: &model.MakeupAttendance{Status: model.MakeupAttendancePresent},
	})
	e.addMakeup(model.Makeup{
		StudentID: student, OriginalClassID: classID, OriginalScheduleID: ids[1], Status: model.MakeupStatusCancelled,
	})
	e.addMakeup(model.Makeup{
		StudentID: student, OriginalClassID: classID, OriginalScheduleID: ids[0], Status: model.MakeupStatusPending,
	})

	sum, err := e.attendSvc.StudentAttendanceSummary(ctx, classID, student)
	require.NoError(t, err)
	assert.Equal(t, &model.AttendanceSummary{
		ClassID:           classID,
		StudentID:         student,
		TotalSessions:     3,
		Attended:          2,
		Missed:            1,
		MakeupsPending:    1,
		MakeupsAttended:   1,
		EffectiveAttended: 3,
	}, sum)

	_, err = e.attendSvc.StudentAttendanceSummary(ctx, 9999, student)
	assert.True(t, apperror.IsNotFound(err))
}
