package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/database"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

const sessionColumns = `id, class_id, session_number, session_date, status, original_date,
	rescheduled_by, rescheduled_at, reschedule_reason, created_at, updated_at`

// SessionRepository handles session, attendance and reschedule-log data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var (
		s             model.Session
		rescheduledBy pgtype.Int4
		rescheduledAt pgtype.Timestamptz
	)
	err := row.Scan(
		&s.ID, &s.ClassID, &s.SessionNumber, &s.SessionDate, &s.Status, &s.OriginalDate,
		&rescheduledBy, &rescheduledAt, &s.RescheduleReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.RescheduledBy = optionalInt(rescheduledBy)
	s.RescheduledAt = optionalTime(rescheduledAt)
	s.Attendance = []model.AttendanceRecord{}
	return &s, nil
}

// ListByClass retrieves a class's sessions in session-number order, with attendance.
func (r *SessionRepository) ListByClass(ctx context.Context, classID int) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM class_sessions WHERE class_id = $1 ORDER BY session_number`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	index := make(map[int]int)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		index[s.ID] = len(sessions)
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attRows, err := r.pool.Query(ctx,
		`SELECT a.session_id, a.student_id, a.status, a.note, a.feedback, a.checked_by, a.checked_at
		 FROM session_attendances a
		 JOIN class_sessions s ON s.id = a.session_id
		 WHERE s.class_id = $1
		 ORDER BY a.session_id, a.student_id`, classID)
	if err != nil {
		return nil, err
	}
	defer attRows.Close()

	for attRows.Next() {
		var (
			sessionID int
			a         model.AttendanceRecord
		)
		if err := attRows.Scan(&sessionID, &a.StudentID, &a.Status, &a.Note, &a.Feedback, &a.CheckedBy, &a.CheckedAt); err != nil {
			return nil, err
		}
		if i, ok := index[sessionID]; ok {
			sessions[i].Attendance = append(sessions[i].Attendance, a)
		}
	}
	return sessions, attRows.Err()
}

// GetByID retrieves a session with its attendance.
func (r *SessionRepository) GetByID(ctx context.Context, id int) (*model.Session, error) {
	return getSession(ctx, r.pool, id)
}

func getSession(ctx context.Context, q querier, id int) (*model.Session, error) {
	s, err := scanSession(q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM class_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "session", id)
	}

	rows, err := q.Query(ctx,
		`SELECT student_id, status, note, feedback, checked_by, checked_at
		 FROM session_attendances WHERE session_id = $1 ORDER BY student_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.AttendanceRecord
		if err := rows.Scan(&a.StudentID, &a.Status, &a.Note, &a.Feedback, &a.CheckedBy, &a.CheckedAt); err != nil {
			return nil, err
		}
		s.Attendance = append(s.Attendance, a)
	}
	return s, rows.Err()
}

// ApplyCalendar applies plan to a class's sessions in one transaction.
func (r *SessionRepository) ApplyCalendar(ctx context.Context, classID int, plan schedule.CalendarPlan) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int
		err := tx.QueryRow(ctx, `SELECT id FROM classes WHERE id = $1 FOR UPDATE`, classID).Scan(&locked)
		if err != nil {
			return notFound(err, "class", classID)
		}
		return applyCalendar(ctx, tx, classID, plan)
	})
}

// applyCalendar re-dates, drops and appends sessions in place. Rows the plan
// touches must still be free: scheduled, never moved by hand and unmarked.
// A dropped row is deleted unless a makeup refers to it, in which case it is
// cancelled so the makeup keeps its original session.
func applyCalendar(ctx context.Context, tx pgx.Tx, classID int, plan schedule.CalendarPlan) error {
	moveIDs := make([]int, len(plan.Moves))
	moveDates := make([]time.Time, len(plan.Moves))
	for i, m := range plan.Moves {
		moveIDs[i] = m.ID
		moveDates[i] = pgDate(m.Date)
	}
	touched := append(append([]int{}, moveIDs...), plan.Drops...)

	if len(touched) > 0 {
		if err := lockFreeSessions(ctx, tx, classID, touched); err != nil {
			return err
		}
	}

	if len(plan.Drops) > 0 {
		_, err := tx.Exec(ctx,
			`DELETE FROM class_sessions s
			 WHERE s.class_id = $1 AND s.id = ANY($2)
			   AND NOT EXISTS (SELECT 1 FROM makeup_classes m WHERE m.original_schedule_id = s.id)`,
			classID, plan.Drops)
		if err != nil {
			return fmt.Errorf("delete dropped sessions: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE class_sessions SET status = 'cancelled', updated_at = NOW()
			 WHERE class_id = $1 AND id = ANY($2)`, classID, plan.Drops)
		if err != nil {
			return fmt.Errorf("cancel dropped sessions: %w", err)
		}
	}

	if len(plan.Moves) > 0 {
		// Uniqueness of live dates is checked row by row, so the moved rows
		// leave the index before any of them takes a new day.
		_, err := tx.Exec(ctx,
			`UPDATE class_sessions SET status = 'cancelled' WHERE class_id = $1 AND id = ANY($2)`,
			classID, moveIDs)
		if err != nil {
			return fmt.Errorf("park moved sessions: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE class_sessions s
			 SET session_date = m.day, status = 'scheduled', updated_at = NOW()
			 FROM unnest($2::int[], $3::date[]) AS m(id, day)
			 WHERE s.class_id = $1 AND s.id = m.id`,
			classID, moveIDs, moveDates)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("class", fmt.Sprint(classID), "regenerated dates collide with a kept session")
			}
			return fmt.Errorf("move sessions: %w", err)
		}
	}

	if err := insertSessions(ctx, tx, classID, plan.Inserts); err != nil {
		return err
	}
	return syncEndDate(ctx, tx, classID)
}

// lockFreeSessions locks ids and fails when any of them was held, moved,
// cancelled or marked since the plan was made.
func lockFreeSessions(ctx context.Context, tx pgx.Tx, classID int, ids []int) error {
	rows, err := tx.Query(ctx,
		`SELECT id FROM class_sessions
		 WHERE class_id = $1 AND id = ANY($2) AND status = 'scheduled' AND original_date IS NULL
		 FOR UPDATE`, classID, ids)
	if err != nil {
		return err
	}
	free, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return err
	}

	var marked bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM session_attendances WHERE session_id = ANY($1))`, ids,
	).Scan(&marked)
	if err != nil {
		return err
	}
	if len(free) != len(ids) || marked {
		return apperror.Conflict("class", fmt.Sprint(classID), "sessions changed while the calendar was being rebuilt, retry")
	}
	return nil
}

// insertSessions bulk-loads new sessions using COPY.
func insertSessions(ctx context.Context, tx pgx.Tx, classID int, sessions []schedule.NewSession) error {
	if len(sessions) == 0 {
		return nil
	}
	rows := make([][]any, len(sessions))
	for i, n := range sessions {
		rows[i] = []any{classID, n.Number, pgDate(n.Date), string(model.SessionStatusScheduled)}
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"class_sessions"},
		[]string{"class_id", "session_number", "session_date", "status"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy sessions: %w", err)
	}
	return nil
}

// syncEndDate sets the class end date to its last live session.
func syncEndDate(ctx context.Context, q querier, classID int) error {
	_, err := q.Exec(ctx,
		`UPDATE classes SET end_date = (
			SELECT MAX(session_date) FROM class_sessions WHERE class_id = $1 AND status <> 'cancelled'
		 ), updated_at = NOW()
		 WHERE id = $1`, classID)
	if err != nil {
		return fmt.Errorf("sync end date: %w", err)
	}
	return nil
}

// Reschedule moves a session to newDate. original_date keeps the first date
// the session ever had; every move is appended to session_reschedule_logs.
func (r *SessionRepository) Reschedule(ctx context.Context, id int, newDate time.Time, reason string, actorID int) (*model.Session, error) {
	var out *model.Session
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			classID  int
			previous time.Time
		)
		err := tx.QueryRow(ctx,
			`SELECT class_id, session_date FROM class_sessions WHERE id = $1 FOR UPDATE`, id,
		).Scan(&classID, &previous)
		if err != nil {
			return notFound(err, "session", id)
		}

		_, err = tx.Exec(ctx,
			`UPDATE class_sessions
			 SET status = 'rescheduled', original_date = COALESCE(original_date, session_date),
			     session_date = $1, rescheduled_by = $2, rescheduled_at = NOW(),
			     reschedule_reason = $3, updated_at = NOW()
			 WHERE id = $4`,
			pgDate(newDate), actorID, reason, id)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("session", fmt.Sprint(id), "class already has a session on "+pgDate(newDate).Format("2006-01-02"))
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO session_reschedule_logs (session_id, previous_date, new_date, reason, actor_id)
			 VALUES ($1, $2, $3, $4, $5)`,
			id, previous, pgDate(newDate), reason, actorID)
		if err != nil {
			return fmt.Errorf("append reschedule log: %w", err)
		}
		if err := syncEndDate(ctx, tx, classID); err != nil {
			return err
		}

		out, err = getSession(ctx, tx, id)
		return err
	})
	return out, err
}

// ListReschedules retrieves a session's reschedule history, oldest first.
func (r *SessionRepository) ListReschedules(ctx context.Context, sessionID int) ([]model.RescheduleLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, previous_date, new_date, reason, actor_id, created_at
		 FROM session_reschedule_logs WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.RescheduleLog{}
	for rows.Next() {
		var l model.RescheduleLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.PreviousDate, &l.NewDate, &l.Reason, &l.ActorID, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// ReplaceAttendance swaps the session's attendance list and stores status.
func (r *SessionRepository) ReplaceAttendance(ctx context.Context, id int, records []model.AttendanceRecord, status model.SessionStatus) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE class_sessions SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperror.NotFound("session", id)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM session_attendances WHERE session_id = $1`, id); err != nil {
			return fmt.Errorf("clear attendance: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		rows := make([][]any, len(records))
		for i, a := range records {
			rows[i] = []any{id, a.StudentID, string(a.Status), a.Note, a.Feedback, a.CheckedBy, a.CheckedAt}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"session_attendances"},
			[]string{"session_id", "student_id", "status", "note", "feedback", "checked_by", "checked_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy attendance: %w", err)
		}
		return nil
	})
}

// ListOnDate retrieves the live sessions of running classes held on day.
func (r *SessionRepository) ListOnDate(ctx context.Context, day time.Time) ([]model.SessionReminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.session_number, s.session_date, c.id, c.name, c.branch_id, c.room_id,
		        c.teacher_id, c.start_time, c.end_time
		 FROM class_sessions s
		 JOIN classes c ON c.id = s.class_id
		 WHERE s.session_date = $1
		   AND s.status IN ('scheduled', 'rescheduled')
		   AND c.status IN ('published', 'started')
		 ORDER BY c.branch_id, c.start_time, s.id`, pgDate(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SessionReminder
	for rows.Next() {
		var (
			rm         model.SessionReminder
			start, end pgtype.Time
		)
		err := rows.Scan(&rm.SessionID, &rm.SessionNumber, &rm.SessionDate, &rm.ClassID, &rm.ClassName,
			&rm.BranchID, &rm.RoomID, &rm.TeacherID, &start, &end)
		if err != nil {
			return nil, err
		}
		rm.StartTime = timeOfDay(start)
		rm.EndTime = timeOfDay(end)
		out = append(out, rm)
	}
	return out, rows.Err()
}
