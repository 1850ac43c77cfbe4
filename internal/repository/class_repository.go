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

const classColumns = `id, name, description, subject_id, teacher_id, branch_id, room_id,
	start_date, end_date, total_sessions, days_of_week, start_time, end_time,
	max_students, min_students, enrolled_count, status, created_at, updated_at`

// ClassRepository handles class data access.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func scanClass(row pgx.Row) (*model.Class, error) {
	var (
		c          model.Class
		days       []int16
		start, end pgtype.Time
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.SubjectID, &c.TeacherID, &c.BranchID, &c.RoomID,
		&c.StartDate, &c.EndDate, &c.TotalSessions, &days, &start, &end,
		&c.MaxStudents, &c.MinStudents, &c.EnrolledCount, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.DaysOfWeek = weekdaysFromDB(days)
	c.StartTime = timeOfDay(start)
	c.EndTime = timeOfDay(end)
	return &c, nil
}

func collectClasses(rows pgx.Rows) ([]model.Class, error) {
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// GetByID retrieves a class by its ID.
func (r *ClassRepository) GetByID(ctx context.Context, id int) (*model.Class, error) {
	c, err := scanClass(r.pool.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "class", id)
	}
	return c, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO classes (name, description, subject_id, teacher_id, branch_id, room_id,
			start_date, total_sessions, days_of_week, start_time, end_time,
			max_students, min_students, enrolled_count, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Description, c.SubjectID, c.TeacherID, c.BranchID, c.RoomID,
		pgDate(c.StartDate), c.TotalSessions, weekdaysToDB(c.DaysOfWeek), pgTime(c.StartTime), pgTime(c.EndTime),
		c.MaxStudents, c.MinStudents, c.EnrolledCount, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapClassWriteErr(err)
}

// Update writes the editable fields of c, guarded by the status it was read with.
func (r *ClassRepository) Update(ctx context.Context, c *model.Class) error {
	return updateClass(ctx, r.pool, c)
}

// UpdateWithSessions writes c and applies plan to its sessions in one
// transaction. The class row update holds the lock for the calendar change.
func (r *ClassRepository) UpdateWithSessions(ctx context.Context, c *model.Class, plan schedule.CalendarPlan) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := updateClass(ctx, tx, c); err != nil {
			return err
		}
		return applyCalendar(ctx, tx, c.ID, plan)
	})
}

func updateClass(ctx context.Context, q querier, c *model.Class) error {
	tag, err := q.Exec(ctx,
		`UPDATE classes SET name = $1, description = $2, subject_id = $3, teacher_id = $4,
			branch_id = $5, room_id = $6, start_date = $7, total_sessions = $8, days_of_week = $9,
			start_time = $10, end_time = $11, max_students = $12, min_students = $13,
			enrolled_count = $14, updated_at = NOW()
		 WHERE id = $15 AND status = $16`,
		c.Name, c.Description, c.SubjectID, c.TeacherID,
		c.BranchID, c.RoomID, pgDate(c.StartDate), c.TotalSessions, weekdaysToDB(c.DaysOfWeek),
		pgTime(c.StartTime), pgTime(c.EndTime), c.MaxStudents, c.MinStudents,
		c.EnrolledCount, c.ID, c.Status,
	)
	if err != nil {
		return mapClassWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.Conflict("class", fmt.Sprint(c.ID), "class was modified concurrently, reload and retry")
	}
	return nil
}

// Publish moves a draft class to published and stores its generated calendar.
func (r *ClassRepository) Publish(ctx context.Context, id int, dates []time.Time) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := setStatus(ctx, tx, id, model.ClassStatusDraft, model.ClassStatusPublished); err != nil {
			return err
		}
		var existing int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM class_sessions WHERE class_id = $1`, id).Scan(&existing); err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}
		if existing > 0 {
			return apperror.Conflict("class", fmt.Sprint(id), "class already has sessions")
		}
		sessions := make([]schedule.NewSession, len(dates))
		for i, d := range dates {
			sessions[i] = schedule.NewSession{Number: i + 1, Date: d}
		}
		if err := insertSessions(ctx, tx, id, sessions); err != nil {
			return err
		}
		return syncEndDate(ctx, tx, id)
	})
}

// SetStatus moves a class from one status to another. It fails with an
// InvalidStateTransitionError when the class is no longer in from.
func (r *ClassRepository) SetStatus(ctx context.Context, id int, from, to model.ClassStatus) error {
	return setStatus(ctx, r.pool, id, from, to)
}

func setStatus(ctx context.Context, q querier, id int, from, to model.ClassStatus) error {
	tag, err := q.Exec(ctx,
		`UPDATE classes SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return mapClassWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.InvalidTransition("class", id, string(from), string(to), "class is no longer "+string(from))
	}
	return nil
}

// Cancel cancels the class and every live session dated today or later.
func (r *ClassRepository) Cancel(ctx context.Context, id int, from model.ClassStatus, today time.Time) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := setStatus(ctx, tx, id, from, model.ClassStatusCancelled); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE class_sessions SET status = 'cancelled', updated_at = NOW()
			 WHERE class_id = $1 AND session_date >= $2 AND status IN ('scheduled', 'rescheduled')`,
			id, pgDate(today))
		if err != nil {
			return fmt.Errorf("cancel sessions: %w", err)
		}
		return nil
	})
}

// EndNow completes the class early according to plan.
func (r *ClassRepository) EndNow(ctx context.Context, id int, from model.ClassStatus, plan schedule.EndPlan) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE classes SET status = 'completed', end_date = $1, updated_at = NOW()
			 WHERE id = $2 AND status = $3`,
			pgDate(plan.EndDate), id, from)
		if err != nil {
			return mapClassWriteErr(err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.InvalidTransition("class", id, string(from), string(model.ClassStatusCompleted), "class is no longer "+string(from))
		}
		if len(plan.CancelledIDs) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE class_sessions SET status = 'cancelled', updated_at = NOW()
			 WHERE class_id = $1 AND id = ANY($2)`,
			id, plan.CancelledIDs)
		if err != nil {
			return fmt.Errorf("cancel future sessions: %w", err)
		}
		return nil
	})
}

// ListByStatus retrieves every class in one of statuses.
func (r *ClassRepository) ListByStatus(ctx context.Context, statuses ...model.ClassStatus) ([]model.Class, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+classColumns+` FROM classes WHERE status = ANY($1::text[]) ORDER BY id`, names)
	if err != nil {
		return nil, err
	}
	return collectClasses(rows)
}

// ListBlocking retrieves the classes that can still occupy the given room or
// teacher. Pass teacherID 0 to check the room only.
func (r *ClassRepository) ListBlocking(ctx context.Context, branchID, roomID, teacherID int) ([]model.Class, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+classColumns+` FROM classes
		 WHERE status IN ('draft', 'published', 'started')
		   AND ((branch_id = $1 AND room_id = $2) OR teacher_id = $3)
		 ORDER BY start_date, id`,
		branchID, roomID, teacherID)
	if err != nil {
		return nil, err
	}
	return collectClasses(rows)
}

func mapClassWriteErr(err error) error {
	if pgCode(err) == pgCheckViolation {
		return apperror.Validation("class", "constraint", err.Error())
	}
	return err
}
