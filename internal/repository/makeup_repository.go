package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/database"
	"github.com/tutorhub/class-engine/internal/model"
)

const makeupColumns = `id, student_id, original_class_id, original_schedule_id, status, trigger_status,
	reason, requested_by, policy_bypassed,
	makeup_date, makeup_start_time, makeup_end_time, makeup_teacher_id, makeup_branch_id, makeup_room_id,
	confirmed_by, confirmed_at,
	attendance_status, attendance_note, attendance_checked_by, attendance_checked_at,
	cancel_reason, cancelled_by, cancelled_at,
	student_name, class_name, branch_name, created_at, updated_at`

// MakeupRepository handles makeup class data access.
type MakeupRepository struct {
	pool *pgxpool.Pool
}

// NewMakeupRepository creates a new MakeupRepository.
func NewMakeupRepository(pool *pgxpool.Pool) *MakeupRepository {
	return &MakeupRepository{pool: pool}
}

// makeupRow mirrors the nullable columns of makeup_classes.
type makeupRow struct {
	date                pgtype.Date
	startTime, endTime  pgtype.Time
	teacherID, branchID pgtype.Int4
	roomID              pgtype.Int4
	confirmedBy         pgtype.Int4
	confirmedAt         pgtype.Timestamptz
	attStatus, attNote  pgtype.Text
	attCheckedBy        pgtype.Int4
	attCheckedAt        pgtype.Timestamptz
	cancelReason        pgtype.Text
	cancelledBy         pgtype.Int4
	cancelledAt         pgtype.Timestamptz
}

func scanMakeup(row pgx.Row) (*model.Makeup, error) {
	var (
		m  model.Makeup
		nr makeupRow
	)
	err := row.Scan(
		&m.ID, &m.StudentID, &m.OriginalClassID, &m.OriginalScheduleID, &m.Status, &m.TriggerStatus,
		&m.Reason, &m.RequestedBy, &m.PolicyBypassed,
		&nr.date, &nr.startTime, &nr.endTime, &nr.teacherID, &nr.branchID, &nr.roomID,
		&nr.confirmedBy, &nr.confirmedAt,
		&nr.attStatus, &nr.attNote, &nr.attCheckedBy, &nr.attCheckedAt,
		&nr.cancelReason, &nr.cancelledBy, &nr.cancelledAt,
		&m.StudentName, &m.ClassName, &m.BranchName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nr.date.Valid {
		m.Schedule = &model.MakeupSchedule{
			Date:      nr.date.Time,
			StartTime: timeOfDay(nr.startTime),
			EndTime:   timeOfDay(nr.endTime),
			TeacherID: int(nr.teacherID.Int32),
			BranchID:  int(nr.branchID.Int32),
			RoomID:    int(nr.roomID.Int32),
		}
	}
	m.ConfirmedBy = optionalInt(nr.confirmedBy)
	m.ConfirmedAt = optionalTime(nr.confirmedAt)
	if nr.attStatus.Valid {
		m.Attendance = &model.MakeupAttendance{
			Status:    model.MakeupAttendanceStatus(nr.attStatus.String),
			Note:      nr.attNote.String,
			CheckedBy: int(nr.attCheckedBy.Int32),
			CheckedAt: nr.attCheckedAt.Time,
		}
	}
	m.CancelReason = nr.cancelReason.String
	m.CancelledBy = optionalInt(nr.cancelledBy)
	m.CancelledAt = optionalTime(nr.cancelledAt)
	return &m, nil
}

// makeupParams flattens the optional parts of m into column parameters, in
// makeupColumns order starting at makeup_date.
func makeupParams(m *model.Makeup) []any {
	var nr makeupRow
	if s := m.Schedule; s != nil {
		nr.date = pgtype.Date{Time: pgDate(s.Date), Valid: true}
		nr.startTime = pgTime(s.StartTime)
		nr.endTime = pgTime(s.EndTime)
		nr.teacherID = intParam(&s.TeacherID)
		nr.branchID = intParam(&s.BranchID)
		nr.roomID = intParam(&s.RoomID)
	}
	nr.confirmedBy = intParam(m.ConfirmedBy)
	nr.confirmedAt = timeParam(m.ConfirmedAt)
	if a := m.Attendance; a != nil {
		nr.attStatus = pgtype.Text{String: string(a.Status), Valid: true}
		nr.attNote = pgtype.Text{String: a.Note, Valid: true}
		nr.attCheckedBy = intParam(&a.CheckedBy)
		nr.attCheckedAt = timeParam(&a.CheckedAt)
	}
	if m.CancelReason != "" {
		nr.cancelReason = pgtype.Text{String: m.CancelReason, Valid: true}
	}
	nr.cancelledBy = intParam(m.CancelledBy)
	nr.cancelledAt = timeParam(m.CancelledAt)

	return []any{
		nr.date, nr.startTime, nr.endTime, nr.teacherID, nr.branchID, nr.roomID,
		nr.confirmedBy, nr.confirmedAt,
		nr.attStatus, nr.attNote, nr.attCheckedBy, nr.attCheckedAt,
		nr.cancelReason, nr.cancelledBy, nr.cancelledAt,
	}
}

// CreateWithinLimit inserts m as a pending makeup. Concurrent requests for the
// same student and class are serialized with a transaction-scoped advisory
// lock; gate receives the number of live makeups already held and may veto the
// insert. The original session's attendance is overwritten to absent with note.
func (r *MakeupRepository) CreateWithinLimit(ctx context.Context, m *model.Makeup, gate func(active int) error, note string) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(m.StudentID), int32(m.OriginalClassID)); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}

		var existing uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM makeup_classes
			 WHERE student_id = $1 AND original_class_id = $2 AND original_schedule_id = $3 AND status <> 'cancelled'`,
			m.StudentID, m.OriginalClassID, m.OriginalScheduleID,
		).Scan(&existing)
		if err == nil {
			return duplicateMakeup(m)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		var active int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM makeup_classes
			 WHERE student_id = $1 AND original_class_id = $2 AND status <> 'cancelled'`,
			m.StudentID, m.OriginalClassID,
		).Scan(&active)
		if err != nil {
			return err
		}
		if err := gate(active); err != nil {
			return err
		}

		args := []any{
			m.ID, m.StudentID, m.OriginalClassID, m.OriginalScheduleID, m.Status, m.TriggerStatus,
			m.Reason, m.RequestedBy, m.PolicyBypassed,
		}
		args = append(args, makeupParams(m)...)
		args = append(args, m.StudentName, m.ClassName, m.BranchName)
		err = tx.QueryRow(ctx,
			`INSERT INTO makeup_classes (`+strings.TrimSuffix(makeupColumns, ", created_at, updated_at")+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			         $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
			 RETURNING created_at, updated_at`, args...,
		).Scan(&m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return duplicateMakeup(m)
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO session_attendances (session_id, student_id, status, note, checked_by, checked_at)
			 VALUES ($1, $2, 'absent', $3, $4, NOW())
			 ON CONFLICT (session_id, student_id)
			 DO UPDATE SET status = 'absent', note = EXCLUDED.note`,
			m.OriginalScheduleID, m.StudentID, note, m.RequestedBy)
		if err != nil {
			return fmt.Errorf("mark original attendance: %w", err)
		}
		return nil
	})
}

func duplicateMakeup(m *model.Makeup) error {
	return apperror.Conflict("makeup",
		fmt.Sprintf("student %d/session %d", m.StudentID, m.OriginalScheduleID),
		"a makeup already exists for this session")
}

// GetByID retrieves a makeup.
func (r *MakeupRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Makeup, error) {
	m, err := scanMakeup(r.pool.QueryRow(ctx, `SELECT `+makeupColumns+` FROM makeup_classes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "makeup", id)
	}
	return m, nil
}

// FindActive retrieves the live makeup of a student for one original session.
func (r *MakeupRepository) FindActive(ctx context.Context, studentID, scheduleID int) (*model.Makeup, error) {
	m, err := scanMakeup(r.pool.QueryRow(ctx,
		`SELECT `+makeupColumns+` FROM makeup_classes
		 WHERE student_id = $1 AND original_schedule_id = $2 AND status <> 'cancelled'`,
		studentID, scheduleID))
	if err != nil {
		return nil, notFound(err, "makeup", fmt.Sprintf("student %d/session %d", studentID, scheduleID))
	}
	return m, nil
}

// List retrieves makeups matching filter with the total count for pagination.
func (r *MakeupRepository) List(ctx context.Context, filter model.MakeupFilter) ([]model.Makeup, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.StudentID > 0 {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.ClassID > 0 {
		add("original_class_id = $%d", filter.ClassID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	query := `SELECT ` + makeupColumns + `, COUNT(*) OVER() FROM makeup_classes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	if filter.PerPage > 0 {
		page := max(filter.Page, 1)
		args = append(args, filter.PerPage, (page-1)*filter.PerPage)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	makeups := []model.Makeup{}
	total := 0
	for rows.Next() {
		m, err := scanMakeup(countingRow{row: rows, total: &total})
		if err != nil {
			return nil, 0, err
		}
		makeups = append(makeups, *m)
	}
	return makeups, total, rows.Err()
}

// countingRow appends the window COUNT(*) column to a makeup scan.
type countingRow struct {
	row   pgx.Row
	total *int
}

func (c countingRow) Scan(dest ...any) error {
	return c.row.Scan(append(dest, c.total)...)
}

// ListByStudentClass retrieves all makeups of a student in a class, cancelled included.
func (r *MakeupRepository) ListByStudentClass(ctx context.Context, studentID, classID int) ([]model.Makeup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+makeupColumns+` FROM makeup_classes
		 WHERE student_id = $1 AND original_class_id = $2 ORDER BY created_at`,
		studentID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var makeups []model.Makeup
	for rows.Next() {
		m, err := scanMakeup(rows)
		if err != nil {
			return nil, err
		}
		makeups = append(makeups, *m)
	}
	return makeups, rows.Err()
}

// ListPlacedOn retrieves makeups occupying a slot on day.
func (r *MakeupRepository) ListPlacedOn(ctx context.Context, day time.Time) ([]model.Makeup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+makeupColumns+` FROM makeup_classes
		 WHERE makeup_date = $1 AND status IN ('scheduled', 'completed')
		 ORDER BY makeup_start_time`, pgDate(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var makeups []model.Makeup
	for rows.Next() {
		m, err := scanMakeup(rows)
		if err != nil {
			return nil, err
		}
		makeups = append(makeups, *m)
	}
	return makeups, rows.Err()
}

// Save writes the mutable state of m, provided the stored status is still
// expected. A lost race surfaces as a ConflictError.
func (r *MakeupRepository) Save(ctx context.Context, m *model.Makeup, expected model.MakeupStatus) error {
	args := []any{m.ID, expected, m.Status}
	args = append(args, makeupParams(m)...)
	err := r.pool.QueryRow(ctx,
		`UPDATE makeup_classes SET
			status = $3,
			makeup_date = $4, makeup_start_time = $5, makeup_end_time = $6,
			makeup_teacher_id = $7, makeup_branch_id = $8, makeup_room_id = $9,
			confirmed_by = $10, confirmed_at = $11,
			attendance_status = $12, attendance_note = $13, attendance_checked_by = $14, attendance_checked_at = $15,
			cancel_reason = $16, cancelled_by = $17, cancelled_at = $18,
			updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING updated_at`, args...,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.Conflict("makeup", m.ID.String(), "makeup changed concurrently; expected status "+string(expected))
	}
	return err
}

// Delete hard-deletes a makeup still in the expected status.
func (r *MakeupRepository) Delete(ctx context.Context, id uuid.UUID, expected model.MakeupStatus) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM makeup_classes WHERE id = $1 AND status = $2`, id, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.Conflict("makeup", id.String(), "makeup changed concurrently; expected status "+string(expected))
	}
	return nil
}
