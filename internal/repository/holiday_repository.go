package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/model"
)

// HolidayRepository handles holiday data access.
type HolidayRepository struct {
	pool *pgxpool.Pool
}

// NewHolidayRepository creates a new HolidayRepository.
func NewHolidayRepository(pool *pgxpool.Pool) *HolidayRepository {
	return &HolidayRepository{pool: pool}
}

func collectHolidays(rows pgx.Rows) ([]model.Holiday, error) {
	defer rows.Close()

	holidays := []model.Holiday{}
	for rows.Next() {
		var (
			h        model.Holiday
			branches []int32
		)
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.Type, &branches, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Branches = make([]int, len(branches))
		for i, b := range branches {
			h.Branches[i] = int(b)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// ForBranchAndRange retrieves the holidays closing branchID between from and to inclusive.
func (r *HolidayRepository) ForBranchAndRange(ctx context.Context, branchID int, from, to time.Time) ([]model.Holiday, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, holiday_date, name, type, branch_ids, created_at
		 FROM holidays
		 WHERE holiday_date BETWEEN $1 AND $2
		   AND (type = 'national' OR $3 = ANY(branch_ids))
		 ORDER BY holiday_date`,
		pgDate(from), pgDate(to), int32(branchID))
	if err != nil {
		return nil, err
	}
	return collectHolidays(rows)
}

// List retrieves every holiday between from and to inclusive.
func (r *HolidayRepository) List(ctx context.Context, from, to time.Time) ([]model.Holiday, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, holiday_date, name, type, branch_ids, created_at
		 FROM holidays WHERE holiday_date BETWEEN $1 AND $2
		 ORDER BY holiday_date, id`,
		pgDate(from), pgDate(to))
	if err != nil {
		return nil, err
	}
	return collectHolidays(rows)
}

// Create inserts a holiday and fills in its ID and creation time.
func (r *HolidayRepository) Create(ctx context.Context, h *model.Holiday) error {
	branches := make([]int32, len(h.Branches))
	for i, b := range h.Branches {
		branches[i] = int32(b)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO holidays (holiday_date, name, type, branch_ids)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		pgDate(h.Date), h.Name, h.Type, branches,
	).Scan(&h.ID, &h.CreatedAt)
}

// Delete removes a holiday.
func (r *HolidayRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("holiday", id)
	}
	return nil
}
