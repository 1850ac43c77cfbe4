package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhub/class-engine/internal/model"
)

// SettingRepository reads the school settings table. The engine never writes it.
type SettingRepository struct {
	pool *pgxpool.Pool
}

func NewSettingRepository(pool *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{pool: pool}
}

func (r *SettingRepository) GetByPrefix(ctx context.Context, prefix string) ([]model.AppSetting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value, updated_at FROM app_settings WHERE key LIKE $1 || '%' ORDER BY key ASC`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []model.AppSetting
	for rows.Next() {
		var s model.AppSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
