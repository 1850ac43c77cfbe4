package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/cache"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/schedule"
)

// HolidayService answers holiday questions through the TTL cache and
// maintains the holiday table.
type HolidayService struct {
	store HolidayStore
	cache *cache.Cache
	dirty *cache.Flag
	log   zerolog.Logger
}

// NewHolidayService creates a new HolidayService. dirty is raised whenever
// holidays change so the regenerate sweep picks the change up.
func NewHolidayService(store HolidayStore, c *cache.Cache, dirty *cache.Flag, log zerolog.Logger) *HolidayService {
	return &HolidayService{
		store: store,
		cache: c,
		dirty: dirty,
		log:   log.With().Str("component", "holiday_service").Logger(),
	}
}

func (s *HolidayService) load(ctx context.Context, branchID int, start, end time.Time) (*schedule.HolidayIndex, error) {
	key := config.CacheKey.HolidayRangeKey(branchID, string(schedule.KeyOf(start)), string(schedule.KeyOf(end)))
	holidays, err := cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]model.Holiday, error) {
		return s.store.ForBranchAndRange(ctx, branchID, start, end)
	})
	if err != nil {
		return nil, apperror.Dependency("holiday_store", err)
	}
	return schedule.NewHolidayIndex(holidays), nil
}

// HolidaysInRange returns the non-teaching days of branchID between start and end inclusive.
func (s *HolidayService) HolidaysInRange(ctx context.Context, branchID int, start, end time.Time) (schedule.DateSet, error) {
	ix, err := s.load(ctx, branchID, start, end)
	if err != nil {
		return nil, err
	}
	return ix.InRange(branchID, start, end), nil
}

// IsHoliday reports whether date is a non-teaching day for branchID.
func (s *HolidayService) IsHoliday(ctx context.Context, date time.Time, branchID int) (bool, error) {
	ix, err := s.load(ctx, branchID, date, date)
	if err != nil {
		return false, err
	}
	return ix.IsHoliday(date, branchID), nil
}

// List returns every holiday between from and to.
func (s *HolidayService) List(ctx context.Context, from, to time.Time) ([]model.Holiday, error) {
	return s.store.List(ctx, from, to)
}

// Create adds a holiday, drops cached lookups and schedules a regeneration.
func (s *HolidayService) Create(ctx context.Context, req model.CreateHolidayRequest) (*model.Holiday, error) {
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, apperror.Validation("date", "datetime", err.Error())
	}
	h := &model.Holiday{Date: date, Name: req.Name, Type: req.Type}
	if req.Type == model.HolidayTypeBranch {
		if len(req.Branches) == 0 {
			return nil, apperror.Validation("branches", "required", "branch holidays need at least one branch")
		}
		h.Branches = req.Branches
	}
	if err := s.store.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("create holiday: %w", err)
	}
	s.changed(ctx)
	return h, nil
}

// Delete removes a holiday, drops cached lookups and schedules a regeneration.
func (s *HolidayService) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *HolidayService) changed(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, config.CacheKey.HolidayPrefix()); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate holiday cache")
	}
	if err := s.dirty.Mark(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to mark holidays dirty")
	}
}

// ConsumeDirty reports whether holidays changed since the last call.
func (s *HolidayService) ConsumeDirty(ctx context.Context) (bool, error) {
	return s.dirty.Consume(ctx)
}
