package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/apperror"
	"github.com/tutorhub/class-engine/internal/cache"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/validator"
)

// settingsPrefix selects the rows that make up the makeup policy.
const settingsPrefix = "makeup."

// PolicyService reads the makeup policy from the settings table, overlays it
// on the configured defaults, validates it and caches the parsed result.
type PolicyService struct {
	store    SettingStore
	cache    *cache.Cache
	defaults model.MakeupPolicy
	log      zerolog.Logger
}

// NewPolicyService creates a new PolicyService.
func NewPolicyService(store SettingStore, c *cache.Cache, defaults model.MakeupPolicy, log zerolog.Logger) *PolicyService {
	return &PolicyService{
		store:    store,
		cache:    c,
		defaults: defaults,
		log:      log.With().Str("component", "policy_service").Logger(),
	}
}

// DefaultPolicy builds the fallback policy from configuration.
func DefaultPolicy(cfg *config.Config) model.MakeupPolicy {
	statuses := make([]model.AttendanceStatus, len(cfg.MakeupAllowedStatuses))
	for i, s := range cfg.MakeupAllowedStatuses {
		statuses[i] = model.AttendanceStatus(s)
	}
	return model.MakeupPolicy{
		AutoCreateMakeup:     cfg.MakeupAutoCreate,
		MakeupLimitPerCourse: cfg.MakeupLimitPerCourse,
		AllowedStatuses:      statuses,
		RequestDeadlineDays:  cfg.MakeupRequestDeadlineDays,
		ValidityDays:         cfg.MakeupValidityDays,
	}
}

// GetMakeupPolicy returns the effective policy.
func (s *PolicyService) GetMakeupPolicy(ctx context.Context) (model.MakeupPolicy, error) {
	return cache.GetOrLoad(ctx, s.cache, config.CacheKey.MakeupPolicyKey(), s.load)
}

func (s *PolicyService) load(ctx context.Context) (model.MakeupPolicy, error) {
	settings, err := s.store.GetByPrefix(ctx, settingsPrefix)
	if err != nil {
		return model.MakeupPolicy{}, apperror.Dependency("settings", err)
	}
	p, err := ParsePolicy(s.defaults, settings)
	if err != nil {
		s.log.Error().Err(err).Msg("Invalid makeup policy in settings")
		return model.MakeupPolicy{}, err
	}
	return p, nil
}

// ParsePolicy overlays settings on defaults and validates the result.
// Unknown keys are ignored.
func ParsePolicy(defaults model.MakeupPolicy, settings []model.AppSetting) (model.MakeupPolicy, error) {
	p := defaults
	p.AllowedStatuses = append([]model.AttendanceStatus(nil), defaults.AllowedStatuses...)

	for _, st := range settings {
		value := strings.TrimSpace(st.Value)
		var err error
		switch st.Key {
		case model.SettingMakeupAutoCreate:
			p.AutoCreateMakeup, err = strconv.ParseBool(value)
		case model.SettingMakeupLimitPerCourse:
			p.MakeupLimitPerCourse, err = strconv.Atoi(value)
		case model.SettingMakeupRequestDeadline:
			p.RequestDeadlineDays, err = strconv.Atoi(value)
		case model.SettingMakeupValidityDays:
			p.ValidityDays, err = strconv.Atoi(value)
		case model.SettingMakeupAllowedStatuses:
			p.AllowedStatuses = p.AllowedStatuses[:0]
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					p.AllowedStatuses = append(p.AllowedStatuses, model.AttendanceStatus(part))
				}
			}
		default:
			continue
		}
		if err != nil {
			return model.MakeupPolicy{}, apperror.Validation(st.Key, "parse", err.Error())
		}
	}

	if fields := validator.Struct(p); fields != nil {
		for field, msg := range fields {
			return model.MakeupPolicy{}, apperror.Validation(field, "policy", msg)
		}
	}
	return p, nil
}
