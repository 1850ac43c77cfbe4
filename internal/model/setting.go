package model

import "time"

// AppSetting is one key/value row of the school settings table.
// The engine only reads these rows.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys that make up the makeup policy.
const (
	SettingMakeupAutoCreate      = "makeup.auto_create"
	SettingMakeupLimitPerCourse  = "makeup.limit_per_course"
	SettingMakeupAllowedStatuses = "makeup.allowed_statuses"
	SettingMakeupRequestDeadline = "makeup.request_deadline_days"
	SettingMakeupValidityDays    = "makeup.validity_days"
)
