package model

// MakeupPolicy is the school-wide makeup configuration. It is read-only input
// to the engine and is validated once when loaded.
type MakeupPolicy struct {
	AutoCreateMakeup     bool               `json:"auto_create_makeup"`
	MakeupLimitPerCourse int                `json:"makeup_limit_per_course" validate:"min=0"`
	AllowedStatuses      []AttendanceStatus `json:"allowed_statuses" validate:"dive,oneof=absent sick leave"`
	RequestDeadlineDays  int                `json:"request_deadline_days" validate:"min=0"`
	ValidityDays         int                `json:"validity_days" validate:"min=0"`
}

// Allows reports whether status qualifies for a makeup.
func (p *MakeupPolicy) Allows(status AttendanceStatus) bool {
	for _, s := range p.AllowedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Unlimited reports whether there is no per-course quota.
func (p *MakeupPolicy) Unlimited() bool {
	return p.MakeupLimitPerCourse <= 0
}
