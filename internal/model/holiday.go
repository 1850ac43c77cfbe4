package model

import "time"

// HolidayType distinguishes nationwide closures from branch-only closures.
type HolidayType string

const (
	HolidayTypeNational HolidayType = "national"
	HolidayTypeBranch   HolidayType = "branch"
)

// Holiday is a single non-teaching date.
type Holiday struct {
	ID        int         `json:"id"`
	Date      time.Time   `json:"date"`
	Name      string      `json:"name"`
	Type      HolidayType `json:"type"`
	Branches  []int       `json:"branches,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AppliesTo reports whether the holiday closes branchID.
func (h *Holiday) AppliesTo(branchID int) bool {
	if h.Type == HolidayTypeNational {
		return true
	}
	for _, b := range h.Branches {
		if b == branchID {
			return true
		}
	}
	return false
}

// CreateHolidayRequest is the payload for adding a holiday.
type CreateHolidayRequest struct {
	Date     string      `json:"date" binding:"required,datetime=2006-01-02"`
	Name     string      `json:"name" binding:"required,min=2,max=150"`
	Type     HolidayType `json:"type" binding:"required,oneof=national branch"`
	Branches []int       `json:"branches" binding:"required_if=Type branch,omitempty,dive,min=1"`
}
