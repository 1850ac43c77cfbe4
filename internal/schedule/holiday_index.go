package schedule

import (
	"time"

	"github.com/tutorhub/class-engine/internal/model"
)

// HolidayIndex answers holiday questions for a fixed set of holiday records.
type HolidayIndex struct {
	national DateSet
	branch   map[DateKey]map[int]struct{}
}

// NewHolidayIndex indexes holidays by calendar day.
func NewHolidayIndex(holidays []model.Holiday) *HolidayIndex {
	ix := &HolidayIndex{
		national: make(DateSet),
		branch:   make(map[DateKey]map[int]struct{}),
	}
	for i := range holidays {
		h := &holidays[i]
		key := KeyOf(h.Date)
		if h.Type == model.HolidayTypeNational {
			ix.national[key] = struct{}{}
			continue
		}
		branches, ok := ix.branch[key]
		if !ok {
			branches = make(map[int]struct{}, len(h.Branches))
			ix.branch[key] = branches
		}
		for _, b := range h.Branches {
			branches[b] = struct{}{}
		}
	}
	return ix
}

// IsHoliday reports whether date is a non-teaching day for branchID.
func (ix *HolidayIndex) IsHoliday(date time.Time, branchID int) bool {
	key := KeyOf(date)
	if _, ok := ix.national[key]; ok {
		return true
	}
	_, ok := ix.branch[key][branchID]
	return ok
}

// InRange returns the holidays of branchID between start and end, both inclusive.
func (ix *HolidayIndex) InRange(branchID int, start, end time.Time) DateSet {
	from, to := KeyOf(start), KeyOf(end)
	out := make(DateSet)
	for key := range ix.national {
		if key >= from && key <= to {
			out[key] = struct{}{}
		}
	}
	for key, branches := range ix.branch {
		if key < from || key > to {
			continue
		}
		if _, ok := branches[branchID]; ok {
			out[key] = struct{}{}
		}
	}
	return out
}
