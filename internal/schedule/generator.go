package schedule

import (
	"fmt"
	"time"

	"github.com/tutorhub/class-engine/internal/apperror"
)

// DefaultMaxScanDays bounds every forward scan when the caller gives no cap.
const DefaultMaxScanDays = 3660

// Pattern is a weekly recurrence: the set of weekdays a class meets on.
type Pattern []time.Weekday

// Validate rejects empty patterns and out-of-range weekdays.
func (p Pattern) Validate() error {
	if len(p) == 0 {
		return apperror.Validation("days_of_week", "required", "at least one weekday is required")
	}
	for _, d := range p {
		if d < time.Sunday || d > time.Saturday {
			return apperror.Validation("days_of_week", "weekday", fmt.Sprintf("weekday %d is out of range 0-6", d))
		}
	}
	return nil
}

// Has reports whether weekday d is in the pattern.
func (p Pattern) Has(d time.Weekday) bool {
	for _, w := range p {
		if w == d {
			return true
		}
	}
	return false
}

// Generate walks forward one calendar day at a time from start and accepts a
// day when its weekday is in days and it is not in holidays, stopping once
// total days are accepted. The scan gives up with a ValidationError after
// maxDays days (DefaultMaxScanDays when maxDays <= 0).
func Generate(start time.Time, days Pattern, total int, holidays DateSet, maxDays int) ([]time.Time, error) {
	if total <= 0 {
		return nil, apperror.Validation("total_sessions", "positive", "total sessions must be greater than zero")
	}
	if err := days.Validate(); err != nil {
		return nil, err
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxScanDays
	}

	dates := make([]time.Time, 0, total)
	day := Day(start)
	for scanned := 0; len(dates) < total; scanned++ {
		if scanned >= maxDays {
			return nil, apperror.Validation("days_of_week", "scan_limit",
				fmt.Sprintf("only %d of %d sessions fit within %d days", len(dates), total, maxDays))
		}
		if days.Has(day.Weekday()) && !holidays.Has(day) {
			dates = append(dates, day)
		}
		day = AddDays(day, 1)
	}
	return dates, nil
}

// NextAvailableDate scans from the day after from up to max (inclusive) for
// the first day in days that is neither a holiday nor already taken.
func NextAvailableDate(from, max time.Time, days Pattern, holidays, taken DateSet) (time.Time, bool) {
	if len(days) == 0 {
		return time.Time{}, false
	}
	for day := AddDays(from, 1); !After(day, max); day = AddDays(day, 1) {
		if !days.Has(day.Weekday()) || holidays.Has(day) || taken.Has(day) {
			continue
		}
		return day, true
	}
	return time.Time{}, false
}

// EstimateEndDate projects the last session date ignoring holidays. It is used
// for classes that have no generated calendar yet.
func EstimateEndDate(start time.Time, days Pattern, total int) time.Time {
	dates, err := Generate(start, days, total, nil, 0)
	if err != nil || len(dates) == 0 {
		return Day(start)
	}
	return dates[len(dates)-1]
}
