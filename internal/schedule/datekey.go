// Package schedule holds the pure scheduling rules of the engine: calendar
// keys, holiday lookup, session generation, availability overlap, class
// lifecycle and the makeup state machine. Nothing here touches storage.
package schedule

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

// DateKey identifies a calendar day independent of hour and timezone.
// Keys sort lexicographically in date order.
type DateKey string

// KeyOf builds the key from t's own calendar fields. No UTC conversion happens,
// so a date picked in the client's local calendar keeps its day.
func KeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey(fmt.Sprintf("%04d-%02d-%02d", y, int(m), d))
}

// ParseDate parses a "YYYY-MM-DD" string into midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to midnight of its own calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days and returns midnight of the result.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return KeyOf(a) == KeyOf(b)
}

// Before reports whether a's calendar day is strictly before b's.
func Before(a, b time.Time) bool {
	return KeyOf(a) < KeyOf(b)
}

// After reports whether a's calendar day is strictly after b's.
func After(a, b time.Time) bool {
	return KeyOf(a) > KeyOf(b)
}

// DateSet is a set of calendar days.
type DateSet map[DateKey]struct{}

// NewDateSet builds a set from dates.
func NewDateSet(dates ...time.Time) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

// Add inserts the day of t.
func (s DateSet) Add(t time.Time) {
	s[KeyOf(t)] = struct{}{}
}

// Has reports whether the day of t is in the set. A nil set is empty.
func (s DateSet) Has(t time.Time) bool {
	_, ok := s[KeyOf(t)]
	return ok
}

// Keys returns the keys in ascending order.
func (s DateSet) Keys() []DateKey {
	keys := make([]DateKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
