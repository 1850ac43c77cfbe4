package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// HolidayPrefix is shared by every cached holiday lookup.
func (r *CacheKeyStruct) HolidayPrefix() string {
	return "holidays:"
}

// HolidayRangeKey returns the cache key for a branch's holidays between two date keys
func (r *CacheKeyStruct) HolidayRangeKey(branchID int, from, to string) string {
	return fmt.Sprintf("holidays:branch:%d:%s:%s", branchID, from, to)
}

// HolidaysDirtyKey marks that holidays changed since the last regeneration sweep
func (r *CacheKeyStruct) HolidaysDirtyKey() string {
	return "schedule:holidays_dirty"
}

// MakeupPolicyKey returns the cache key for the parsed makeup policy
func (r *CacheKeyStruct) MakeupPolicyKey() string {
	return "settings:makeup_policy"
}

// BranchEventsChannel returns the Redis PubSub channel name for a branch's schedule events
func (r *CacheKeyStruct) BranchEventsChannel(branchID int) string {
	return fmt.Sprintf("branch:%d:schedule_events", branchID)
}

var CacheKey = NewCacheKeyStruct()
