// Package match decides whether any slot discovered in a search is
// claimable for a given patient, honoring the patient's region priority and
// weekday preferences.
package match

import (
	"time"
)

// Slot is one appointment offering parsed from a portal results screen. It
// lives for a single search pass; the matcher consumes it immediately.
type Slot struct {
	Address string
	Region  string
	Phone   string
	Date    time.Time
}

// Weekday returns the slot's day of week.
func (s Slot) Weekday() time.Weekday {
	return s.Date.Weekday()
}

// Select picks the slot to claim. targets is the patient's ranked region
// list, most preferred first; allowedDays is the patient's weekday filter
// (empty means any). It returns the index into slots, or false when nothing
// is claimable.
//
// The candidate regions are intersected with the targets first; the
// remaining targets keep their original priority order and the first one
// whose slot falls on an allowed weekday wins. A region whose only slot
// falls on a disallowed weekday does not count, even if it outranks every
// other region.
func Select(targets []string, slots []Slot, allowedDays []time.Weekday) (int, bool) {
	byRegion := make(map[string]int, len(slots))
	for i, s := range slots {
		if s.Region == "" {
			continue
		}
		if _, ok := byRegion[s.Region]; !ok {
			byRegion[s.Region] = i
		}
	}

	for _, region := range targets {
		i, ok := byRegion[region]
		if !ok {
			continue
		}
		if dayAllowed(slots[i].Weekday(), allowedDays) {
			return i, true
		}
	}
	return 0, false
}

func dayAllowed(day time.Weekday, allowed []time.Weekday) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		if d == day {
			return true
		}
	}
	return false
}
