// Package schedule computes how long the bot idles between sweeps. The
// portal restocks appointment inventory on a roughly predictable daily
// rhythm, so polling is dense near the expected restock hour and sparse far
// from it, with enough randomness that independent bot processes do not
// synchronize their request patterns.
package schedule

import (
	"math/rand"
	"time"
)

// Planner computes inter-sweep sleep durations.
type Planner struct {
	// RestockHour is the clock hour (0-23, UTC) the portal tends to
	// release new inventory.
	RestockHour int

	// ActiveDays are the weekdays on which the interval is recomputed.
	// On other days the last computed interval is reused.
	ActiveDays map[time.Weekday]bool

	// Floor is the minimum base sleep, applied when the restock hour is
	// near. Slope is added per hour beyond Grace hours away from it.
	Floor time.Duration
	Slope time.Duration
	Grace float64

	rnd  *rand.Rand
	last time.Duration
}

// Option configures a Planner.
type Option func(*Planner)

// WithRand replaces the randomness source, for tests.
func WithRand(rnd *rand.Rand) Option {
	return func(p *Planner) { p.rnd = rnd }
}

// New creates a planner with the standard floor, slope and grace window.
func New(restockHour int, activeDays []time.Weekday, opts ...Option) *Planner {
	p := &Planner{
		RestockHour: restockHour,
		ActiveDays:  make(map[time.Weekday]bool, len(activeDays)),
		Floor:       180 * time.Second,
		Slope:       855 * time.Second,
		Grace:       8,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		last:        40 * time.Minute,
	}
	for _, d := range activeDays {
		p.ActiveDays[d] = true
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HoursFromRestock returns the absolute distance in hours from now to the
// nearest of yesterday's, today's and tomorrow's restock time.
func (p *Planner) HoursFromRestock(now time.Time) float64 {
	today := time.Date(now.Year(), now.Month(), now.Day(), p.RestockHour, 0, 0, 0, now.Location())
	min := absHours(now.Sub(today))
	if h := absHours(now.Sub(today.AddDate(0, 0, -1))); h < min {
		min = h
	}
	if h := absHours(today.AddDate(0, 0, 1).Sub(now)); h < min {
		min = h
	}
	return min
}

// BaseSleep computes the full sleep interval for the current moment. Inside
// the grace window around the restock hour it equals Floor; beyond it each
// additional hour adds Slope. On non-active weekdays the previous interval
// is reused unchanged.
func (p *Planner) BaseSleep(now time.Time) time.Duration {
	if !p.ActiveDays[now.Weekday()] {
		return p.last
	}
	hours := p.HoursFromRestock(now)
	extra := hours - p.Grace
	if extra < 0 {
		extra = 0
	}
	p.last = p.Floor + time.Duration(extra*float64(p.Slope))
	return p.last
}

// NextSleep returns the randomized duration to idle before the next sweep:
// uniform between one third of the base interval and the full interval, so
// concurrent bots drift apart.
func (p *Planner) NextSleep(now time.Time) time.Duration {
	base := p.BaseSleep(now)
	lo := base / 3
	if base <= lo {
		return base
	}
	return lo + time.Duration(p.rnd.Int63n(int64(base-lo)+1))
}

func absHours(d time.Duration) float64 {
	if d < 0 {
		d = -d
	}
	return d.Hours()
}
