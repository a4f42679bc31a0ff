package orchestrator

import (
	"math/rand"
	"time"

	"github.com/soapboxhq/soapbox/internal/models"
)

const defaultInterval = time.Hour

// nextExecution computes when the next cycle should run: a base interval
// derived from posts-per-hour, optionally jittered, then pushed into the
// active-hour window if the result lands outside it.
func nextExecution(s models.ScheduleSettings, now time.Time, rng *rand.Rand) time.Time {
	interval := defaultInterval
	if s.PostsPerHour > 0 {
		interval = time.Duration(float64(time.Hour) / s.PostsPerHour)
	}

	next := now.Add(interval)
	if s.Randomize && s.MaxDelayMinutes >= s.MinDelayMinutes && s.MaxDelayMinutes > 0 {
		jitter := s.MinDelayMinutes + rng.Intn(s.MaxDelayMinutes-s.MinDelayMinutes+1)
		next = next.Add(time.Duration(jitter) * time.Minute)
	}

	if !withinActiveHours(s, next) {
		next = nextActiveTime(s, next)
	}
	return next
}

// withinActiveHours reports whether t falls inside the campaign's active-hour
// window. Start is inclusive, end exclusive; start == end means always on;
// start > end is an overnight window (e.g. 22-6).
func withinActiveHours(s models.ScheduleSettings, t time.Time) bool {
	if s.ActiveHourStart == s.ActiveHourEnd {
		return true
	}
	h := t.Hour()
	if s.ActiveHourStart < s.ActiveHourEnd {
		return h >= s.ActiveHourStart && h < s.ActiveHourEnd
	}
	return h >= s.ActiveHourStart || h < s.ActiveHourEnd
}

// nextActiveTime returns the start of the next active window at or after t.
func nextActiveTime(s models.ScheduleSettings, t time.Time) time.Time {
	if withinActiveHours(s, t) {
		return t
	}
	next := time.Date(t.Year(), t.Month(), t.Day(), s.ActiveHourStart, 0, 0, 0, t.Location())
	if !next.After(t) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
