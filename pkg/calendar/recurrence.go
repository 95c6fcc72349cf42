package calendar

import (
	"time"

	"github.com/borgmon/waketube/pkg/models"
)

// NextFireInstant returns the first instant strictly after now that falls on
// one of days at time-of-day t, in now's location. Candidates are scanned a
// day at a time starting with today.
//
// On a date where t falls in a daylight-saving gap, the occurrence moves to
// the first minute after the gap instead of being skipped.
//
// ok is false when days is empty: such a rule has no next occurrence and must
// not be scheduled.
func NextFireInstant(t models.TimeOfDay, days models.DaySet, now time.Time) (next time.Time, ok bool) {
	if days.Empty() || !t.Valid() {
		return time.Time{}, false
	}

	// Day 7 covers a single-day set whose slot today has already passed.
	for i := 0; i <= 7; i++ {
		day := now.AddDate(0, 0, i)
		candidate := t.On(day)
		if days.Has(day.Weekday()) && candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

// NextFor is NextFireInstant for a rule; disabled rules have no occurrence.
func NextFor(rule models.AlarmRule, now time.Time) (time.Time, bool) {
	if !rule.Enabled {
		return time.Time{}, false
	}
	return NextFireInstant(rule.Time, rule.Days, now)
}
