package main

import (
	"fmt"
	"time"

	"github.com/borgmon/waketube/pkg/calendar"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/store"
)

// formatRule renders a rule as one line for the CLI and the alarm list.
func formatRule(rule models.AlarmRule, now time.Time) string {
	line := fmt.Sprintf("%s  %-13s  %s", rule.Time, rule.Days, rule.DisplayLabel())
	if !rule.Enabled {
		return line + "  [off]"
	}
	next, ok := calendar.NextFor(rule, now)
	if !ok {
		return line + "  [no days]"
	}
	return line + "  (" + formatCountdown(next.Sub(now)) + ")"
}

// formatCountdown renders d rounded up to the minute, e.g. "in 2d 3h 5m".
func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	days, hours, minutes := mins/(24*60), mins/60%24, mins%60
	switch {
	case days > 0:
		return fmt.Sprintf("in %dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("in %dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("in %dm", minutes)
	}
}

// describeChange explains a mutation whose background registration did not
// go through. It returns "" when there is nothing to report.
func describeChange(change store.Change) string {
	switch {
	case change.ScheduleErr != nil:
		return fmt.Sprintf("Saved, but background scheduling failed: %v. The alarm still rings while WakeTube is open.", change.ScheduleErr)
	case change.Schedule.NeedsPermission:
		return "Saved, but background alarms need permission. The alarm only rings while WakeTube is open."
	}
	return ""
}
