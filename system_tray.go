package main

import (
	"fmt"
	"sort"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/borgmon/waketube/pkg/calendar"
	"github.com/borgmon/waketube/pkg/gateway"
	"github.com/borgmon/waketube/pkg/models"
)

const trayUpcomingLimit = 5

func (wt *WakeTube) setupSystemTray() {
	wt.updateSystemTrayMenu()
}

func (wt *WakeTube) updateSystemTrayMenu() {
	desk, ok := wt.app.(desktop.App)
	if !ok {
		return
	}
	menuItems := []*fyne.MenuItem{}

	upcoming := upcomingToday(wt.alarms.List(), time.Now(), trayUpcomingLimit)
	if len(upcoming) > 0 {
		header := fyne.NewMenuItem("Upcoming Today:", nil)
		header.Disabled = true
		menuItems = append(menuItems, header)

		for _, u := range upcoming {
			item := fyne.NewMenuItem(fmt.Sprintf("  %s - %s",
				u.At.Format("15:04"),
				truncateString(u.Rule.DisplayLabel(), 35)), nil)
			item.Disabled = true
			menuItems = append(menuItems, item)
		}
		menuItems = append(menuItems, fyne.NewMenuItemSeparator())
	}

	if wt.gw.Kind() == gateway.KindNone {
		caveat := fyne.NewMenuItem("Alarms only ring while WakeTube is open", nil)
		caveat.Disabled = true
		menuItems = append(menuItems, caveat, fyne.NewMenuItemSeparator())
	}

	menuItems = append(menuItems,
		fyne.NewMenuItem("Settings", wt.showConfigWindow),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", wt.quit),
	)

	desk.SetSystemTrayMenu(fyne.NewMenu("WakeTube", menuItems...))
	desk.SetSystemTrayIcon(theme.MediaPlayIcon())
}

type upcomingAlarm struct {
	Rule models.AlarmRule
	At   time.Time
}

// upcomingToday returns enabled alarms still due before midnight, soonest first.
func upcomingToday(rules []models.AlarmRule, now time.Time, limit int) []upcomingAlarm {
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	var out []upcomingAlarm
	for _, rule := range rules {
		next, ok := calendar.NextFor(rule, now)
		if !ok || !next.Before(midnight) {
			continue
		}
		out = append(out, upcomingAlarm{Rule: rule, At: next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// truncateString truncates a string to maxLen runes, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
