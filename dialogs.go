package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/store"
	"github.com/borgmon/waketube/pkg/youtube"
	"github.com/spf13/afero"
)

var weekdayOptions = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func weekdayNames(days models.DaySet) []string {
	names := []string{}
	for _, d := range days.Days() {
		names = append(names, weekdayOptions[d])
	}
	return names
}

func daySetFromNames(names []string) models.DaySet {
	var set models.DaySet
	for _, name := range names {
		for i, opt := range weekdayOptions {
			if opt == name {
				set = set.With(time.Weekday(i))
			}
		}
	}
	return set
}

// showAlarmDialog creates an alarm, or edits existing when it is non-nil.
func (cw *ConfigWindow) showAlarmDialog(existing *models.AlarmRule) {
	rule := models.AlarmRule{
		Time:    models.TimeOfDayOf(time.Now().Add(time.Hour)),
		Days:    models.EveryDay,
		Enabled: true,
	}
	title, confirm := "Add Alarm", "Create"
	if existing != nil {
		rule = *existing
		title, confirm = "Edit Alarm", "Save"
	}

	timeEntry := widget.NewEntry()
	timeEntry.SetPlaceHolder("07:30")
	timeEntry.SetText(rule.Time.String())
	timeEntry.Validator = func(s string) error {
		_, err := models.ParseTimeOfDay(s)
		return err
	}

	daysGroup := widget.NewCheckGroup(weekdayOptions, nil)
	daysGroup.Horizontal = true
	daysGroup.SetSelected(weekdayNames(rule.Days))

	videoEntry := widget.NewEntry()
	videoEntry.SetPlaceHolder("https://www.youtube.com/watch?v=" + youtube.DefaultVideoID)
	videoEntry.SetText(rule.VideoURL)
	videoEntry.Validator = func(s string) error {
		if s = strings.TrimSpace(s); s != "" && !youtube.IsValidURL(s) {
			return errors.New("not a YouTube link")
		}
		return nil
	}

	labelEntry := widget.NewEntry()
	labelEntry.SetPlaceHolder("Wake up")
	labelEntry.SetText(rule.Label)

	enabledCheck := widget.NewCheck("Enabled", nil)
	enabledCheck.SetChecked(rule.Enabled)

	items := []*widget.FormItem{
		widget.NewFormItem("Time", timeEntry),
		widget.NewFormItem("Days", daysGroup),
		widget.NewFormItem("Video", videoEntry),
		widget.NewFormItem("Label", labelEntry),
		widget.NewFormItem("", enabledCheck),
	}

	d := dialog.NewForm(title, confirm, "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}
		tod, err := models.ParseTimeOfDay(timeEntry.Text)
		if err != nil {
			dialog.ShowError(err, cw.window)
			return
		}
		rule.Time = tod
		rule.Days = daySetFromNames(daysGroup.Selected)
		rule.VideoURL = strings.TrimSpace(videoEntry.Text)
		rule.Label = strings.TrimSpace(labelEntry.Text)
		rule.Enabled = enabledCheck.Checked

		cw.applyAlarmChange(func(ctx context.Context) (store.Change, error) {
			if existing == nil {
				return cw.wt.alarms.Create(ctx, rule)
			}
			return cw.wt.alarms.Update(ctx, rule)
		})
	}, cw.window)
	d.Resize(fyne.NewSize(520, 0))
	d.Show()
}

func (cw *ConfigWindow) showImportDialog() {
	sourceEntry := widget.NewEntry()
	sourceEntry.SetPlaceHolder("https://calendar.example.com/alarms.ics or /path/to/file.ics")

	items := []*widget.FormItem{
		widget.NewFormItem("Calendar", sourceEntry),
	}

	dialog.ShowForm("Import Alarms", "Import", "Cancel", items, func(confirmed bool) {
		source := strings.TrimSpace(sourceEntry.Text)
		if !confirmed || source == "" {
			return
		}
		go cw.importFrom(source)
	}, cw.window)
}

func (cw *ConfigWindow) importFrom(source string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout*3)
	defer cancel()

	rules, err := loadImport(ctx, afero.NewOsFs(), source)
	if err != nil {
		fyne.Do(func() { dialog.ShowError(err, cw.window) })
		return
	}

	added := 0
	var notes []string
	for _, rule := range rules {
		change, err := cw.wt.alarms.Create(ctx, rule)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: %v", rule.DisplayLabel(), err))
			continue
		}
		added++
		if note := describeChange(change); note != "" {
			notes = append(notes, note)
		}
	}

	msg := fmt.Sprintf("Imported %d of %d alarms.", added, len(rules))
	if len(notes) > 0 {
		msg += "\n\n" + strings.Join(notes, "\n")
	}
	fyne.Do(func() {
		dialog.ShowInformation("Import Alarms", msg, cw.window)
	})
}
