package main

import (
	"context"
	"errors"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/store"
	"github.com/borgmon/waketube/pkg/ui/components"
)

const storeTimeout = 10 * time.Second

func (cw *ConfigWindow) buildAlarmsTab() fyne.CanvasObject {
	toggleButton := widget.NewButtonWithIcon("On/Off", theme.MediaPlayIcon(), cw.toggleSelected)
	importButton := widget.NewButtonWithIcon("Import", theme.DownloadIcon(), cw.showImportDialog)

	var listContainer *fyne.Container
	cw.alarmList, listContainer = components.NewListManager(nil, components.ListManagerConfig{
		OnAdd: func() {
			cw.showAlarmDialog(nil)
		},
		OnEdit: func(i int) {
			if i < len(cw.alarmRules) {
				rule := cw.alarmRules[i]
				cw.showAlarmDialog(&rule)
			}
		},
		OnRemove: func(i int) {
			if i < len(cw.alarmRules) {
				cw.confirmDelete(cw.alarmRules[i])
			}
		},
		ExtraControls: []fyne.CanvasObject{toggleButton, importButton},
	})

	cw.alarmNote = widget.NewLabel("")
	cw.alarmNote.Wrapping = fyne.TextWrapWord
	cw.alarmNote.Importance = widget.WarningImportance

	cw.refreshAlarms()

	content := container.NewBorder(
		container.NewVBox(widget.NewLabel("Alarms"), widget.NewSeparator()),
		cw.alarmNote,
		nil,
		nil,
		listContainer,
	)
	return container.NewPadded(content)
}

// refreshAlarms reloads the list from the store. Fyne thread only.
func (cw *ConfigWindow) refreshAlarms() {
	if cw.alarmList == nil {
		return
	}
	rules := cw.wt.alarms.List()
	models.SortRules(rules)
	cw.alarmRules = rules

	now := time.Now()
	lines := make([]string, len(rules))
	for i, rule := range rules {
		lines[i] = formatRule(rule, now)
	}
	cw.alarmList.SetData(lines)
}

func (cw *ConfigWindow) toggleSelected() {
	i := cw.alarmList.Selected()
	if i < 0 || i >= len(cw.alarmRules) {
		return
	}
	id := cw.alarmRules[i].ID
	cw.applyAlarmChange(func(ctx context.Context) (store.Change, error) {
		return cw.wt.alarms.Toggle(ctx, id)
	})
}

func (cw *ConfigWindow) confirmDelete(rule models.AlarmRule) {
	dialog.ShowConfirm("Delete Alarm",
		"Delete \""+rule.DisplayLabel()+"\"?",
		func(confirmed bool) {
			if !confirmed {
				return
			}
			cw.applyAlarmChange(func(ctx context.Context) (store.Change, error) {
				return cw.wt.alarms.Delete(ctx, rule.ID)
			})
		}, cw.window)
}

// applyAlarmChange runs a store mutation off the fyne thread and reports
// its outcome. The list itself refreshes through the store's change hook.
func (cw *ConfigWindow) applyAlarmChange(mutate func(context.Context) (store.Change, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		change, err := mutate(ctx)
		fyne.Do(func() {
			if err != nil {
				log.Printf("[CONFIG] Alarm change failed: %v", err)
				if errors.Is(err, store.ErrNotFound) {
					cw.refreshAlarms()
				}
				dialog.ShowError(err, cw.window)
				return
			}
			cw.alarmNote.SetText(describeChange(change))
		})
	}()
}
