package main

import (
	"log"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/ui/components"
)

const savedMessage = "Settings saved successfully"

// ConfigWindow edits settings and alarms. Alarm edits are applied right
// away; settings wait for Save.
type ConfigWindow struct {
	window fyne.Window
	wt     *WakeTube
	config *models.Config
	onSave func(*models.Config)

	// General tab
	autoStartCheck      *widget.Check
	holdTimeEntry       *widget.Entry
	dismissDelayEntry   *widget.Entry
	volumeRampEntry     *widget.Entry
	initialVolumeSlider *widget.Slider
	backgroundSelect    *widget.Select
	calendarFeedEntry   *widget.Entry

	// Alarms tab
	alarmList  *components.ListManager
	alarmRules []models.AlarmRule
	alarmNote  *widget.Label

	// UI state
	hasUnsavedChanges bool
	saveStatusLabel   *widget.Label
	saveButton        *widget.Button
}

func NewConfigWindow(wt *WakeTube, onSave func(*models.Config)) *ConfigWindow {
	current := *wt.config
	cw := &ConfigWindow{
		wt:     wt,
		config: &current,
		onSave: onSave,
	}

	cw.window = wt.app.NewWindow("WakeTube - Settings")
	cw.buildUI()

	return cw
}

func (cw *ConfigWindow) buildUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("Alarms", cw.buildAlarmsTab()),
		container.NewTabItem("General", cw.buildGeneralTab()),
	)

	cw.saveStatusLabel = widget.NewLabel("")
	cw.saveStatusLabel.Importance = widget.SuccessImportance

	cw.saveButton = widget.NewButton("Save", cw.save)
	cw.saveButton.Importance = widget.HighImportance
	cw.saveButton.Disable()

	closeButton := widget.NewButton("Close", cw.handleClose)

	buttonRow := container.NewBorder(
		nil,
		nil,
		container.NewHBox(cw.saveButton, cw.saveStatusLabel),
		closeButton,
	)

	content := container.NewBorder(
		nil,
		container.NewPadded(buttonRow),
		nil,
		nil,
		tabs,
	)

	cw.window.SetContent(content)
	cw.window.Resize(fyne.NewSize(720, 560))
	cw.window.CenterOnScreen()

	cw.window.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		if key.Name == fyne.KeyEscape {
			cw.handleClose()
		}
	})
	cw.window.SetCloseIntercept(cw.handleClose)
}

func (cw *ConfigWindow) save() {
	newConfig := cw.getConfigFromUI()
	cw.saveButton.Disable()
	cw.setStatus("Saving...", widget.MediumImportance)

	go func() {
		if err := setupAutostart(newConfig.AutoStart, cw.wt.dataDir); err != nil {
			log.Printf("[CONFIG] Error setting autostart: %v", err)
			fyne.Do(func() {
				cw.setStatus("Error: Failed to set autostart", widget.DangerImportance)
				cw.updateSaveButtonState()
			})
			return
		}

		fyne.Do(func() {
			if cw.onSave != nil {
				cw.onSave(newConfig)
			}
			cw.config = newConfig
			cw.hasUnsavedChanges = false
			cw.setStatus(savedMessage, widget.SuccessImportance)
			cw.updateSaveButtonState()
		})

		time.Sleep(3 * time.Second)
		fyne.Do(func() {
			if cw.saveStatusLabel.Text == savedMessage {
				cw.setStatus("", widget.SuccessImportance)
			}
		})
	}()
}

func (cw *ConfigWindow) setStatus(text string, importance widget.Importance) {
	cw.saveStatusLabel.SetText(text)
	cw.saveStatusLabel.Importance = importance
	cw.saveStatusLabel.Refresh()
}

// getConfigFromUI reads the general tab. Fields that don't parse keep
// their saved value.
func (cw *ConfigWindow) getConfigFromUI() *models.Config {
	c := *cw.config
	c.AutoStart = cw.autoStartCheck.Checked
	c.HoldTimeSeconds = parseSeconds(cw.holdTimeEntry.Text, c.HoldTimeSeconds, 1)
	c.DismissDelaySeconds = parseSeconds(cw.dismissDelayEntry.Text, c.DismissDelaySeconds, 0)
	c.VolumeRampSeconds = parseSeconds(cw.volumeRampEntry.Text, c.VolumeRampSeconds, 0)
	c.InitialVolume = cw.initialVolumeSlider.Value
	if mode := models.BackgroundMode(cw.backgroundSelect.Selected); mode.Valid() {
		c.BackgroundMode = mode
	}
	c.CalendarFeed = strings.TrimSpace(cw.calendarFeedEntry.Text)
	return &c
}

func parseSeconds(text string, fallback, floor int) int {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || v < floor {
		return fallback
	}
	return v
}

func (cw *ConfigWindow) Show() {
	cw.window.Show()
}

func (cw *ConfigWindow) markChanged() {
	cw.hasUnsavedChanges = true
	cw.updateSaveButtonState()
}

func (cw *ConfigWindow) updateSaveButtonState() {
	if cw.saveButton == nil {
		return
	}
	if cw.hasUnsavedChanges {
		cw.saveButton.Enable()
	} else {
		cw.saveButton.Disable()
	}
}

func (cw *ConfigWindow) handleClose() {
	if cw.hasActualChanges() {
		dialog.ShowConfirm("Unsaved Changes",
			"You have unsaved changes. Are you sure you want to close?",
			func(confirmed bool) {
				if confirmed {
					cw.window.Close()
				}
			}, cw.window)
		return
	}
	cw.window.Close()
}

func (cw *ConfigWindow) hasActualChanges() bool {
	return *cw.getConfigFromUI() != *cw.config
}
