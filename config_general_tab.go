package main

import (
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/borgmon/waketube/pkg/models"
)

var backgroundModes = []string{
	string(models.BackgroundAuto),
	string(models.BackgroundExact),
	string(models.BackgroundNotification),
	string(models.BackgroundNone),
}

func (cw *ConfigWindow) buildGeneralTab() fyne.CanvasObject {
	changed := func(string) { cw.markChanged() }

	cw.autoStartCheck = widget.NewCheck("Launch at login", nil)
	cw.autoStartCheck.SetChecked(cw.config.AutoStart)
	cw.autoStartCheck.OnChanged = func(bool) { cw.markChanged() }

	cw.holdTimeEntry = widget.NewEntry()
	cw.holdTimeEntry.SetText(strconv.Itoa(cw.config.HoldTimeSeconds))
	cw.holdTimeEntry.OnChanged = changed

	cw.dismissDelayEntry = widget.NewEntry()
	cw.dismissDelayEntry.SetText(strconv.Itoa(cw.config.DismissDelaySeconds))
	cw.dismissDelayEntry.OnChanged = changed

	cw.volumeRampEntry = widget.NewEntry()
	cw.volumeRampEntry.SetText(strconv.Itoa(cw.config.VolumeRampSeconds))
	cw.volumeRampEntry.OnChanged = changed

	volumeValue := widget.NewLabel("")
	cw.initialVolumeSlider = widget.NewSlider(0, 1)
	cw.initialVolumeSlider.Step = 0.05
	cw.initialVolumeSlider.SetValue(cw.config.InitialVolume)
	volumeValue.SetText(fmt.Sprintf("%d%%", int(cw.config.InitialVolume*100)))
	cw.initialVolumeSlider.OnChanged = func(v float64) {
		volumeValue.SetText(fmt.Sprintf("%d%%", int(v*100)))
		cw.markChanged()
	}

	cw.backgroundSelect = widget.NewSelect(backgroundModes, nil)
	cw.backgroundSelect.SetSelected(string(cw.config.BackgroundMode))
	cw.backgroundSelect.OnChanged = changed

	cw.calendarFeedEntry = widget.NewEntry()
	cw.calendarFeedEntry.SetPlaceHolder(filepath.Join(cw.wt.dataDir, feedFile))
	cw.calendarFeedEntry.SetText(cw.config.CalendarFeed)
	cw.calendarFeedEntry.OnChanged = changed

	storageEntry := widget.NewEntry()
	storageEntry.SetText(cw.wt.dataDir)
	storageEntry.Disable()
	openStorageButton := widget.NewButton("Open in File Manager", func() {
		openInFileManager(cw.wt.dataDir)
	})

	backgroundHelp := widget.NewLabel(fmt.Sprintf("Currently running: %s (changes apply after restart)", cw.wt.gw.Kind()))
	backgroundHelp.Wrapping = fyne.TextWrapWord

	form := container.New(layout.NewFormLayout(),
		widget.NewLabel("Auto Start:"), cw.autoStartCheck,
		widget.NewLabel("Hold to dismiss (s):"), cw.holdTimeEntry,
		widget.NewLabel("Dismiss delay (s):"), cw.dismissDelayEntry,
		widget.NewLabel("Volume ramp (s):"), cw.volumeRampEntry,
		widget.NewLabel("Initial volume:"), container.NewBorder(nil, nil, nil, volumeValue, cw.initialVolumeSlider),
		container.NewVBox(widget.NewLabel("Background mode:")), container.NewVBox(cw.backgroundSelect, backgroundHelp),
		widget.NewLabel("Calendar feed:"), cw.calendarFeedEntry,
		widget.NewLabel("Storage Location:"), container.NewBorder(nil, container.NewPadded(openStorageButton), nil, nil, storageEntry),
	)

	content := container.NewVBox(
		widget.NewLabel("General Settings"),
		widget.NewSeparator(),
		form,
	)

	return container.NewPadded(container.NewVScroll(content))
}

func openInFileManager(path string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		log.Printf("[CONFIG] Unsupported OS: %s", runtime.GOOS)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Printf("[CONFIG] Error opening file manager: %v", err)
	}
}
