package main

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/borgmon/waketube/pkg/audio"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/platform"
	"github.com/borgmon/waketube/pkg/session"
	"github.com/borgmon/waketube/pkg/ui/components"
	"github.com/borgmon/waketube/pkg/youtube"
)

const focusCheckInterval = 500 * time.Millisecond

// WakeWindow is the full screen view of one ringing session. It can only
// be closed through the hold-to-dismiss button.
type WakeWindow struct {
	window    fyne.Window
	app       fyne.App
	session   session.Session
	config    *models.Config
	guard     *quitGuard
	onDismiss func()

	ringer         *audio.Ringer
	dismissButton  *components.HoldButton
	enableTimer    *time.Timer
	stopMonitoring chan struct{}
	closed         bool
}

// NewWakeWindow builds the window for s. It must be called on the fyne thread.
func NewWakeWindow(app fyne.App, s session.Session, config *models.Config, guard *quitGuard, onDismiss func()) *WakeWindow {
	ww := &WakeWindow{
		app:            app,
		session:        s,
		config:         config,
		guard:          guard,
		onDismiss:      onDismiss,
		stopMonitoring: make(chan struct{}),
	}

	ww.ringer = audio.Ring(audio.Ramp{
		Initial:  config.InitialVolume,
		Duration: config.VolumeRamp(),
	})

	ww.window = app.NewWindow("WakeTube")
	ww.window.SetFullScreen(true)
	ww.buildUI()
	ww.window.SetCloseIntercept(func() {
		log.Printf("[WAKE] Close blocked for %s - hold the dismiss button", s.AlarmID)
	})
	ww.window.SetOnClosed(ww.cleanup)

	ww.armDismiss()
	ww.guard.Acquire()
	ww.setupFocusMonitoring()
	ww.openVideo()

	return ww
}

func (ww *WakeWindow) buildUI() {
	title := canvas.NewText(ww.session.Label, nil)
	if title.Text == "" {
		title.Text = "Alarm"
	}
	title.TextSize = 40
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.Alignment = fyne.TextAlignCenter

	clock := canvas.NewText(ww.session.StartedAt.Format("15:04"), nil)
	clock.TextSize = 72
	clock.Alignment = fyne.TextAlignCenter

	videoButton := widget.NewButton("Open Video", ww.openVideo)
	videoButton.Importance = widget.HighImportance

	volume := widget.NewSlider(0, 1)
	volume.Step = 0.05
	if ww.ringer != nil {
		volume.SetValue(ww.ringer.Volume())
		volume.OnChanged = func(v float64) {
			ww.ringer.SetVolume(v)
		}
	} else {
		volume.Disable()
	}
	volumeRow := container.NewBorder(nil, nil, widget.NewLabel("Volume"), nil, volume)

	hold := time.Duration(ww.config.HoldTimeSeconds) * time.Second
	ww.dismissButton = components.NewHoldButton(
		fmt.Sprintf("Dismiss (Hold %ds)", ww.config.HoldTimeSeconds),
		hold,
		ww.dismiss,
	)
	ww.dismissButton.Disable()

	content := container.NewVBox(
		container.NewPadded(title),
		clock,
		widget.NewSeparator(),
		container.NewCenter(videoButton),
		container.NewPadded(volumeRow),
		widget.NewSeparator(),
		ww.dismissButton,
	)

	ww.window.SetContent(container.NewPadded(container.NewCenter(content)))
}

// armDismiss enables the dismiss button once the session allows it.
func (ww *WakeWindow) armDismiss() {
	wait := time.Until(ww.session.DismissibleAt)
	if wait <= 0 {
		ww.dismissButton.Enable()
		return
	}
	ww.enableTimer = time.AfterFunc(wait, func() {
		fyne.Do(func() {
			if !ww.closed {
				ww.dismissButton.Enable()
			}
		})
	})
}

func (ww *WakeWindow) openVideo() {
	u, err := url.Parse(youtube.WatchURL(ww.session.VideoURL))
	if err != nil {
		log.Printf("[WAKE] Bad video URL for %s: %v", ww.session.AlarmID, err)
		return
	}
	if err := ww.app.OpenURL(u); err != nil {
		log.Printf("[WAKE] Failed to open video: %v", err)
	}
}

func (ww *WakeWindow) dismiss() {
	ww.dismissButton.Disable()
	if ww.ringer != nil {
		ww.ringer.Stop()
	}
	if ww.onDismiss != nil {
		ww.onDismiss()
	}
}

// Show raises the window.
func (ww *WakeWindow) Show() {
	ww.window.Show()
	ww.window.RequestFocus()
}

// Close tears the window down after the session was dismissed.
func (ww *WakeWindow) Close() {
	ww.window.Close()
}

func (ww *WakeWindow) cleanup() {
	if ww.closed {
		return
	}
	ww.closed = true
	close(ww.stopMonitoring)
	ww.guard.Release()
	if ww.enableTimer != nil {
		ww.enableTimer.Stop()
	}
	if ww.ringer != nil {
		ww.ringer.Stop()
	}
}

// setupFocusMonitoring keeps the window in front and tells the quit guard
// when the app gains or loses focus.
func (ww *WakeWindow) setupFocusMonitoring() {
	go func() {
		ticker := time.NewTicker(focusCheckInterval)
		defer ticker.Stop()

		wasFocused := true
		for {
			select {
			case <-ww.stopMonitoring:
				return
			case <-ticker.C:
				focused := platform.IsAppActive()
				if focused != wasFocused {
					ww.guard.SetFocused(focused)
				}

				if !focused {
					log.Println("[WAKE] Wake window not active - bringing to front")
					fyne.Do(func() {
						platform.ActivateApp()
						if !ww.closed {
							ww.window.Show()
						}
					})
				}
				wasFocused = focused
			}
		}
	}()
}
