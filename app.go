package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/borgmon/waketube/pkg/audio"
	"github.com/borgmon/waketube/pkg/gateway"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/platform"
	"github.com/borgmon/waketube/pkg/session"
	"github.com/borgmon/waketube/pkg/store"
	"github.com/borgmon/waketube/pkg/trigger"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

// WakeTube is the running desktop app.
type WakeTube struct {
	app     fyne.App
	dataDir string

	configStore *store.ConfigStore
	config      *models.Config

	persister *store.FilePersister
	alarms    *store.AlarmStore
	gw        gateway.Gateway
	loop      *trigger.Loop

	cancel context.CancelFunc

	// UI state, touched on the fyne thread only.
	configWindow *ConfigWindow
	wakeWindows  map[string]*WakeWindow
	quitGuard    *quitGuard

	// reloadMu keeps file reloads from overlapping.
	reloadMu sync.Mutex
}

func runApp(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("%w: unknown command %q", errUsage, c.Args().First())
	}
	dir, err := dataDir(c)
	if err != nil {
		return err
	}
	wt := &WakeTube{
		app:         app.NewWithID(appID),
		dataDir:     dir,
		wakeWindows: make(map[string]*WakeWindow),
		quitGuard:   newQuitGuard(registerCmdQPrevention),
	}
	if err := wt.initialize(); err != nil {
		return err
	}
	wt.run()
	return nil
}

func (wt *WakeTube) initialize() error {
	wt.configStore = store.NewConfigStore(wt.app)
	wt.config = wt.configStore.Load()

	if err := setupAutostart(wt.config.AutoStart, wt.dataDir); err != nil {
		log.Printf("[APP] Warning: failed to setup autostart: %v", err)
	}
	wt.configStore.Save(wt.config)

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(wt.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	audio.InitAudioContext()

	kind := gateway.Resolve(wt.config.BackgroundMode, detectCapabilities())
	gw, err := gateway.New(kind, gateway.Options{
		OnWake: func(f gateway.Fired) {
			log.Printf("[APP] Background wake for %s", f.ID)
			fyne.Do(platform.ActivateApp)
		},
		Notifier: wt.app,
		Feed:     gateway.NewFeedWriter(fs, wt.feedPath()),
	})
	if err != nil {
		return err
	}
	wt.gw = gw
	log.Printf("[APP] Background scheduling: %s", kind)

	wt.persister = store.NewFilePersister(fs, filepath.Join(wt.dataDir, alarmsFile))
	wt.alarms = store.NewAlarmStore(wt.persister, wt.gw)
	if err := wt.alarms.Load(); err != nil {
		wt.gw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	wt.cancel = cancel

	if _, err := wt.alarms.Recover(ctx); err != nil {
		log.Printf("[APP] Recovery failed: %v", err)
	}
	wt.alarms.OnChange(func() {
		fyne.Do(wt.alarmsChanged)
	})

	wt.loop = trigger.New(trigger.Config{
		Rules:    wt.alarms,
		Sessions: session.NewManager(wt.config.DismissDelay()),
		Fired:    wt.gw.Fired(),
		OnRing: func(s session.Session) {
			fyne.Do(func() { wt.showWakeWindow(s) })
		},
		OnDismiss: func(s session.Session) {
			fyne.Do(func() { wt.closeWakeWindow(s.AlarmID) })
		},
		OnFire: func(alarmID string, at time.Time) {
			if _, err := wt.alarms.Rearm(ctx, alarmID, at); err != nil && !errors.Is(err, store.ErrNotFound) {
				log.Printf("[APP] Failed to rearm %s: %v", alarmID, err)
			}
		},
	})
	go wt.loop.Run(ctx)
	go wt.watchAlarmFile(ctx)

	wt.setupSystemTray()

	if len(wt.alarms.List()) == 0 {
		wt.showConfigWindow()
	}
	return nil
}

func (wt *WakeTube) run() {
	wt.app.Lifecycle().SetOnStarted(func() {
		platform.SetActivationPolicy()
	})
	wt.app.Run()
}

func (wt *WakeTube) feedPath() string {
	if wt.config.CalendarFeed != "" {
		return wt.config.CalendarFeed
	}
	return filepath.Join(wt.dataDir, feedFile)
}

// detectCapabilities reports the background primitives of a desktop
// build: the in-process wake timer and fyne desktop notifications.
func detectCapabilities() gateway.Capabilities {
	return gateway.Capabilities{WakeAPI: true, NotificationAPI: true}
}

// watchAlarmFile reloads alarms edited outside the app, e.g. by the CLI.
func (wt *WakeTube) watchAlarmFile(ctx context.Context) {
	err := store.Watch(ctx, wt.persister.Path(), func() {
		wt.reloadMu.Lock()
		defer wt.reloadMu.Unlock()

		changed, err := wt.persister.ChangedOnDisk()
		if err != nil || !changed {
			return
		}
		log.Println("[APP] Alarm file changed on disk, reloading")
		if err := wt.alarms.Load(); err != nil {
			log.Printf("[APP] Reload failed: %v", err)
			return
		}
		if _, err := wt.alarms.Recover(ctx); err != nil {
			log.Printf("[APP] Re-registration after reload failed: %v", err)
		}
		fyne.Do(wt.alarmsChanged)
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("[APP] Not watching alarm file: %v", err)
	}
}

func (wt *WakeTube) alarmsChanged() {
	wt.updateSystemTrayMenu()
	if wt.configWindow != nil {
		wt.configWindow.refreshAlarms()
	}
}

func (wt *WakeTube) showConfigWindow() {
	if wt.configWindow != nil {
		wt.configWindow.window.RequestFocus()
		wt.configWindow.window.Show()
		return
	}

	wt.configWindow = NewConfigWindow(wt, func(newConfig *models.Config) {
		wt.applyConfig(newConfig)
	})
	wt.configWindow.window.SetOnClosed(func() {
		wt.configWindow = nil
	})
	wt.configWindow.Show()
}

// applyConfig takes effect for new sessions. The background variant is
// chosen at startup, so a changed mode or feed path applies on restart.
func (wt *WakeTube) applyConfig(newConfig *models.Config) {
	restart := newConfig.BackgroundMode != wt.config.BackgroundMode ||
		newConfig.CalendarFeed != wt.config.CalendarFeed
	wt.config = newConfig
	wt.configStore.Save(newConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wt.loop.SetDismissDelay(ctx, newConfig.DismissDelay()); err != nil {
		log.Printf("[APP] Failed to update dismiss delay: %v", err)
	}
	if restart {
		log.Println("[APP] Background mode changes apply after restart")
	}
}

func (wt *WakeTube) showWakeWindow(s session.Session) {
	if w, ok := wt.wakeWindows[s.AlarmID]; ok {
		w.Show()
		return
	}
	w := NewWakeWindow(wt.app, s, wt.config, wt.quitGuard, func() {
		go wt.dismiss(s.AlarmID)
	})
	wt.wakeWindows[s.AlarmID] = w
	w.Show()
}

func (wt *WakeTube) closeWakeWindow(alarmID string) {
	w, ok := wt.wakeWindows[alarmID]
	if !ok {
		return
	}
	delete(wt.wakeWindows, alarmID)
	w.Close()
}

func (wt *WakeTube) dismiss(alarmID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := wt.loop.Dismiss(ctx, alarmID); err != nil {
		log.Printf("[APP] Dismiss %s: %v", alarmID, err)
		// The session is gone either way; don't leave the window stuck.
		fyne.Do(func() { wt.closeWakeWindow(alarmID) })
	}
}

func (wt *WakeTube) quit() {
	if wt.cancel != nil {
		wt.cancel()
	}
	if wt.gw != nil {
		if err := wt.gw.Close(); err != nil {
			log.Printf("[APP] Failed to close background scheduler: %v", err)
		}
	}
	wt.app.Quit()
}
