package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
)

// setupAutostart registers launching the app at login. The entry points at
// the current executable and data dir, so boot recovery reads the same alarms.
func setupAutostart(enable bool, dataDir string) error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return err
	}

	app := &autostart.App{
		Name:        "waketube",
		DisplayName: "WakeTube",
		Exec:        []string{execPath, "--data-dir", dataDir},
	}

	if enable {
		if !app.IsEnabled() {
			if err := app.Enable(); err != nil {
				log.Printf("[AUTOSTART] Failed to enable autostart: %v", err)
				return err
			}
			log.Println("[AUTOSTART] Autostart enabled")
		}
		return nil
	}
	if app.IsEnabled() {
		if err := app.Disable(); err != nil {
			log.Printf("[AUTOSTART] Failed to disable autostart: %v", err)
			return err
		}
		log.Println("[AUTOSTART] Autostart disabled")
	}
	return nil
}
