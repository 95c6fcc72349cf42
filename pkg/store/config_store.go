package store

import (
	"fyne.io/fyne/v2"
	"github.com/borgmon/waketube/pkg/models"
)

const (
	keyAutoStart      = "auto_start"
	keyHoldTime       = "hold_time_seconds"
	keyDismissDelay   = "dismiss_delay_seconds"
	keyVolumeRamp     = "volume_ramp_seconds"
	keyInitialVolume  = "initial_volume"
	keyBackgroundMode = "background_mode"
	keyCalendarFeed   = "calendar_feed"
)

// ConfigStore handles configuration persistence using Fyne preferences
type ConfigStore struct {
	prefs fyne.Preferences
}

// NewConfigStore creates a new ConfigStore instance
func NewConfigStore(app fyne.App) *ConfigStore {
	return &ConfigStore{prefs: app.Preferences()}
}

// Load loads configuration from preferences
func (cs *ConfigStore) Load() *models.Config {
	def := models.DefaultConfig()

	config := &models.Config{
		AutoStart:           cs.prefs.BoolWithFallback(keyAutoStart, def.AutoStart),
		HoldTimeSeconds:     cs.prefs.IntWithFallback(keyHoldTime, def.HoldTimeSeconds),
		DismissDelaySeconds: cs.prefs.IntWithFallback(keyDismissDelay, def.DismissDelaySeconds),
		VolumeRampSeconds:   cs.prefs.IntWithFallback(keyVolumeRamp, def.VolumeRampSeconds),
		InitialVolume:       cs.prefs.FloatWithFallback(keyInitialVolume, def.InitialVolume),
		BackgroundMode:      models.BackgroundMode(cs.prefs.StringWithFallback(keyBackgroundMode, string(def.BackgroundMode))),
		CalendarFeed:        cs.prefs.StringWithFallback(keyCalendarFeed, def.CalendarFeed),
	}

	// Repair values a hand-edited preferences file may carry
	if !config.BackgroundMode.Valid() {
		config.BackgroundMode = def.BackgroundMode
	}
	if config.HoldTimeSeconds < 1 {
		config.HoldTimeSeconds = def.HoldTimeSeconds
	}
	if config.InitialVolume < 0 || config.InitialVolume > 1 {
		config.InitialVolume = def.InitialVolume
	}

	return config
}

// Save saves configuration to preferences
func (cs *ConfigStore) Save(config *models.Config) {
	cs.prefs.SetBool(keyAutoStart, config.AutoStart)
	cs.prefs.SetInt(keyHoldTime, config.HoldTimeSeconds)
	cs.prefs.SetInt(keyDismissDelay, config.DismissDelaySeconds)
	cs.prefs.SetInt(keyVolumeRamp, config.VolumeRampSeconds)
	cs.prefs.SetFloat(keyInitialVolume, config.InitialVolume)
	cs.prefs.SetString(keyBackgroundMode, string(config.BackgroundMode))
	cs.prefs.SetString(keyCalendarFeed, config.CalendarFeed)
}
