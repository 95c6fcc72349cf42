package models

import "time"

// BackgroundMode selects the background scheduling variant.
type BackgroundMode string

const (
	BackgroundAuto         BackgroundMode = "auto"         // Pick from detected platform capabilities
	BackgroundExact        BackgroundMode = "exact"        // In-process exact wake timer
	BackgroundNotification BackgroundMode = "notification" // Desktop notification + calendar feed
	BackgroundNone         BackgroundMode = "none"         // Foreground loop only
)

// Config holds application configuration
type Config struct {
	AutoStart           bool           `json:"auto_start"`
	HoldTimeSeconds     int            `json:"hold_time_seconds"`     // dismiss button hold time
	DismissDelaySeconds int            `json:"dismiss_delay_seconds"` // before dismiss becomes interactive
	VolumeRampSeconds   int            `json:"volume_ramp_seconds"`   // ringer reaches full volume after this
	InitialVolume       float64        `json:"initial_volume"`        // 0..1
	BackgroundMode      BackgroundMode `json:"background_mode"`
	CalendarFeed        string         `json:"calendar_feed"` // iCal feed path for the notification variant
}

// DefaultConfig returns the settings used on first launch.
func DefaultConfig() *Config {
	return &Config{
		AutoStart:           false,
		HoldTimeSeconds:     3,
		DismissDelaySeconds: 2,
		VolumeRampSeconds:   30,
		InitialVolume:       0.2,
		BackgroundMode:      BackgroundAuto,
	}
}

// DismissDelay returns the delay before the dismiss control is enabled.
func (c *Config) DismissDelay() time.Duration {
	if c.DismissDelaySeconds < 0 {
		return 0
	}
	return time.Duration(c.DismissDelaySeconds) * time.Second
}

// VolumeRamp returns how long the ringer takes to reach full volume.
func (c *Config) VolumeRamp() time.Duration {
	if c.VolumeRampSeconds < 0 {
		return 0
	}
	return time.Duration(c.VolumeRampSeconds) * time.Second
}

// Valid reports whether mode is one of the known background modes.
func (m BackgroundMode) Valid() bool {
	switch m {
	case BackgroundAuto, BackgroundExact, BackgroundNotification, BackgroundNone:
		return true
	}
	return false
}
