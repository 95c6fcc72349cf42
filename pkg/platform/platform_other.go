//go:build !darwin

// Package platform wraps the few native calls the wake window needs.
package platform

// SetActivationPolicy is a no-op outside macOS; the tray icon is the only
// entry point there.
func SetActivationPolicy() {}

// IsAppActive always reports true outside macOS, so the wake window is
// never pulled back to the front.
func IsAppActive() bool {
	return true
}

// ActivateApp is a no-op outside macOS; fyne's Window.Show raises the window.
func ActivateApp() {}
