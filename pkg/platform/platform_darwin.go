//go:build darwin

// Package platform wraps the few native calls the wake window needs.
package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AppKit
#import <Cocoa/Cocoa.h>
#import <AppKit/AppKit.h>

static void setAccessoryPolicy(void) {
    [NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
}

static int isAppActive(void) {
    return [NSApp isActive] ? 1 : 0;
}

static void activateApp(void) {
    [NSApp activateIgnoringOtherApps:YES];
}
*/
import "C"
import "log"

// SetActivationPolicy hides the Dock icon so WakeTube lives in the menu bar.
func SetActivationPolicy() {
	log.Println("[PLATFORM] Switching to accessory activation policy")
	C.setAccessoryPolicy()
}

// IsAppActive reports whether WakeTube is the frontmost application.
func IsAppActive() bool {
	return C.isAppActive() == 1
}

// ActivateApp brings WakeTube in front of other applications, used when
// an alarm rings while another app has focus.
func ActivateApp() {
	C.activateApp()
}
