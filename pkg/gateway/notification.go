package gateway

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
)

// Notifier delivers a desktop notification. fyne.App satisfies it.
type Notifier interface {
	SendNotification(*fyne.Notification)
}

// Notification posts a desktop notification when an alarm comes due and
// keeps an iCalendar feed of pending alarms for calendar clients that can
// raise them while the app is closed.
type Notification struct {
	*timerGateway
	notifier Notifier
	feed     *FeedWriter
}

func NewNotification(notifier Notifier, feed *FeedWriter, permission PermissionFunc) *Notification {
	g := &Notification{notifier: notifier, feed: feed}
	g.timerGateway = newTimerGateway(permission, g.notify, g.publish)
	return g
}

func (g *Notification) Kind() Kind { return KindNotification }

func (g *Notification) BackgroundCapable() bool { return true }

func (g *Notification) notify(f Fired) {
	if g.notifier == nil {
		return
	}
	title := f.Label
	if title == "" {
		title = "Alarm"
	}
	g.notifier.SendNotification(fyne.NewNotification(title, fmt.Sprintf("WakeTube alarm for %s", f.At.Format("15:04"))))
}

func (g *Notification) publish(pending []Registration) {
	if g.feed == nil {
		return
	}
	if err := g.feed.Write(pending); err != nil {
		log.Printf("[GATEWAY] Failed to write calendar feed %s: %v", g.feed.Path(), err)
	}
}
