package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

const (
	productID = "-//borgmon//WakeTube//EN"

	// PropMedia carries the alarm's video link on exported events.
	PropMedia = "X-WAKETUBE-MEDIA"
)

// Entry is one pending alarm occurrence in an exported feed.
type Entry struct {
	UID     string
	Start   time.Time
	Summary string
	Media   string
}

// BuildFeed renders entries as VEVENTs, each carrying a display VALARM that
// triggers at the event start.
func BuildFeed(entries []Entry, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, entry := range entries {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, entry.UID)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, entry.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, entry.Start.Add(time.Minute).UTC())
		event.Props.SetText(ical.PropSummary, summaryOf(entry))
		if entry.Media != "" {
			event.Props.SetText(ical.PropDescription, entry.Media)
			event.Props.SetText(PropMedia, entry.Media)
		}

		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, summaryOf(entry))
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = "PT0S"
		alarm.Props.Set(trigger)
		event.Children = append(event.Children, alarm)

		cal.Children = append(cal.Children, event.Component)
	}

	return cal
}

// WriteFeed encodes the feed for entries to w.
func WriteFeed(w io.Writer, entries []Entry, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(BuildFeed(entries, stamp)); err != nil {
		return fmt.Errorf("failed to encode calendar feed: %w", err)
	}
	return nil
}

func summaryOf(entry Entry) string {
	if entry.Summary != "" {
		return entry.Summary
	}
	return "WakeTube alarm"
}
