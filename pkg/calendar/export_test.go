package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
)

func TestWriteFeedRoundTripsThroughDecoder(t *testing.T) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	entries := []Entry{
		{UID: "alarm-1", Start: start, Summary: "Gym", Media: "https://youtu.be/dQw4w9WgXcQ"},
		{UID: "alarm-2", Start: start.Add(time.Hour)},
	}

	var buf bytes.Buffer
	if err := WriteFeed(&buf, entries, start.Add(-time.Hour)); err != nil {
		t.Fatalf("WriteFeed: %v", err)
	}

	cal, err := ical.NewDecoder(strings.NewReader(buf.String())).Decode()
	if err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if uid := first.Props.Get(ical.PropUID); uid == nil || uid.Value != "alarm-1" {
		t.Errorf("unexpected UID %v", uid)
	}
	dtstart, err := first.DateTimeStart(time.UTC)
	if err != nil || !dtstart.Equal(start) {
		t.Errorf("DTSTART = %v, %v; want %v", dtstart, err, start)
	}
	if media := first.Props.Get(PropMedia); media == nil || media.Value != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("missing media property, got %v", media)
	}

	var alarms int
	for _, child := range first.Children {
		if child.Name == ical.CompAlarm {
			alarms++
			if action := child.Props.Get(ical.PropAction); action == nil || action.Value != "DISPLAY" {
				t.Errorf("unexpected VALARM action %v", action)
			}
		}
	}
	if alarms != 1 {
		t.Errorf("expected one VALARM, got %d", alarms)
	}

	if summary := events[1].Props.Get(ical.PropSummary); summary == nil || summary.Value != "WakeTube alarm" {
		t.Errorf("expected default summary, got %v", summary)
	}
}
