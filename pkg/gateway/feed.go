package gateway

import (
	"bytes"
	"os"
	"time"

	"github.com/borgmon/waketube/pkg/calendar"
	"github.com/borgmon/waketube/pkg/fsutil"
	"github.com/spf13/afero"
)

// FeedWriter publishes pending registrations as an iCalendar file.
type FeedWriter struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

func NewFeedWriter(fs afero.Fs, path string) *FeedWriter {
	return &FeedWriter{fs: fs, path: path, now: time.Now}
}

func (w *FeedWriter) Path() string { return w.path }

// Write replaces the feed with one event per pending registration.
// With nothing pending the feed file is removed.
func (w *FeedWriter) Write(pending []Registration) error {
	if len(pending) == 0 {
		if err := w.fs.Remove(w.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	entries := make([]calendar.Entry, 0, len(pending))
	for _, r := range pending {
		entries = append(entries, calendar.Entry{
			UID:     r.ID,
			Start:   r.FireAt,
			Summary: r.Label,
			Media:   r.Media,
		})
	}

	var buf bytes.Buffer
	if err := calendar.WriteFeed(&buf, entries, w.now()); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(w.fs, w.path, buf.Bytes(), 0o644)
}
