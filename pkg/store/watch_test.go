package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchSeesRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alarms.json")
	os.WriteFile(path, []byte("[]"), 0o600)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0o600)
	os.WriteFile(path, []byte(`[{"id":"a"}]`), 0o600)

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change callback")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}
