package fsutil

import (
	"testing"

	"github.com/spf13/afero"
)

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cfg/waketube/alarms.json"

	if err := WriteFileAtomic(fs, path, []byte("[]"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(fs, path, []byte(`[{"id":"a"}]`), 0o600); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `[{"id":"a"}]` {
		t.Errorf("unexpected content %q", data)
	}

	entries, err := afero.ReadDir(fs, "/cfg/waketube")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}
