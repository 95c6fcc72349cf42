package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/borgmon/waketube/pkg/models"
	"github.com/spf13/afero"
)

func TestFilePersisterMissingFile(t *testing.T) {
	p := NewFilePersister(afero.NewMemMapFs(), alarmsPath)
	rules, err := p.Load()
	if err != nil || len(rules) != 0 {
		t.Errorf("missing file should load empty, got %v %v", rules, err)
	}
}

func TestFilePersisterSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewFilePersister(fs, alarmsPath)
	next := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	in := []models.AlarmRule{
		{ID: "a", Time: models.TimeOfDay{Hour: 9}, Days: models.NewDaySet(time.Monday), Enabled: true, NextFireAt: &next},
		{ID: "b", Time: models.TimeOfDay{Hour: 6, Minute: 5}, Days: models.EveryDay, Label: "Run"},
	}
	if err := p.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := NewFilePersister(fs, alarmsPath).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].Label != "Run" || !out[0].NextFireAt.Equal(next) {
		t.Errorf("unexpected round trip %+v", out)
	}
}

func TestFilePersisterCorruptDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, alarmsPath, []byte(`{"not":"an array"}`), 0o600)

	_, err := NewFilePersister(fs, alarmsPath).Load()
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("expected ErrCorruptState, got %v", err)
	}
}

func TestFilePersisterQuarantinesBadRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := `[
  {"id":"good","time":"09:00","days":[1],"enabled":true,"videoUrl":"","label":""},
  {"id":"badtime","time":"9am","days":[1],"enabled":true,"videoUrl":"","label":""},
  {"id":"badday","time":"09:00","days":[9],"enabled":true,"videoUrl":"","label":""},
  {"id":"","time":"09:00","days":[1],"enabled":true,"videoUrl":"","label":""},
  {"id":"good","time":"10:00","days":[1],"enabled":true,"videoUrl":"","label":""},
  {"id":"media","time":"09:00","days":[1],"enabled":true,"videoUrl":"https://vimeo.com/1","label":""}
]`
	afero.WriteFile(fs, alarmsPath, []byte(doc), 0o600)
	p := NewFilePersister(fs, alarmsPath)

	rules, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "good" || rules[0].Time.Hour != 9 {
		t.Errorf("expected only the first good record, got %+v", rules)
	}

	rejected, err := afero.ReadFile(fs, p.RejectedPath())
	if err != nil {
		t.Fatalf("quarantine file missing: %v", err)
	}
	if lines := strings.Count(string(rejected), "\n"); lines != 5 {
		t.Errorf("expected 5 quarantined records, got %d:\n%s", lines, rejected)
	}
	if !strings.Contains(string(rejected), "duplicate id good") {
		t.Errorf("duplicate not recorded:\n%s", rejected)
	}
}

func TestFilePersisterChangedOnDisk(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewFilePersister(fs, alarmsPath)
	p.Save([]models.AlarmRule{{ID: "a", Time: models.TimeOfDay{Hour: 9}}})

	if changed, err := p.ChangedOnDisk(); err != nil || changed {
		t.Errorf("own write reported as external change: %v %v", changed, err)
	}

	afero.WriteFile(fs, alarmsPath, []byte(`[]`), 0o600)
	if changed, _ := p.ChangedOnDisk(); !changed {
		t.Error("external rewrite not detected")
	}
}
