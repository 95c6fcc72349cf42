package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/borgmon/waketube/pkg/fsutil"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/spf13/afero"
)

// ErrCorruptState is returned when the alarms file is not a JSON array at all.
var ErrCorruptState = errors.New("alarm file is corrupt")

// Persister loads and saves the full alarm collection.
type Persister interface {
	Load() ([]models.AlarmRule, error)
	Save(rules []models.AlarmRule) error
}

// FilePersister keeps alarms as a JSON array in a single file.
// Records that cannot be loaded are appended to <path>.rejected.
type FilePersister struct {
	fs   afero.Fs
	path string

	mu       sync.Mutex
	lastHash [sha256.Size]byte
}

// NewFilePersister creates a persister for path on fs.
func NewFilePersister(fs afero.Fs, path string) *FilePersister {
	return &FilePersister{fs: fs, path: path}
}

// Path returns the alarms file location.
func (p *FilePersister) Path() string { return p.path }

// RejectedPath returns where unreadable records are quarantined.
func (p *FilePersister) RejectedPath() string { return p.path + ".rejected" }

// Load reads the collection. A missing or empty file is an empty collection.
// Malformed, invalid and duplicate-id records are skipped and quarantined.
func (p *FilePersister) Load() ([]models.AlarmRule, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.AlarmRule{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.lastHash = sha256.Sum256(data)
	p.mu.Unlock()

	if len(bytes.TrimSpace(data)) == 0 {
		return []models.AlarmRule{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, p.path, err)
	}

	rules := make([]models.AlarmRule, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	var rejected []rejectedRecord

	for i, msg := range raw {
		var rule models.AlarmRule
		if err := json.Unmarshal(msg, &rule); err != nil {
			rejected = append(rejected, rejectedRecord{Index: i, Reason: err.Error(), Record: msg})
			continue
		}
		if err := rule.Validate(); err != nil {
			rejected = append(rejected, rejectedRecord{Index: i, Reason: err.Error(), Record: msg})
			continue
		}
		if seen[rule.ID] {
			rejected = append(rejected, rejectedRecord{Index: i, Reason: "duplicate id " + rule.ID, Record: msg})
			continue
		}
		seen[rule.ID] = true
		rules = append(rules, rule)
	}

	if len(rejected) > 0 {
		for _, r := range rejected {
			log.Printf("[STORE] Skipping alarm record %d in %s: %s", r.Index, p.path, r.Reason)
		}
		if err := p.quarantine(rejected); err != nil {
			log.Printf("[STORE] Failed to quarantine rejected records: %v", err)
		}
	}

	return rules, nil
}

// Save rewrites the whole collection atomically.
func (p *FilePersister) Save(rules []models.AlarmRule) error {
	if rules == nil {
		rules = []models.AlarmRule{}
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}
	if err := fsutil.WriteFileAtomic(p.fs, p.path, data, 0o600); err != nil {
		return fmt.Errorf("save %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.lastHash = sha256.Sum256(data)
	p.mu.Unlock()
	return nil
}

// ChangedOnDisk reports whether the file differs from what this persister
// last read or wrote, i.e. another process rewrote it.
func (p *FilePersister) ChangedOnDisk() (bool, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return sha256.Sum256(data) != p.lastHash, nil
}

type rejectedRecord struct {
	Index      int             `json:"index"`
	Reason     string          `json:"reason"`
	Record     json.RawMessage `json:"record"`
	RejectedAt time.Time       `json:"rejectedAt"`
}

// quarantine appends one JSON line per rejected record.
func (p *FilePersister) quarantine(records []rejectedRecord) error {
	f, err := p.fs.OpenFile(p.RejectedPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	now := time.Now()
	enc := json.NewEncoder(f)
	for _, r := range records {
		r.RejectedAt = now
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
