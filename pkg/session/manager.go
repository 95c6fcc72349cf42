package session

import (
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyRinging is returned when a rule already has a live session.
	ErrAlreadyRinging = errors.New("alarm is already ringing")
	// ErrNotRinging is returned when dismissing a rule with no live session.
	ErrNotRinging = errors.New("alarm is not ringing")
	// ErrMissingAlarmID is returned when a snapshot carries no rule id.
	ErrMissingAlarmID = errors.New("missing alarm id")
)

// State is the session state. Ringing is the only live state.
type State int

const (
	Ringing State = iota
	Dismissed
)

func (s State) String() string {
	switch s {
	case Ringing:
		return "ringing"
	case Dismissed:
		return "dismissed"
	}
	return "unknown"
}

// Source tells which path raised the session.
type Source string

const (
	SourceForeground Source = "foreground" // trigger loop matched the minute
	SourceBackground Source = "background" // gateway fired signal
)

// Snapshot is the part of a rule copied at firing time.
// Later edits to the rule never reach an in-flight session.
type Snapshot struct {
	AlarmID  string
	Label    string
	VideoURL string
	Source   Source
}

// Session is one ringing alarm awaiting dismissal.
type Session struct {
	ID            string
	AlarmID       string
	Label         string
	VideoURL      string
	Source        Source
	State         State
	StartedAt     time.Time
	DismissibleAt time.Time
	DismissedAt   time.Time
}

// Manager tracks live sessions, at most one per alarm id.
// It is not safe for concurrent use; the trigger loop owns it.
type Manager struct {
	dismissDelay time.Duration
	live         map[string]*Session
}

// NewManager creates a manager. dismissDelay gates the dismiss control in the UI.
func NewManager(dismissDelay time.Duration) *Manager {
	if dismissDelay < 0 {
		dismissDelay = 0
	}
	return &Manager{
		dismissDelay: dismissDelay,
		live:         make(map[string]*Session),
	}
}

// SetDismissDelay changes the delay applied to sessions started afterwards.
func (m *Manager) SetDismissDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.dismissDelay = d
}

// Start enters Ringing for snap.AlarmID.
func (m *Manager) Start(snap Snapshot, now time.Time) (Session, error) {
	if snap.AlarmID == "" {
		return Session{}, ErrMissingAlarmID
	}
	if _, ok := m.live[snap.AlarmID]; ok {
		return Session{}, ErrAlreadyRinging
	}

	s := &Session{
		ID:            uuid.New().String(),
		AlarmID:       snap.AlarmID,
		Label:         snap.Label,
		VideoURL:      snap.VideoURL,
		Source:        snap.Source,
		State:         Ringing,
		StartedAt:     now,
		DismissibleAt: now.Add(m.dismissDelay),
	}
	m.live[snap.AlarmID] = s
	log.Printf("[SESSION] Ringing: alarm=%s label=%q source=%s", s.AlarmID, s.Label, s.Source)
	return *s, nil
}

// Dismiss ends the live session for alarmID. Other sessions are untouched.
func (m *Manager) Dismiss(alarmID string, now time.Time) (Session, error) {
	s, ok := m.live[alarmID]
	if !ok {
		return Session{}, ErrNotRinging
	}
	delete(m.live, alarmID)

	s.State = Dismissed
	s.DismissedAt = now
	log.Printf("[SESSION] Dismissed: alarm=%s after %s", alarmID, now.Sub(s.StartedAt).Round(time.Second))
	return *s, nil
}

// Live reports whether alarmID has a ringing session.
func (m *Manager) Live(alarmID string) bool {
	_, ok := m.live[alarmID]
	return ok
}

// Get returns the live session for alarmID.
func (m *Manager) Get(alarmID string) (Session, bool) {
	s, ok := m.live[alarmID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Active returns copies of all live sessions, oldest first.
func (m *Manager) Active() []Session {
	out := make([]Session, 0, len(m.live))
	for _, s := range m.live {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].AlarmID < out[j].AlarmID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return len(m.live)
}
