// Package trigger runs the foreground alarm check. One goroutine owns the
// per-minute de-duplication set and the session manager; timer ticks,
// background fired signals and UI requests are all handled there in turn.
package trigger

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/borgmon/waketube/pkg/gateway"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/session"
)

// DefaultInterval is the tick period of Run.
const DefaultInterval = time.Second

// ErrStopped is returned by requests made after Run has exited.
var ErrStopped = errors.New("trigger loop stopped")

// RuleSource supplies a consistent snapshot of the alarms each tick.
type RuleSource interface {
	List() []models.AlarmRule
}

// Config wires a Loop.
type Config struct {
	Rules    RuleSource
	Sessions *session.Manager
	// Fired is the gateway signal channel; nil when there is none.
	Fired    <-chan gateway.Fired
	Interval time.Duration
	Now      func() time.Time

	// OnRing runs on the loop goroutine for every new session and must not block.
	OnRing func(session.Session)
	// OnDismiss runs on the loop goroutine after a dismissal and must not block.
	OnDismiss func(session.Session)
	// OnFire runs on its own goroutine so it may call back into the store.
	OnFire func(alarmID string, at time.Time)
}

// minuteKey counts absolute minutes, so a wall-clock minute that repeats
// when the clocks fall back gets a new key.
type minuteKey int64

func keyOf(t time.Time) minuteKey {
	return minuteKey(t.Unix() / 60)
}

type request struct {
	fn   func()
	done chan struct{}
}

// Loop is the foreground trigger loop.
type Loop struct {
	cfg      Config
	requests chan request
	stopped  chan struct{}

	minute    minuteKey
	triggered map[string]bool
	// rang holds the occurrence each alarm last rang for. It outlives the
	// minute set, so a wall-clock minute repeated by a clock change or a
	// dismissal inside the minute cannot ring the same occurrence twice.
	rang map[string]time.Time
}

// New creates a loop. Nothing runs until Run is called.
func New(cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewManager(0)
	}
	return &Loop{
		cfg:       cfg,
		requests:  make(chan request),
		stopped:   make(chan struct{}),
		triggered: make(map[string]bool),
		rang:      make(map[string]time.Time),
	}
}

// Run processes ticks, fired signals and requests until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	fired := l.cfg.Fired
	l.Tick(l.cfg.Now())

	for {
		select {
		case <-ctx.Done():
			log.Println("[TRIGGER] Loop stopped")
			return

		case <-ticker.C:
			l.Tick(l.cfg.Now())

		case f, ok := <-fired:
			if !ok {
				fired = nil
				continue
			}
			l.Signal(f, l.cfg.Now())

		case req := <-l.requests:
			req.fn()
			close(req.done)
		}
	}
}

// Tick scans the rules once for now and returns the sessions it started.
// It must only be called from the goroutine that owns the loop.
func (l *Loop) Tick(now time.Time) []session.Session {
	l.rollMinute(now)

	var started []session.Session
	for _, rule := range l.cfg.Rules.List() {
		if s, ok := l.evaluate(rule, now); ok {
			started = append(started, s)
		}
	}
	return started
}

// Signal merges a background fired signal into the loop state.
// It must only be called from the goroutine that owns the loop.
func (l *Loop) Signal(f gateway.Fired, now time.Time) (session.Session, bool) {
	l.rollMinute(now)

	if f.ID == "" || l.triggered[f.ID] || l.cfg.Sessions.Live(f.ID) {
		return session.Session{}, false
	}
	rule, ok := l.lookup(f.ID)
	if !ok || !rule.Enabled {
		log.Printf("[TRIGGER] Ignoring fired signal for %s: alarm no longer enabled", f.ID)
		return session.Session{}, false
	}
	// A late signal has no occurrence in the current minute and is taken as is.
	occurrence, _ := rule.Occurrence(now)
	if !occurrence.IsZero() && l.rang[f.ID].Equal(occurrence) {
		return session.Session{}, false
	}

	snap := session.Snapshot{
		AlarmID:  f.ID,
		Label:    f.Label,
		VideoURL: f.Media,
		Source:   session.SourceBackground,
	}
	if snap.Label == "" {
		snap.Label = rule.DisplayLabel()
	}
	if snap.VideoURL == "" {
		snap.VideoURL = rule.VideoURL
	}
	return l.start(snap, now, occurrence)
}

// DismissAt ends the session for alarmID.
// It must only be called from the goroutine that owns the loop.
func (l *Loop) DismissAt(alarmID string, now time.Time) (session.Session, error) {
	s, err := l.cfg.Sessions.Dismiss(alarmID, now)
	if err != nil {
		return s, err
	}
	if l.cfg.OnDismiss != nil {
		l.cfg.OnDismiss(s)
	}
	return s, nil
}

// Dismiss asks the running loop to end the session for alarmID.
func (l *Loop) Dismiss(ctx context.Context, alarmID string) (session.Session, error) {
	var s session.Session
	var derr error
	err := l.do(ctx, func() {
		s, derr = l.DismissAt(alarmID, l.cfg.Now())
	})
	if err != nil {
		return session.Session{}, err
	}
	return s, derr
}

// Sessions returns the live sessions of the running loop, oldest first.
func (l *Loop) Sessions(ctx context.Context) ([]session.Session, error) {
	var out []session.Session
	err := l.do(ctx, func() {
		out = l.cfg.Sessions.Active()
	})
	return out, err
}

// SetDismissDelay changes the dismiss delay for sessions started afterwards.
func (l *Loop) SetDismissDelay(ctx context.Context, d time.Duration) error {
	return l.do(ctx, func() {
		l.cfg.Sessions.SetDismissDelay(d)
	})
}

func (l *Loop) do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case l.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrStopped
	}
	<-req.done
	return nil
}

// rollMinute clears the de-duplication set when the minute changes.
func (l *Loop) rollMinute(now time.Time) {
	key := keyOf(now)
	if key == l.minute {
		return
	}
	l.minute = key
	clear(l.triggered)
}

// evaluate starts a session for rule if it is due. A panic while handling
// one rule is logged and does not stop the scan.
func (l *Loop) evaluate(rule models.AlarmRule, now time.Time) (s session.Session, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[TRIGGER] Recovered while evaluating alarm %s: %v", rule.ID, r)
			s, ok = session.Session{}, false
		}
	}()

	occurrence, due := rule.Occurrence(now)
	if !due || l.triggered[rule.ID] || l.rang[rule.ID].Equal(occurrence) || l.cfg.Sessions.Live(rule.ID) {
		return session.Session{}, false
	}
	return l.start(session.Snapshot{
		AlarmID:  rule.ID,
		Label:    rule.DisplayLabel(),
		VideoURL: rule.VideoURL,
		Source:   session.SourceForeground,
	}, now, occurrence)
}

// start opens a session. occurrence is zero when a signal arrived outside
// the scheduled minute.
func (l *Loop) start(snap session.Snapshot, now, occurrence time.Time) (session.Session, bool) {
	s, err := l.cfg.Sessions.Start(snap, now)
	if err != nil {
		log.Printf("[TRIGGER] Not starting %s: %v", snap.AlarmID, err)
		return session.Session{}, false
	}
	l.triggered[snap.AlarmID] = true
	if !occurrence.IsZero() {
		l.rang[snap.AlarmID] = occurrence
	}

	if l.cfg.OnRing != nil {
		l.cfg.OnRing(s)
	}
	if l.cfg.OnFire != nil {
		go l.cfg.OnFire(s.AlarmID, now)
	}
	return s, true
}

func (l *Loop) lookup(id string) (models.AlarmRule, bool) {
	for _, rule := range l.cfg.Rules.List() {
		if rule.ID == id {
			return rule, true
		}
	}
	return models.AlarmRule{}, false
}
