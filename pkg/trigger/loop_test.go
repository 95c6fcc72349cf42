package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/borgmon/waketube/pkg/gateway"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/session"
)

// mutableRules is a RuleSource tests can edit between ticks.
type mutableRules struct {
	mu    sync.Mutex
	rules []models.AlarmRule
}

func (m *mutableRules) List() []models.AlarmRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AlarmRule, len(m.rules))
	copy(out, m.rules)
	return out
}

func (m *mutableRules) set(rules ...models.AlarmRule) {
	m.mu.Lock()
	m.rules = rules
	m.mu.Unlock()
}

// 2024-01-01 is a Monday.
func at(day, hour, min, sec int) time.Time {
	return time.Date(2024, time.January, day, hour, min, sec, 0, time.UTC)
}

func rule(id string, hour, min int, days ...time.Weekday) models.AlarmRule {
	return models.AlarmRule{
		ID:      id,
		Time:    models.TimeOfDay{Hour: hour, Minute: min},
		Days:    models.NewDaySet(days...),
		Enabled: true,
	}
}

func newLoop(rules *mutableRules) *Loop {
	return New(Config{Rules: rules, Sessions: session.NewManager(2 * time.Second)})
}

func TestMondayNineFiresOnce(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	l := newLoop(rules)

	if got := l.Tick(at(1, 8, 59, 0)); len(got) != 0 {
		t.Fatalf("fired early: %+v", got)
	}
	got := l.Tick(at(1, 9, 0, 0))
	if len(got) != 1 || got[0].AlarmID != "a" {
		t.Fatalf("expected one session for a, got %+v", got)
	}
	if got := l.Tick(at(1, 9, 0, 30)); len(got) != 0 {
		t.Errorf("re-fired within the minute: %+v", got)
	}
	if got := l.Tick(at(1, 9, 1, 0)); len(got) != 0 {
		t.Errorf("fired again while still ringing: %+v", got)
	}
	if n := l.cfg.Sessions.Count(); n != 1 {
		t.Errorf("expected exactly one live session, got %d", n)
	}
}

func TestTuesdayRuleDoesNotFireMonday(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Tuesday))
	l := newLoop(rules)

	l.Tick(at(1, 8, 59, 0))
	if got := l.Tick(at(1, 9, 0, 0)); len(got) != 0 {
		t.Errorf("Tuesday alarm fired on Monday: %+v", got)
	}
}

func TestDedupAcrossSecondTicks(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	l := newLoop(rules)

	total := 0
	for sec := 0; sec < 60; sec++ {
		total += len(l.Tick(at(1, 9, 0, sec)))
	}
	if total != 1 {
		t.Errorf("expected one session across the minute, got %d", total)
	}
}

func TestDedupSurvivesQuickDismiss(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	l := newLoop(rules)

	l.Tick(at(1, 9, 0, 0))
	if _, err := l.DismissAt("a", at(1, 9, 0, 5)); err != nil {
		t.Fatalf("DismissAt: %v", err)
	}
	if got := l.Tick(at(1, 9, 0, 6)); len(got) != 0 {
		t.Errorf("dismissed alarm re-fired in the same minute: %+v", got)
	}
	// Next week's occurrence is eligible again.
	if got := l.Tick(at(8, 9, 0, 0)); len(got) != 1 {
		t.Errorf("expected next occurrence to fire, got %+v", got)
	}
}

func TestSimultaneousAlarmsFireIndependently(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday), rule("b", 9, 0, time.Monday))
	l := newLoop(rules)

	if got := l.Tick(at(1, 9, 0, 0)); len(got) != 2 {
		t.Fatalf("expected two sessions, got %+v", got)
	}
	if _, err := l.DismissAt("a", at(1, 9, 0, 10)); err != nil {
		t.Fatalf("DismissAt: %v", err)
	}
	s, ok := l.cfg.Sessions.Get("b")
	if !ok || s.State != session.Ringing {
		t.Errorf("b should still be ringing, got %+v", s)
	}
}

func TestDisabledRuleDoesNotFire(t *testing.T) {
	r := rule("a", 9, 0, time.Monday)
	r.Enabled = false
	rules := &mutableRules{}
	rules.set(r)
	l := newLoop(rules)

	if got := l.Tick(at(1, 9, 0, 0)); len(got) != 0 {
		t.Errorf("disabled rule fired: %+v", got)
	}
}

func TestDeleteWhileRinging(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	l := newLoop(rules)

	l.Tick(at(1, 9, 0, 0))
	rules.set()
	l.Tick(at(1, 9, 0, 1))

	if _, err := l.DismissAt("a", at(1, 9, 0, 20)); err != nil {
		t.Errorf("session for a deleted rule should stay dismissible: %v", err)
	}
	if got := l.Tick(at(8, 9, 0, 0)); len(got) != 0 {
		t.Errorf("deleted rule fired again: %+v", got)
	}
}

func TestDismissWithoutSession(t *testing.T) {
	l := newLoop(&mutableRules{})
	if _, err := l.DismissAt("a", at(1, 9, 0, 0)); !errors.Is(err, session.ErrNotRinging) {
		t.Errorf("expected ErrNotRinging, got %v", err)
	}
}

func TestPanicInOneRuleDoesNotStopScan(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("boom", 9, 0, time.Monday), rule("ok", 9, 0, time.Monday))
	var rang []string
	l := New(Config{
		Rules:    rules,
		Sessions: session.NewManager(0),
		OnRing: func(s session.Session) {
			if s.AlarmID == "boom" {
				panic("renderer exploded")
			}
			rang = append(rang, s.AlarmID)
		},
	})

	l.Tick(at(1, 9, 0, 0))
	if len(rang) != 1 || rang[0] != "ok" {
		t.Errorf("expected ok to ring despite the panic, got %v", rang)
	}
}

func TestSignalStartsBackgroundSession(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	l := newLoop(rules)

	s, ok := l.Signal(gateway.Fired{ID: "a", Label: "Wake", Media: "https://youtu.be/x"}, at(1, 9, 0, 0))
	if !ok || s.Source != session.SourceBackground || s.Label != "Wake" {
		t.Fatalf("unexpected signal session %+v %v", s, ok)
	}
	// The foreground tick in the same minute must not double-fire.
	if got := l.Tick(at(1, 9, 0, 1)); len(got) != 0 {
		t.Errorf("foreground re-fired after background signal: %+v", got)
	}
	if _, ok := l.Signal(gateway.Fired{ID: "a"}, at(1, 9, 0, 2)); ok {
		t.Error("duplicate signal started a second session")
	}
}

func TestSignalForDisabledRuleIgnored(t *testing.T) {
	r := rule("a", 9, 0, time.Monday)
	r.Enabled = false
	rules := &mutableRules{}
	rules.set(r)
	l := newLoop(rules)

	if _, ok := l.Signal(gateway.Fired{ID: "a"}, at(1, 9, 0, 0)); ok {
		t.Error("signal for a disabled rule should be ignored")
	}
	if _, ok := l.Signal(gateway.Fired{ID: "missing"}, at(1, 9, 0, 0)); ok {
		t.Error("signal for an unknown rule should be ignored")
	}
}

func TestOnFireRunsForEachFiring(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	fired := make(chan string, 1)
	l := New(Config{
		Rules:  rules,
		OnFire: func(id string, _ time.Time) { fired <- id },
	})

	l.Tick(at(1, 9, 0, 0))
	select {
	case id := <-fired:
		if id != "a" {
			t.Errorf("expected OnFire for a, got %s", id)
		}
	case <-time.After(time.Second):
		t.Fatal("OnFire not called")
	}
}

func TestRunMergesSignalsAndRequests(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	signals := make(chan gateway.Fired, 1)
	var mu sync.Mutex
	now := at(1, 8, 30, 0)

	var dismissed []string
	l := New(Config{
		Rules:    rules,
		Sessions: session.NewManager(0),
		Fired:    signals,
		Interval: 10 * time.Millisecond,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		},
		OnDismiss: func(s session.Session) { dismissed = append(dismissed, s.AlarmID) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	signals <- gateway.Fired{ID: "a", Label: "Wake"}

	var active []session.Session
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		active, err = l.Sessions(ctx)
		if err != nil {
			t.Fatalf("Sessions: %v", err)
		}
		if len(active) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(active) != 1 || active[0].AlarmID != "a" {
		t.Fatalf("expected background session for a, got %+v", active)
	}

	if _, err := l.Dismiss(ctx, "a"); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if active, _ := l.Sessions(ctx); len(active) != 0 {
		t.Errorf("expected no sessions after dismiss, got %+v", active)
	}

	cancel()
	<-done
	if len(dismissed) != 1 {
		t.Errorf("expected one OnDismiss call, got %v", dismissed)
	}
	if _, err := l.Sessions(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after Run exits, got %v", err)
	}
}

func TestRepeatedHourRingsOnce(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	rules := &mutableRules{}
	rules.set(rule("a", 1, 30, time.Sunday))
	l := newLoop(rules)

	// 2024-11-03: 01:00-01:59 happens first in EDT, then again in EST.
	firstPass := time.Date(2024, time.November, 3, 5, 30, 0, 0, time.UTC).In(ny)
	secondPass := firstPass.Add(time.Hour)

	total := 0
	for _, now := range []time.Time{firstPass, firstPass.Add(time.Minute), secondPass, secondPass.Add(30 * time.Second)} {
		for _, s := range l.Tick(now) {
			total++
			if _, err := l.DismissAt(s.AlarmID, now.Add(5*time.Second)); err != nil {
				t.Fatalf("DismissAt: %v", err)
			}
		}
	}
	if total != 1 {
		t.Errorf("expected one session across the repeated hour, got %d", total)
	}
}

func TestDismissedOccurrenceDoesNotRingAgainFromSignal(t *testing.T) {
	rules := &mutableRules{}
	rules.set(rule("a", 9, 0, time.Monday))
	l := newLoop(rules)

	if got := l.Tick(at(1, 9, 0, 0)); len(got) != 1 {
		t.Fatalf("expected a session, got %+v", got)
	}
	if _, err := l.DismissAt("a", at(1, 9, 0, 3)); err != nil {
		t.Fatalf("DismissAt: %v", err)
	}
	// Clear the minute set the way a tick in the next minute would, then
	// deliver the background signal for the same occurrence.
	l.rollMinute(at(1, 9, 1, 0))
	if _, ok := l.Signal(gateway.Fired{ID: "a"}, at(1, 9, 0, 40)); ok {
		t.Error("signal rang an occurrence that was already dismissed")
	}
	// A signal delivered late, outside the minute, is still honoured.
	if _, ok := l.Signal(gateway.Fired{ID: "a"}, at(1, 9, 5, 0)); !ok {
		t.Error("late signal should start a session")
	}
}

func TestSpringGapRuleRingsAfterGap(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	rules := &mutableRules{}
	rules.set(rule("a", 2, 30, time.Sunday))
	l := newLoop(rules)

	if got := l.Tick(time.Date(2024, time.March, 10, 1, 30, 0, 0, ny)); len(got) != 0 {
		t.Fatalf("rang an hour early: %+v", got)
	}
	if got := l.Tick(time.Date(2024, time.March, 10, 3, 0, 0, 0, ny)); len(got) != 1 {
		t.Errorf("expected the gap rule at 03:00, got %+v", got)
	}
}
