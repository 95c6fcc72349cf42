package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/borgmon/waketube/pkg/calendar"
	"github.com/borgmon/waketube/pkg/gateway"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = errors.New("alarm not found")

// Change is the outcome of a mutation. The rule is saved even when the
// background registration failed; ScheduleErr reports that failure.
type Change struct {
	Rule        models.AlarmRule
	Schedule    gateway.Result
	ScheduleErr error
}

// AlarmStore owns the alarm collection. Mutations are serialised and each
// one persists the full collection before mirroring to the gateway.
type AlarmStore struct {
	// writeMu serialises mutations, including their gateway calls.
	writeMu sync.Mutex

	mu    sync.RWMutex
	rules []models.AlarmRule

	persister Persister
	gw        gateway.Gateway
	now       func() time.Time
	onChange  func()
}

// Option configures an AlarmStore.
type Option func(*AlarmStore)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *AlarmStore) { s.now = now }
}

// NewAlarmStore creates an empty store. Call Load to read persisted alarms.
func NewAlarmStore(persister Persister, gw gateway.Gateway, opts ...Option) *AlarmStore {
	s := &AlarmStore{
		rules:     []models.AlarmRule{},
		persister: persister,
		gw:        gw,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every successful mutation or reload.
func (s *AlarmStore) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the in-memory collection with the persisted one.
// It does not touch the gateway; run Recover afterwards.
func (s *AlarmStore) Load() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rules, err := s.persister.Load()
	if err != nil {
		return err
	}
	s.publish(rules)
	log.Printf("[STORE] Loaded %d alarms", len(rules))
	return nil
}

// List returns a copy of all alarms in stored order.
func (s *AlarmStore) List() []models.AlarmRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRules(s.rules)
}

// Get returns the alarm with id.
func (s *AlarmStore) Get(id string) (models.AlarmRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.rules, id); i >= 0 {
		return cloneRule(s.rules[i]), true
	}
	return models.AlarmRule{}, false
}

// Create assigns a new id to rule, saves it and registers it in the background.
func (s *AlarmStore) Create(ctx context.Context, rule models.AlarmRule) (Change, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rule.ID = uuid.New().String()
	if err := rule.Validate(); err != nil {
		return Change{}, err
	}
	s.refreshNext(&rule)

	rules := append(s.snapshot(), rule)
	if err := s.commit(rules); err != nil {
		return Change{}, err
	}

	log.Printf("[STORE] Created alarm %s (%s %s)", rule.ID, rule.Time, rule.Days)
	return s.mirror(ctx, rule), nil
}

// Update replaces the stored alarm with the same id.
func (s *AlarmStore) Update(ctx context.Context, rule models.AlarmRule) (Change, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := rule.Validate(); err != nil {
		return Change{}, err
	}
	rules := s.snapshot()
	i := indexOf(rules, rule.ID)
	if i < 0 {
		return Change{}, fmt.Errorf("%w: %s", ErrNotFound, rule.ID)
	}
	s.refreshNext(&rule)
	rules[i] = rule

	if err := s.commit(rules); err != nil {
		return Change{}, err
	}

	log.Printf("[STORE] Updated alarm %s (%s %s enabled=%t)", rule.ID, rule.Time, rule.Days, rule.Enabled)
	return s.mirror(ctx, rule), nil
}

// Toggle flips the enabled flag of id.
func (s *AlarmStore) Toggle(ctx context.Context, id string) (Change, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rules := s.snapshot()
	i := indexOf(rules, id)
	if i < 0 {
		return Change{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rule := rules[i]
	rule.Enabled = !rule.Enabled
	s.refreshNext(&rule)
	rules[i] = rule

	if err := s.commit(rules); err != nil {
		return Change{}, err
	}

	log.Printf("[STORE] Toggled alarm %s enabled=%t", id, rule.Enabled)
	return s.mirror(ctx, rule), nil
}

// Delete removes id and cancels its background registration.
// A live session for the alarm is unaffected.
func (s *AlarmStore) Delete(ctx context.Context, id string) (Change, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rules := s.snapshot()
	i := indexOf(rules, id)
	if i < 0 {
		return Change{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := rules[i]
	rules = append(rules[:i], rules[i+1:]...)

	if err := s.commit(rules); err != nil {
		return Change{}, err
	}

	log.Printf("[STORE] Deleted alarm %s", id)
	removed.Enabled = false
	removed.NextFireAt = nil
	return s.mirror(ctx, removed), nil
}

// Rearm moves id's cached fire instant past firedAt and registers the
// following occurrence. Unknown or disabled ids are ignored.
func (s *AlarmStore) Rearm(ctx context.Context, id string, firedAt time.Time) (Change, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rules := s.snapshot()
	i := indexOf(rules, id)
	if i < 0 || !rules[i].Enabled {
		return Change{}, nil
	}

	ref := s.now()
	if firedAt.After(ref) {
		ref = firedAt
	}
	rule := rules[i]
	setNext(&rule, ref)
	rules[i] = rule

	if err := s.commit(rules); err != nil {
		return Change{}, err
	}
	return s.mirror(ctx, rule), nil
}

// Recover is the boot and reload hook. It drops every background
// registration, recomputes the next occurrence of each enabled alarm from
// now and registers it again. A stored instant that already passed is
// logged as missed and never fired late.
func (s *AlarmStore) Recover(ctx context.Context) ([]Change, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	rules := s.snapshot()
	for i := range rules {
		rule := &rules[i]
		if rule.Enabled && rule.NextFireAt != nil && !rule.NextFireAt.After(now) {
			log.Printf("[RECOVERY] Missed %s at %s, not firing late", rule.ID, rule.NextFireAt.Format("Mon Jan 2 15:04"))
		}
		setNext(rule, now)
	}

	if err := s.commit(rules); err != nil {
		return nil, err
	}

	if err := s.gw.CancelAll(ctx); err != nil {
		log.Printf("[RECOVERY] Failed to clear background registrations: %v", err)
	}

	var changes []Change
	for _, rule := range rules {
		if rule.NextFireAt == nil {
			continue
		}
		changes = append(changes, s.register(ctx, rule))
	}
	log.Printf("[RECOVERY] Re-registered %d of %d alarms with %s gateway", len(changes), len(rules), s.gw.Kind())
	return changes, nil
}

// refreshNext recomputes the cached fire instant from the store clock.
func (s *AlarmStore) refreshNext(rule *models.AlarmRule) {
	setNext(rule, s.now())
}

func setNext(rule *models.AlarmRule, ref time.Time) {
	if next, ok := calendar.NextFor(*rule, ref); ok {
		rule.NextFireAt = &next
	} else {
		rule.NextFireAt = nil
	}
}

// commit persists rules and then makes them visible to readers.
func (s *AlarmStore) commit(rules []models.AlarmRule) error {
	if err := s.persister.Save(rules); err != nil {
		return err
	}
	s.publish(rules)
	return nil
}

func (s *AlarmStore) publish(rules []models.AlarmRule) {
	s.mu.Lock()
	s.rules = rules
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// mirror cancels any registration for rule.ID, then registers it again
// when it is enabled with a next occurrence.
func (s *AlarmStore) mirror(ctx context.Context, rule models.AlarmRule) Change {
	change := Change{Rule: cloneRule(rule)}
	if err := s.gw.Cancel(ctx, rule.ID); err != nil {
		log.Printf("[STORE] Failed to cancel background registration for %s: %v", rule.ID, err)
		change.ScheduleErr = err
		return change
	}
	if !rule.Enabled || rule.NextFireAt == nil {
		return change
	}
	return s.register(ctx, rule)
}

func (s *AlarmStore) register(ctx context.Context, rule models.AlarmRule) Change {
	change := Change{Rule: cloneRule(rule)}
	res, err := s.gw.Register(ctx, gateway.Registration{
		ID:     rule.ID,
		FireAt: *rule.NextFireAt,
		Label:  rule.DisplayLabel(),
		Media:  rule.VideoURL,
	})
	change.Schedule = res
	if err != nil {
		log.Printf("[STORE] Background registration failed for %s: %v", rule.ID, err)
		change.ScheduleErr = err
	} else if res.NeedsPermission {
		log.Printf("[STORE] Alarm %s saved, background scheduling needs permission", rule.ID)
	}
	return change
}

func (s *AlarmStore) snapshot() []models.AlarmRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRules(s.rules)
}

func indexOf(rules []models.AlarmRule, id string) int {
	for i := range rules {
		if rules[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneRule(r models.AlarmRule) models.AlarmRule {
	if r.NextFireAt != nil {
		next := *r.NextFireAt
		r.NextFireAt = &next
	}
	return r
}

func cloneRules(rules []models.AlarmRule) []models.AlarmRule {
	out := make([]models.AlarmRule, len(rules))
	for i, r := range rules {
		out[i] = cloneRule(r)
	}
	return out
}
