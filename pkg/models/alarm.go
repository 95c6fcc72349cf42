package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/borgmon/waketube/pkg/youtube"
)

var (
	ErrMissingID    = errors.New("alarm id is required")
	ErrInvalidTime  = errors.New("invalid alarm time")
	ErrInvalidDay   = errors.New("invalid weekday")
	ErrInvalidMedia = errors.New("invalid alarm video url")
)

// TimeOfDay is a wall-clock time with minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return t, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, herr := strconv.Atoi(parts[0])
	m, merr := strconv.Atoi(parts[1])
	if herr != nil || merr != nil || strings.ContainsAny(s, "+-") {
		return t, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	t = TimeOfDay{Hour: h, Minute: m}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t, nil
}

// TimeOfDayOf returns the minute-resolution time of day of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On combines the calendar date of day with t, in day's location.
// When t does not exist on that date because the clocks jumped forward,
// it returns the first minute after the gap.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	at := time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
	if TimeOfDayOf(at) == t {
		return at
	}

	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	want := t.Hour*60 + t.Minute
	// Gaps are at most a couple of hours, so the walk is short.
	for c := at.Add(-3 * time.Hour); ; c = c.Add(time.Minute) {
		cy, cm, cd := c.Date()
		cdate := time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC)
		if cdate.After(date) || (cdate.Equal(date) && c.Hour()*60+c.Minute() >= want) {
			return c
		}
	}
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d:%d", ErrInvalidTime, t.Hour, t.Minute)
	}
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DaySet is a set of weekdays. Bit n is time.Weekday(n), Sunday = 0.
type DaySet uint8

// NewDaySet builds a set from weekdays, ignoring duplicates.
func NewDaySet(days ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// EveryDay contains all seven weekdays.
const EveryDay DaySet = 0x7f

func (s DaySet) Has(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday && s&(1<<uint(d)) != 0
}

func (s DaySet) With(d time.Weekday) DaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

func (s DaySet) Without(d time.Weekday) DaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s &^ (1 << uint(d))
}

func (s DaySet) Empty() bool {
	return s&EveryDay == 0
}

// Days lists the members from Sunday to Saturday.
func (s DaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// String renders e.g. "Mon,Wed,Fri", "Every day" or "Never".
func (s DaySet) String() string {
	switch s & EveryDay {
	case 0:
		return "Never"
	case EveryDay:
		return "Every day"
	}
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}

// ParseDaySet accepts comma separated weekday names ("mon,tue"), "weekdays",
// "weekends" or "daily".
func ParseDaySet(s string) (DaySet, error) {
	var set DaySet
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case "daily", "everyday", "all":
			set |= EveryDay
			continue
		case "weekdays":
			set |= NewDaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
			continue
		case "weekends":
			set |= NewDaySet(time.Saturday, time.Sunday)
			continue
		}
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			name := strings.ToLower(d.String())
			if part == name || (len(part) >= 2 && strings.HasPrefix(name, part)) {
				set = set.With(d)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDay, part)
		}
	}
	return set, nil
}

func (s DaySet) MarshalJSON() ([]byte, error) {
	nums := make([]int, 0, 7)
	for _, d := range s.Days() {
		nums = append(nums, int(d))
	}
	return json.Marshal(nums)
}

func (s *DaySet) UnmarshalJSON(b []byte) error {
	var nums []int
	if err := json.Unmarshal(b, &nums); err != nil {
		return err
	}
	var set DaySet
	for _, n := range nums {
		if n < 0 || n > 6 {
			return fmt.Errorf("%w: %d", ErrInvalidDay, n)
		}
		set = set.With(time.Weekday(n))
	}
	*s = set
	return nil
}

// AlarmRule is one user-defined recurring alarm.
type AlarmRule struct {
	ID       string    `json:"id"`
	Time     TimeOfDay `json:"time"`
	Days     DaySet    `json:"days"`
	Enabled  bool      `json:"enabled"`
	VideoURL string    `json:"videoUrl"`
	Label    string    `json:"label"`

	// NextFireAt is derived from Time, Days and Enabled. It is nil while the
	// rule is disabled or has no weekday.
	NextFireAt *time.Time `json:"nextFireAt,omitempty"`
}

// Validate checks the fields a rule must carry before it can be stored.
func (r AlarmRule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if !r.Time.Valid() {
		return fmt.Errorf("%w: %d:%d", ErrInvalidTime, r.Time.Hour, r.Time.Minute)
	}
	if r.VideoURL != "" && !youtube.IsValidURL(r.VideoURL) {
		return fmt.Errorf("%w: %s", ErrInvalidMedia, r.VideoURL)
	}
	return nil
}

// Matches reports whether the rule is due in the minute containing now.
func (r AlarmRule) Matches(now time.Time) bool {
	_, ok := r.Occurrence(now)
	return ok
}

// Occurrence returns the scheduled instant whose minute contains now.
// The instant is the one On resolves, so a repeated wall-clock minute
// after the clocks fall back matches only once. An occurrence pushed
// past midnight by a clock change still belongs to the previous date.
func (r AlarmRule) Occurrence(now time.Time) (time.Time, bool) {
	if !r.Enabled {
		return time.Time{}, false
	}
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		if !r.Days.Has(day.Weekday()) {
			continue
		}
		at := r.Time.On(day)
		if d := now.Sub(at); d >= 0 && d < time.Minute {
			return at, true
		}
	}
	return time.Time{}, false
}

// DisplayLabel falls back to the time when the label is empty.
func (r AlarmRule) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return "Alarm " + r.Time.String()
}

// SortRules orders rules by time of day, then id.
func SortRules(rules []AlarmRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i].Time, rules[j].Time
		if a != b {
			return a.Hour*60+a.Minute < b.Hour*60+b.Minute
		}
		return rules[i].ID < rules[j].ID
	})
}
