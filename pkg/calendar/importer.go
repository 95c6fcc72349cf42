package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/borgmon/waketube/pkg/models"
	"github.com/borgmon/waketube/pkg/youtube"
	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

var ErrNotICalendar = errors.New("not an iCalendar document")

var urlRegex = regexp.MustCompile(`https?://[^\s<>"{}|\\^[\]` + "`" + `]+`)

// FetchAlarms downloads an iCalendar feed and converts its recurring events
// into alarm rules.
func FetchAlarms(ctx context.Context, client *http.Client, icalURL string) ([]models.AlarmRule, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, icalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar url: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed: %s", resp.Status)
	}
	return ParseAlarms(resp.Body, time.Local)
}

// ParseAlarms converts every weekly or daily recurring VEVENT in r into a
// rule at the event's start time in loc. Rules come back enabled and without
// ids; the store assigns those.
func ParseAlarms(r io.Reader, loc *time.Location) ([]models.AlarmRule, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar: %w", err)
	}
	if err := validateICalFormat(string(body)); err != nil {
		return nil, err
	}

	decoder := ical.NewDecoder(strings.NewReader(string(body)))
	rules := []models.AlarmRule{}
	seen := make(map[string]bool)
	stats := &importStats{}

	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			stats.totalEvents++

			rule, key, ok := parseAlarmEvent(comp, loc, stats)
			if !ok {
				continue
			}
			if seen[key] {
				stats.filteredDuplicates++
				log.Printf("  [IMPORT] Duplicate - \"%s\" at %s", rule.Label, rule.Time)
				continue
			}
			seen[key] = true
			rules = append(rules, rule)
		}
	}

	stats.logSummary(len(rules))
	return rules, nil
}

func parseAlarmEvent(comp *ical.Component, loc *time.Location, stats *importStats) (models.AlarmRule, string, bool) {
	normalizeTimezones(comp)

	rule := models.AlarmRule{Enabled: true}
	if summary := comp.Props.Get(ical.PropSummary); summary != nil {
		rule.Label = summary.Value
	}

	if status := comp.Props.Get(ical.PropStatus); status != nil && strings.EqualFold(status.Value, "CANCELLED") {
		stats.filteredCancelled++
		log.Printf("  [IMPORT] Cancelled - \"%s\"", rule.Label)
		return rule, "", false
	}

	start, err := startTime(comp, loc)
	if err != nil {
		stats.filteredMissingTime++
		log.Printf("  [IMPORT] Missing start time - \"%s\": %v", rule.Label, err)
		return rule, "", false
	}
	rule.Time = models.TimeOfDayOf(start)

	rruleProp := comp.Props.Get(ical.PropRecurrenceRule)
	if rruleProp == nil {
		stats.filteredOneOff++
		log.Printf("  [IMPORT] Not recurring - \"%s\"", rule.Label)
		return rule, "", false
	}
	days, err := daysFromRRule(rruleProp.Value, start.Weekday())
	if err != nil {
		stats.filteredUnsupported++
		log.Printf("  [IMPORT] Unsupported RRULE %s - \"%s\": %v", rruleProp.Value, rule.Label, err)
		return rule, "", false
	}
	rule.Days = days
	rule.VideoURL = videoLink(comp)

	key := rule.Label + "|" + rule.Time.String() + "|" + rule.Days.String()
	if uid := comp.Props.Get(ical.PropUID); uid != nil && uid.Value != "" {
		key = uid.Value
	}
	return rule, key, true
}

func startTime(comp *ical.Component, loc *time.Location) (time.Time, error) {
	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return time.Time{}, errors.New("no DTSTART")
	}
	if prop.ValueType() == ical.ValueDate {
		return time.Time{}, errors.New("all-day event")
	}
	t, err := prop.DateTime(loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// daysFromRRule maps FREQ=DAILY to every day and FREQ=WEEKLY to its BYDAY
// list, defaulting to the weekday of DTSTART.
func daysFromRRule(value string, startDay time.Weekday) (models.DaySet, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return 0, err
	}
	if opt.Interval > 1 {
		return 0, fmt.Errorf("interval %d is not supported", opt.Interval)
	}

	switch opt.Freq {
	case rrule.DAILY:
		if len(opt.Byweekday) == 0 {
			return models.EveryDay, nil
		}
	case rrule.WEEKLY:
		if len(opt.Byweekday) == 0 {
			return models.NewDaySet(startDay), nil
		}
	default:
		return 0, fmt.Errorf("frequency %v is not supported", opt.Freq)
	}

	var days models.DaySet
	for _, wd := range opt.Byweekday {
		// rrule counts from Monday = 0.
		days = days.With(time.Weekday((wd.Day() + 1) % 7))
	}
	return days, nil
}

// videoLink picks the first YouTube link from URL, DESCRIPTION or LOCATION.
func videoLink(comp *ical.Component) string {
	for _, name := range []string{ical.PropURL, ical.PropDescription, ical.PropLocation} {
		prop := comp.Props.Get(name)
		if prop == nil {
			continue
		}
		for _, match := range urlRegex.FindAllString(prop.Value, -1) {
			if youtube.IsValidURL(match) {
				return match
			}
		}
	}
	return ""
}

func validateICalFormat(bodyStr string) error {
	// Check if response is HTML instead of iCalendar
	upperBody := strings.ToUpper(strings.TrimSpace(bodyStr))
	if strings.HasPrefix(upperBody, "<!DOCTYPE") || strings.HasPrefix(upperBody, "<HTML") {
		return fmt.Errorf("%w: received HTML - check if URL requires authentication", ErrNotICalendar)
	}

	if !strings.HasPrefix(upperBody, "BEGIN:VCALENDAR") {
		preview := strings.TrimSpace(bodyStr)
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("%w: expected BEGIN:VCALENDAR, got: %s", ErrNotICalendar, preview)
	}

	return nil
}

type importStats struct {
	totalEvents         int
	filteredCancelled   int
	filteredMissingTime int
	filteredOneOff      int
	filteredUnsupported int
	filteredDuplicates  int
}

func (s *importStats) logSummary(includedCount int) {
	filtered := s.filteredCancelled + s.filteredMissingTime + s.filteredOneOff + s.filteredUnsupported + s.filteredDuplicates
	log.Printf("  [IMPORT] Events: %d, Imported: %d, Filtered: %d", s.totalEvents, includedCount, filtered)
	if filtered > 0 {
		log.Printf("  Filtered breakdown: %d cancelled, %d missing time, %d one-off, %d unsupported, %d duplicates",
			s.filteredCancelled, s.filteredMissingTime, s.filteredOneOff, s.filteredUnsupported, s.filteredDuplicates)
	}
}
