package calendar

import (
	"github.com/emersion/go-ical"
)

// Map of common Windows timezone names to IANA timezone names
var windowsToIANA = map[string]string{
	"Pacific Standard Time":        "America/Los_Angeles",
	"Mountain Standard Time":       "America/Denver",
	"Central Standard Time":        "America/Chicago",
	"Eastern Standard Time":        "America/New_York",
	"Atlantic Standard Time":       "America/Halifax",
	"Alaskan Standard Time":        "America/Anchorage",
	"Hawaiian Standard Time":       "Pacific/Honolulu",
	"GMT Standard Time":            "Europe/London",
	"W. Europe Standard Time":      "Europe/Berlin",
	"Central Europe Standard Time": "Europe/Paris",
	"China Standard Time":          "Asia/Shanghai",
	"Tokyo Standard Time":          "Asia/Tokyo",
	"India Standard Time":          "Asia/Kolkata",
	"AUS Eastern Standard Time":    "Australia/Sydney",
}

// normalizeTimezones rewrites Windows TZID parameters on the start and end
// properties so go-ical can resolve them.
func normalizeTimezones(comp *ical.Component) {
	for _, name := range []string{ical.PropDateTimeStart, ical.PropDateTimeEnd} {
		prop := comp.Props.Get(name)
		if prop == nil {
			continue
		}
		if ianaName, ok := windowsToIANA[prop.Params.Get(ical.ParamTimezoneID)]; ok {
			prop.Params.Set(ical.ParamTimezoneID, ianaName)
		}
	}
}
