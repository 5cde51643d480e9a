// Package dates holds the civil-date helpers shared by the harvester and the
// spotlight classifier. A civil date is represented as a time.Time at 12:00
// in the display location so that adding days never slips across a DST
// boundary.
package dates

import (
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the display timezone of the spotlight page.
const DefaultTimezone = "Europe/Rome"

const (
	layoutDate    = "2006-01-02"
	layoutBasic   = "20060102"
	layoutDayMonY = "02/01/2006"
)

// isoDateTimeLayouts are tried in order for strings longer than a bare date.
// Layouts without a zone are interpreted in the display location.
var isoDateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05",
}

// basicDateTimeLayouts cover the ISO 8601 basic format used by iCalendar.
var basicDateTimeLayouts = []string{
	"20060102T150405Z0700",
	"20060102T150405",
	"20060102T1504",
}

var (
	isoPrefix   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	basicPrefix = regexp.MustCompile(`^\d{8}(T|$)`)
)

// dateTimeLayouts picks the layouts for a string longer than a bare date.
func dateTimeLayouts(s string) []string {
	switch {
	case isoPrefix.MatchString(s):
		return isoDateTimeLayouts
	case basicPrefix.MatchString(s):
		return basicDateTimeLayouts
	}
	return nil
}

// Noon returns 12:00 on the given civil date in loc.
func Noon(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, loc)
}

// Today returns the civil date of now in loc, at noon.
func Today(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return Noon(n.Year(), n.Month(), n.Day(), loc)
}

// AddDays moves a civil date by n days.
func AddDays(d time.Time, n int) time.Time {
	moved := d.AddDate(0, 0, n)
	return Noon(moved.Year(), moved.Month(), moved.Day(), d.Location())
}

// SameDay reports whether a and b carry the same civil date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Parse returns the civil date encoded in s, at noon in loc. It accepts
// YYYY-MM-DD, YYYYMMDD, ISO 8601 date-times in extended or basic format and
// DD/MM/YYYY; the date is the one written in the string, whatever its
// offset. Any other input yields false.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if len(s) == len(layoutDate) {
		if t, err := time.Parse(layoutDate, s); err == nil {
			return Noon(t.Year(), t.Month(), t.Day(), loc), true
		}
		if t, err := time.Parse(layoutDayMonY, s); err == nil {
			return Noon(t.Year(), t.Month(), t.Day(), loc), true
		}
		return time.Time{}, false
	}
	if len(s) == len(layoutBasic) {
		if t, err := time.Parse(layoutBasic, s); err == nil {
			return Noon(t.Year(), t.Month(), t.Day(), loc), true
		}
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts(s) {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return Noon(t.Year(), t.Month(), t.Day(), loc), true
		}
	}
	return time.Time{}, false
}

// ParseInstant parses an ISO 8601 date or date-time, extended or basic, into
// an instant. Bare dates and date-times without a zone are read in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) == len(layoutDate) && isoPrefix.MatchString(s):
		t, err := time.ParseInLocation(layoutDate, s, loc)
		return t, err == nil
	case len(s) == len(layoutBasic) && basicPrefix.MatchString(s):
		t, err := time.ParseInLocation(layoutBasic, s, loc)
		return t, err == nil
	}
	for _, layout := range dateTimeLayouts(s) {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeISO rewrites an ISO-looking date into RFC 3339 in loc so that its
// written date is the civil date in the display timezone. Bare dates are kept
// as they are. Anything not starting with YYYY-MM-DD becomes "".
func NormalizeISO(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if !isoPrefix.MatchString(s) {
		return ""
	}
	if len(s) == len(layoutDate) {
		if _, err := time.Parse(layoutDate, s); err != nil {
			return ""
		}
		return s
	}
	t, ok := ParseInstant(s, loc)
	if !ok {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}

// LoadLocation resolves name, falling back to DefaultTimezone and then UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}
