package spotlight

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"tekkin/internal/dates"
)

const calendarName = "Tekkin Spotlight"

// WriteICS serializes items as an iCalendar feed of all-day events on their
// civil date in loc. Items without a parseable date are skipped.
func WriteICS(w io.Writer, items []Item, now time.Time, loc *time.Location) error {
	cal := ical.NewCalendarFor("tekkin")
	cal.SetMethod(ical.MethodPublish)
	cal.SetName(calendarName)
	cal.SetXWRCalName(calendarName)
	cal.SetXWRTimezone(loc.String())

	stamp := now.UTC()
	for _, it := range items {
		day, ok := dates.Parse(it.Date, loc)
		if !ok {
			continue
		}

		ev := cal.AddEvent(it.ID + "@tekkin")
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(dates.AddDays(day, 1))
		ev.SetSummary(summary(it))
		if where := location(it); where != "" {
			ev.SetLocation(where)
		}
		if it.URL != "" {
			ev.SetURL(it.URL)
		}
	}
	return cal.SerializeTo(w, ical.WithNewLineWindows)
}

func summary(it Item) string {
	if it.Venue == "" || it.Venue == unknownVenue {
		return it.Artist
	}
	return it.Artist + " @ " + it.Venue
}

func location(it Item) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{it.Venue, it.City, it.Country} {
		if p != "" && p != unknownVenue {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
