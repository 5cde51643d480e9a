package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"tekkin/internal/config"
	"tekkin/internal/dates"
	appLog "tekkin/internal/log"
	"tekkin/internal/metrics"
	"tekkin/internal/model"
	"tekkin/internal/store"
)

const icsFloatingLayout = "20060102T150405"

// CalendarImporter turns ICS subscriptions into spotlight events. Like the
// manual path it skips any VEVENT whose artist and date are already stored.
type CalendarImporter struct {
	store       store.EventStore
	fetcher     *Fetcher
	calendars   []config.CalendarConfig
	horizonDays int
	loc         *time.Location
	now         func() time.Time
}

func NewCalendarImporter(s store.EventStore, fetcher *Fetcher, calendars []config.CalendarConfig, horizonDays int, loc *time.Location) *CalendarImporter {
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	return &CalendarImporter{
		store:       s,
		fetcher:     fetcher,
		calendars:   calendars,
		horizonDays: horizonDays,
		loc:         loc,
		now:         time.Now,
	}
}

// Run imports every calendar and reports one Status per calendar.
func (c *CalendarImporter) Run(ctx context.Context) []model.Status {
	results := make([]model.Status, 0, len(c.calendars))

	for _, cal := range c.calendars {
		inserted, err := c.importCalendar(ctx, cal)
		st := model.Status{Source: cal.ID, Status: model.StatusOK, Count: inserted}
		if err != nil {
			st.Status = model.StatusError
			st.Message = err.Error()
			appLog.Error("calendar import failed", err, "id", cal.ID, "url", redactURL(cal.URL))
		} else {
			appLog.Info("calendar imported", "id", cal.ID, "inserted", inserted)
		}
		metrics.Run(metrics.JobCalendars, st.Status)
		results = append(results, st)
	}
	return results
}

func (c *CalendarImporter) importCalendar(ctx context.Context, cal config.CalendarConfig) (int, error) {
	res, err := c.fetcher.Fetch(ctx, Feed{ID: cal.ID, URL: cal.URL})
	if err != nil {
		return 0, err
	}

	records, err := ParseCalendar(res.Body, cal.ID, c.loc, c.window())
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, rec := range records {
		exists, err := c.store.EventExists(ctx, rec.Artist, rec.Date)
		if err != nil {
			metrics.Item(metrics.JobCalendars, cal.ID, metrics.OutcomeFailed)
			return inserted, errors.Wrap(model.ErrPersistence, err.Error())
		}
		if exists {
			metrics.Item(metrics.JobCalendars, cal.ID, metrics.OutcomeSkipped)
			continue
		}
		if err := c.store.InsertEvent(ctx, rec); err != nil {
			metrics.Item(metrics.JobCalendars, cal.ID, metrics.OutcomeFailed)
			return inserted, errors.Wrap(model.ErrPersistence, err.Error())
		}
		metrics.Item(metrics.JobCalendars, cal.ID, metrics.OutcomeStored)
		inserted++
	}
	return inserted, nil
}

// window is the range recurring VEVENTs are expanded over: the past week
// shown by the spotlight up to the configured horizon.
func (c *CalendarImporter) window() [2]time.Time {
	today := dates.Today(c.now(), c.loc)
	return [2]time.Time{dates.AddDays(today, -8), dates.AddDays(today, c.horizonDays)}
}

// ParseCalendar maps the VEVENTs of an ICS payload to event records tagged
// with source. Recurring VEVENTs expand into one record per occurrence
// inside window; VEVENTs without a summary or start are skipped.
func ParseCalendar(body []byte, source string, loc *time.Location, window [2]time.Time) ([]*model.EventRecord, error) {
	if len(body) == 0 {
		return nil, errors.Wrap(model.ErrMalformedPayload, "empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(model.ErrMalformedPayload, err.Error())
	}

	out := make([]*model.EventRecord, 0)
	for _, ve := range cal.Events() {
		recs, perr := veventRecords(ve, source, loc, window)
		if perr != nil {
			appLog.Debug("skipping vevent", "source", source, "error", perr.Error())
			continue
		}
		out = append(out, recs...)
	}
	return out, nil
}

func veventRecords(ve *ical.VEvent, source string, loc *time.Location, window [2]time.Time) ([]*model.EventRecord, error) {
	summary := propValue(ve, ical.ComponentPropertySummary)
	if summary == "" {
		return nil, errors.New("missing SUMMARY")
	}

	start, allDay, err := veventStart(ve, loc)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(veventProps(ve))
	if err != nil {
		return nil, err
	}

	base := model.EventRecord{
		Artist: summary,
		Venue:  propValue(ve, ical.ComponentPropertyLocation),
		URL:    propValue(ve, ical.ComponentPropertyUrl),
		Source: source,
		Raw:    raw,
	}

	starts := []time.Time{start}
	if rr := propValue(ve, ical.ComponentPropertyRrule); rr != "" {
		starts, err = expandRRule(ve, rr, start, loc, window)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*model.EventRecord, 0, len(starts))
	for _, s := range starts {
		rec := base
		if allDay {
			rec.Date = s.Format(manualDateLayout)
		} else {
			rec.Date = s.In(loc).Format(time.RFC3339)
		}
		out = append(out, &rec)
	}
	return out, nil
}

// veventStart reads DTSTART. All-day values keep their written date; floating
// date-times (no TZID, no Z) are read in loc.
func veventStart(ve *ical.VEvent, loc *time.Location) (time.Time, bool, error) {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil || prop.Value == "" {
		return time.Time{}, false, errors.New("missing DTSTART")
	}

	allDay := !strings.Contains(prop.Value, "T")
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}
	if allDay {
		t, err := ve.GetAllDayStartAt()
		if err != nil {
			return time.Time{}, true, err
		}
		return dates.Noon(t.Year(), t.Month(), t.Day(), loc), true, nil
	}

	_, hasTZ := prop.ICalParameters["TZID"]
	if !hasTZ && !strings.HasSuffix(prop.Value, "Z") {
		t, err := time.ParseInLocation(icsFloatingLayout, prop.Value, loc)
		return t, false, err
	}
	t, err := ve.GetStartAt()
	return t, false, err
}

// expandRRule returns the occurrences of a recurring VEVENT inside window,
// minus its EXDATEs.
func expandRRule(ve *ical.VEvent, rr string, start time.Time, loc *time.Location, window [2]time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(rr)
	if err != nil {
		return nil, err
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if ex, ok := parseICSTime(strings.TrimSpace(part), start.Location()); ok {
				set.ExDate(ex)
			}
		}
	}

	times := set.Between(window[0].In(start.Location()), window[1].In(start.Location()), true)
	if len(times) > maxOccurrencesPerResidency {
		times = times[:maxOccurrencesPerResidency]
	}
	for i := range times {
		times[i] = times[i].In(loc)
	}
	return times, nil
}

func parseICSTime(v string, loc *time.Location) (time.Time, bool) {
	switch {
	case v == "":
		return time.Time{}, false
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t, err == nil
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation(icsFloatingLayout, v, loc)
		return t, err == nil
	default:
		t, err := time.ParseInLocation("20060102", v, loc)
		if err != nil {
			return time.Time{}, false
		}
		return dates.Noon(t.Year(), t.Month(), t.Day(), loc), true
	}
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// veventProps flattens the VEVENT properties into the raw payload. Repeated
// properties keep their last value.
func veventProps(ve *ical.VEvent) map[string]string {
	props := make(map[string]string, len(ve.Properties))
	for _, p := range ve.Properties {
		props[strings.ToLower(p.IANAToken)] = p.Value
	}
	return props
}
