package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"tekkin/internal/config"
	"tekkin/internal/dates"
	appLog "tekkin/internal/log"
	"tekkin/internal/metrics"
	"tekkin/internal/model"
	"tekkin/internal/store"
)

const (
	defaultHorizonDays         = 90
	maxOccurrencesPerResidency = 500
	manualDateLayout           = "2006-01-02"
)

// ManualImporter inserts the curated events. An event is skipped when a row
// with the same artist and date already exists, so re-running is harmless.
type ManualImporter struct {
	store       store.EventStore
	events      []config.ManualEvent
	horizonDays int
	loc         *time.Location
}

func NewManualImporter(s store.EventStore, cfg config.ManualConfig, loc *time.Location) *ManualImporter {
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}
	return &ManualImporter{store: s, events: cfg.Events, horizonDays: horizon, loc: loc}
}

// Run imports every curated entry and reports one Status per entry. Count is
// the number of rows inserted by that entry.
func (m *ManualImporter) Run(ctx context.Context) []model.Status {
	results := make([]model.Status, 0, len(m.events))

	for _, ev := range m.events {
		name := fmt.Sprintf("%s@%s", ev.Artist, ev.Date)
		inserted, err := m.importEvent(ctx, ev)
		st := model.Status{Source: name, Status: model.StatusOK, Count: inserted}
		if err != nil {
			st.Status = model.StatusError
			st.Message = err.Error()
			appLog.Error("manual import failed", err, "artist", ev.Artist, "date", ev.Date)
		} else {
			appLog.Debug("manual import done", "artist", ev.Artist, "date", ev.Date, "inserted", inserted)
		}
		metrics.Run(metrics.JobManual, st.Status)
		results = append(results, st)
	}
	return results
}

func (m *ManualImporter) importEvent(ctx context.Context, ev config.ManualEvent) (int, error) {
	occurrences, err := m.occurrences(ev)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, date := range occurrences {
		exists, err := m.store.EventExists(ctx, ev.Artist, date)
		if err != nil {
			metrics.Item(metrics.JobManual, ev.Artist, metrics.OutcomeFailed)
			return inserted, errors.Wrap(model.ErrPersistence, err.Error())
		}
		if exists {
			metrics.Item(metrics.JobManual, ev.Artist, metrics.OutcomeSkipped)
			continue
		}

		rec := &model.EventRecord{
			Artist:  ev.Artist,
			Date:    date,
			Venue:   ev.Venue,
			City:    ev.City,
			Country: ev.Country,
			URL:     ev.URL,
			Source:  model.SourceManual,
		}
		if err := m.store.InsertEvent(ctx, rec); err != nil {
			metrics.Item(metrics.JobManual, ev.Artist, metrics.OutcomeFailed)
			return inserted, errors.Wrap(model.ErrPersistence, err.Error())
		}
		metrics.Item(metrics.JobManual, ev.Artist, metrics.OutcomeStored)
		inserted++
	}
	return inserted, nil
}

// occurrences returns the dates an entry stands for. A plain entry is its
// own date, as written. A residency expands its RRULE from Date to Until,
// or to Date plus the horizon when Until is empty.
func (m *ManualImporter) occurrences(ev config.ManualEvent) ([]string, error) {
	if ev.RRule == "" {
		return []string{ev.Date}, nil
	}

	start, ok := dates.Parse(ev.Date, m.loc)
	if !ok {
		return nil, errors.Wrapf(model.ErrMalformedPayload, "residency start %q", ev.Date)
	}
	end := dates.AddDays(start, m.horizonDays)
	if ev.Until != "" {
		until, ok := dates.Parse(ev.Until, m.loc)
		if !ok {
			return nil, errors.Wrapf(model.ErrMalformedPayload, "residency until %q", ev.Until)
		}
		end = until
	}
	if end.Before(start) {
		return nil, errors.Wrapf(model.ErrMalformedPayload, "residency until %q is before %q", ev.Until, ev.Date)
	}

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, errors.Wrap(model.ErrMalformedPayload, err.Error())
	}
	r.DTStart(start)

	times := r.Between(start, end, true)
	if len(times) > maxOccurrencesPerResidency {
		appLog.Error("residency truncated", errors.New("max occurrences reached"),
			"artist", ev.Artist, "rrule", ev.RRule, "cap", maxOccurrencesPerResidency)
		times = times[:maxOccurrencesPerResidency]
	}

	out := make([]string, 0, len(times))
	for _, t := range times {
		out = append(out, t.In(m.loc).Format(manualDateLayout))
	}
	return out, nil
}
