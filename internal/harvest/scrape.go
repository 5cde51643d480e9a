package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"tekkin/internal/config"
	"tekkin/internal/dates"
	appLog "tekkin/internal/log"
	"tekkin/internal/metrics"
	"tekkin/internal/model"
	"tekkin/internal/store"
)

// EventScraper loads each roster artist's Bandsintown page and inserts the
// events found there. Inserts are plain: repeated runs duplicate rows.
type EventScraper struct {
	store    store.EventStore
	loader   PageLoader
	artists  []config.Artist
	pageURL  string
	maxDepth int
	loc      *time.Location
}

func NewEventScraper(s store.EventStore, loader PageLoader, cfg config.EventsConfig, loc *time.Location) *EventScraper {
	return &EventScraper{
		store:    s,
		loader:   loader,
		artists:  cfg.Artists,
		pageURL:  cfg.PageURL,
		maxDepth: cfg.MaxScanDepth,
		loc:      loc,
	}
}

// Run scrapes artists sequentially and reports one Status per artist.
func (s *EventScraper) Run(ctx context.Context) []model.Status {
	results := make([]model.Status, 0, len(s.artists))

	for _, artist := range s.artists {
		stored, err := s.scrapeArtist(ctx, artist)
		st := model.Status{Source: artist.Name, Status: model.StatusOK, Count: stored}
		if err != nil {
			st.Status = model.StatusError
			st.Message = err.Error()
			appLog.Error("artist scrape failed", err, "artist", artist.Name, "artist_id", artist.ID)
		} else {
			appLog.Info("artist scraped", "artist", artist.Name, "artist_id", artist.ID, "stored", stored)
		}
		metrics.Run(metrics.JobEvents, st.Status)
		results = append(results, st)
	}
	return results
}

func (s *EventScraper) scrapeArtist(ctx context.Context, artist config.Artist) (int, error) {
	page, err := s.loader.Load(ctx, fmt.Sprintf(s.pageURL, artist.ID))
	if err != nil {
		return 0, errors.Wrap(model.ErrSourceUnreachable, err.Error())
	}

	found := ExtractJSONLD(page.JSONLD)
	if len(found) == 0 && page.State != "" {
		found = ExtractState([]byte(page.State), s.maxDepth)
	}

	records := make([]*model.EventRecord, 0, len(found))
	for _, ev := range found {
		rec := s.record(artist, ev)
		if rec.Venue == "" {
			metrics.Item(metrics.JobEvents, artist.Name, metrics.OutcomeSkipped)
			appLog.Debug("dropping scraped event without venue", "artist", artist.Name, "url", rec.URL)
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := s.store.InsertEvents(ctx, records); err != nil {
		metrics.HarvestItems.WithLabelValues(metrics.JobEvents, artist.Name, metrics.OutcomeFailed).Add(float64(len(records)))
		return 0, errors.Wrap(model.ErrPersistence, err.Error())
	}
	metrics.HarvestItems.WithLabelValues(metrics.JobEvents, artist.Name, metrics.OutcomeStored).Add(float64(len(records)))
	return len(records), nil
}

// record normalizes a scraped event, filling gaps from the raw payload.
func (s *EventScraper) record(artist config.Artist, ev ScrapedEvent) *model.EventRecord {
	raw := []byte(ev.Raw)

	date := ev.Date
	if date == "" {
		date = firstString(raw, "datetime", "startDate", "end_time", "start_time", "date", "day")
	}

	venue := ev.Venue
	if venue == "" {
		venue = firstString(raw, "venue.name", "location.name")
	}
	city := ev.City
	if city == "" {
		city = firstString(raw, "venue.city", "location.city")
	}
	country := ev.Country
	if country == "" {
		country = firstString(raw, "venue.country", "location.country")
	}
	url := ev.URL
	if url == "" {
		url = firstString(raw, "url")
	}

	return &model.EventRecord{
		Artist:   artist.Name,
		ArtistID: artist.ID,
		Date:     dates.NormalizeISO(date, s.loc),
		Venue:    venue,
		City:     city,
		Country:  country,
		URL:      url,
		Source:   model.SourceBandsintown,
		Raw:      model.RawJSON(ev.Raw),
	}
}
