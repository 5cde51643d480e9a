package main

import (
	"time"

	"tekkin/internal/config"
	"tekkin/internal/harvest"
	"tekkin/internal/store"
)

func newsRunner(cfg *config.Config, st store.Store) harvest.Runner {
	return harvest.NewNewsHarvester(st, cfg.News)
}

func eventsRunner(cfg *config.Config, st store.Store, loc *time.Location) harvest.Runner {
	loader := &harvest.ChromeLoader{
		UserAgent: cfg.Events.UserAgent,
		Timeout:   cfg.Events.PageTimeout,
	}
	return harvest.NewEventScraper(st, loader, cfg.Events, loc)
}

func manualRunner(cfg *config.Config, st store.Store, loc *time.Location) harvest.Runner {
	return harvest.NewManualImporter(st, cfg.Manual, loc)
}

// calendarsRunner shares the news fetch settings, so subscriptions get the
// same timeout, user agent and conditional-request cache.
func calendarsRunner(cfg *config.Config, st store.Store, loc *time.Location) harvest.Runner {
	fetcher := harvest.NewFetcher(cfg.News.Timeout, cfg.News.UserAgent, cfg.News.CacheDir)
	return harvest.NewCalendarImporter(st, fetcher, cfg.Calendars, cfg.Manual.HorizonDays, loc)
}

// artistHandles maps roster names to their configured Instagram handles.
func artistHandles(artists []config.Artist) map[string]string {
	out := make(map[string]string)
	for _, a := range artists {
		if a.Instagram != "" {
			out[a.Name] = a.Instagram
		}
	}
	return out
}
