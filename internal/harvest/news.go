package harvest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	"tekkin/internal/config"
	appLog "tekkin/internal/log"
	"tekkin/internal/metrics"
	"tekkin/internal/model"
	"tekkin/internal/store"
)

const untitled = "Untitled"

// NewsHarvester pulls the configured RSS/Atom sources into the news table.
type NewsHarvester struct {
	store          store.NewsStore
	fetcher        *Fetcher
	sources        []config.NewsSource
	itemsPerSource int
	summaryLength  int
	now            func() time.Time
}

func NewNewsHarvester(s store.NewsStore, cfg config.NewsConfig) *NewsHarvester {
	return &NewsHarvester{
		store:          s,
		fetcher:        NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.CacheDir),
		sources:        cfg.Sources,
		itemsPerSource: cfg.ItemsPerSource,
		summaryLength:  cfg.SummaryLength,
		now:            time.Now,
	}
}

// Run harvests every source in order and reports one Status per source.
// A failing source never stops the others.
func (h *NewsHarvester) Run(ctx context.Context) []model.Status {
	results := make([]model.Status, 0, len(h.sources))

	for _, src := range h.sources {
		stored, err := h.harvestSource(ctx, src)
		st := model.Status{Source: src.Name, Status: model.StatusOK, Count: stored}
		if err != nil {
			st.Status = model.StatusError
			st.Message = err.Error()
			appLog.Error("news source failed", err, "source", src.Name, "url", redactURL(src.URL), "stored", stored)
		} else {
			appLog.Info("news source harvested", "source", src.Name, "stored", stored)
		}
		metrics.Run(metrics.JobNews, st.Status)
		results = append(results, st)
	}
	return results
}

func (h *NewsHarvester) harvestSource(ctx context.Context, src config.NewsSource) (int, error) {
	res, err := h.fetcher.Fetch(ctx, Feed{ID: src.Name, URL: src.URL})
	if err != nil {
		return 0, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(Sanitize(res.Body)))
	if err != nil {
		return 0, errors.Wrap(model.ErrMalformedPayload, err.Error())
	}

	items := feed.Items
	if h.itemsPerSource > 0 && len(items) > h.itemsPerSource {
		items = items[:h.itemsPerSource]
	}

	var (
		stored   int
		failed   int
		firstErr error
	)
	for _, it := range items {
		news, ok := h.newsItem(src, it)
		if !ok {
			metrics.Item(metrics.JobNews, src.Name, metrics.OutcomeSkipped)
			continue
		}
		if err := h.store.UpsertNews(ctx, news); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			metrics.Item(metrics.JobNews, src.Name, metrics.OutcomeFailed)
			appLog.Error("news upsert failed", err, "source", src.Name, "url", news.URL)
			continue
		}
		stored++
		metrics.Item(metrics.JobNews, src.Name, metrics.OutcomeStored)
	}

	if failed > 0 {
		return stored, errors.Wrap(model.ErrPersistence,
			fmt.Sprintf("%d of %d items failed: %v", failed, failed+stored, firstErr))
	}
	return stored, nil
}

// newsItem derives the stored row from a feed entry. Entries without a link
// have no upsert key and are skipped.
func (h *NewsHarvester) newsItem(src config.NewsSource, it *gofeed.Item) (*model.NewsItem, bool) {
	link := strings.TrimSpace(it.Link)
	if link == "" {
		return nil, false
	}

	title := Snippet(it.Title)
	if title == "" {
		title = untitled
	}

	content := it.Content
	if content == "" {
		content = it.Description
	}
	summary := Snippet(content)
	if summary == "" {
		summary = content
	}

	var enclosure string
	for _, e := range it.Enclosures {
		if e != nil && e.URL != "" {
			enclosure = e.URL
			break
		}
	}

	return &model.NewsItem{
		URL:         link,
		Title:       title,
		Source:      src.Name,
		Category:    src.Category,
		Summary:     Truncate(summary, h.summaryLength),
		ImageURL:    PickImage(content, enclosure),
		PublishedAt: h.publishedAt(it),
	}, true
}

func (h *NewsHarvester) publishedAt(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return it.PublishedParsed.UTC()
	}
	if it.UpdatedParsed != nil {
		return it.UpdatedParsed.UTC()
	}
	return h.now().UTC()
}
