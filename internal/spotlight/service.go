package spotlight

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	appLog "tekkin/internal/log"
	"tekkin/internal/model"
	"tekkin/internal/store"
)

const (
	thumbnailWorkers = 4

	unknownArtist      = "Unknown Artist"
	unknownVenue       = "Unknown Venue"
	defaultBandsintown = "https://www.bandsintown.com/"
)

var (
	titleNoise = regexp.MustCompile(`(?i)live|event|show|tickets`)
	whitespace = regexp.MustCompile(`\s+`)
)

// ThumbnailResolver returns the profile picture URL of an Instagram handle.
type ThumbnailResolver interface {
	ProfilePicture(ctx context.Context, username string) (string, error)
}

// Service maps stored events to spotlight items. Every call reads a fresh
// snapshot from the store; nothing is cached here.
type Service struct {
	store     store.EventStore
	thumbs    ThumbnailResolver
	handles   map[string]string
	assetsURL string
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a Service. thumbs may be nil, in which case every
// thumbnail is the static asset. handles maps artist names to Instagram
// handles that differ from the default derived from the name.
func NewService(s store.EventStore, thumbs ThumbnailResolver, handles map[string]string, assetsURL string, loc *time.Location) *Service {
	if handles == nil {
		handles = map[string]string{}
	}
	return &Service{
		store:     s,
		thumbs:    thumbs,
		handles:   handles,
		assetsURL: strings.TrimRight(assetsURL, "/"),
		loc:       loc,
		now:       time.Now,
	}
}

// Location is the display timezone used for partitioning.
func (s *Service) Location() *time.Location { return s.loc }

// Items returns every stored event as a display item, newest insert first.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	records, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(records))
	var artists []string
	seen := make(map[string]bool)
	for i, rec := range records {
		it := MapRecord(rec, i)
		if !seen[it.Artist] {
			seen[it.Artist] = true
			artists = append(artists, it.Artist)
		}
		out = append(out, it)
	}

	pictures := s.thumbnails(ctx, artists)
	for i := range out {
		out[i].Thumbnail = pictures[out[i].Artist]
	}
	return out, nil
}

// Item returns the item with the given id.
func (s *Service) Item(ctx context.Context, id string) (Item, bool, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return Item{}, false, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

// Buckets partitions a fresh snapshot around the current time.
func (s *Service) Buckets(ctx context.Context) (Buckets, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return Buckets{}, err
	}
	return Partition(items, s.now(), s.loc), nil
}

// Upcoming returns the items from today on, soonest first.
func (s *Service) Upcoming(ctx context.Context) ([]Item, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	return Upcoming(items, s.now(), s.loc), nil
}

// thumbnails resolves one picture per artist, at most thumbnailWorkers
// lookups at a time. Failed lookups keep the static asset.
func (s *Service) thumbnails(ctx context.Context, artists []string) map[string]string {
	out := make(map[string]string, len(artists))
	for _, artist := range artists {
		out[artist] = s.assetsURL + "/" + Slug(artist) + "-spotlight.jpg"
	}
	if s.thumbs == nil {
		return out
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(thumbnailWorkers)
	for _, artist := range artists {
		g.Go(func() error {
			handle, ok := s.handles[artist]
			if !ok {
				handle = Handle(artist)
			}
			url, err := s.thumbs.ProfilePicture(ctx, handle)
			if err != nil {
				appLog.Debug("instagram thumbnail unavailable", "artist", artist, "handle", handle, "error", err.Error())
				return nil
			}
			if url != "" {
				mu.Lock()
				out[artist] = url
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// MapRecord turns a stored row into a display item. Row columns win; gaps
// are filled from the raw payload the row was scraped from.
func MapRecord(rec *model.EventRecord, index int) Item {
	raw := []byte(rec.Raw)

	artist := rec.Artist
	if artist == "" {
		artist = rawArtist(raw)
	}

	venue := firstNonEmpty(rec.Venue, rawString(raw, "venueName"), unknownVenue)

	city, country := rec.City, rec.Country
	if loc := rawString(raw, "location"); loc != "" {
		parts := strings.Split(loc, ",")
		if city == "" {
			city = strings.TrimSpace(parts[0])
		}
		if country == "" && len(parts) > 1 {
			country = strings.TrimSpace(parts[1])
		}
	}

	key := firstNonEmpty(rawString(raw, "id"), rec.ID, strconv.Itoa(index))

	return Item{
		ID:      key + "-" + Slug(artist),
		Artist:  artist,
		Venue:   venue,
		City:    city,
		Country: country,
		Date:    firstNonEmpty(rec.Date, rawString(raw, "startsAt")),
		URL: firstNonEmpty(rec.URL,
			rawString(raw, "callToActionRedirectUrl"),
			rawString(raw, "eventUrl"),
			rawString(raw, "nonPlusStreamingUrl")),
		Bandsintown: firstNonEmpty(
			rawString(raw, "eventUrl"),
			rawString(raw, "nonPlusStreamingUrl"),
			defaultBandsintown),
		Source: rec.Source,
	}
}

func rawArtist(raw []byte) string {
	for _, path := range []string{
		"ticketClickData.userCreationData.artistName",
		"artistName",
		"performerName",
		"name",
	} {
		if v := rawString(raw, path); v != "" {
			return v
		}
	}
	if title := rawString(raw, "title"); title != "" {
		if cleaned := strings.TrimSpace(titleNoise.ReplaceAllString(title, "")); cleaned != "" {
			return cleaned
		}
	}
	return unknownArtist
}

func rawString(raw []byte, path string) string {
	if len(raw) == 0 {
		return ""
	}
	r := gjson.GetBytes(raw, path)
	if r.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(r.Str)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Slug lowercases name and joins its words with dashes.
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Handle derives the default Instagram handle of an artist name.
func Handle(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "")
}
