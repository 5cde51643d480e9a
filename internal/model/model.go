package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Event sources recorded in EventRecord.Source.
const (
	SourceBandsintown = "bandsintown"
	SourceManual      = "manual"
)

// News categories used by the feed sources and the /api/news filter.
const (
	CategoryEvents     = "events"
	CategoryPromotion  = "promotion"
	CategoryProduction = "production"
)

// EventRecord is a single row of the spotlight_events table. Date is kept as
// the loosely-ISO string it was stored with; readers must tolerate an empty or
// unparseable value.
type EventRecord struct {
	ID       string `db:"id" json:"id"`
	Artist   string `db:"artist" json:"artist"`
	ArtistID string `db:"artist_id" json:"artist_id,omitempty"`
	Date     string `db:"date" json:"date,omitempty"`
	Venue    string `db:"venue" json:"venue,omitempty"`
	City     string `db:"city" json:"city,omitempty"`
	Country  string `db:"country" json:"country,omitempty"`
	URL      string `db:"url" json:"url,omitempty"`
	Source   string `db:"source" json:"source"`

	// Raw is the provenance payload (scraped object, feed entry, VEVENT
	// properties). It is never validated.
	Raw RawJSON `db:"raw" json:"raw,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewsItem is a single row of the news table, upserted by URL.
type NewsItem struct {
	ID          string    `db:"id" json:"id"`
	URL         string    `db:"url" json:"url"`
	Title       string    `db:"title" json:"title"`
	Source      string    `db:"source" json:"source"`
	Category    string    `db:"category" json:"category"`
	Summary     string    `db:"summary" json:"summary"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Run status values reported per source, artist or record.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Status is the outcome of one unit of a harvest run. A run never has a
// single pass/fail verdict; callers get one Status per source.
type Status struct {
	Source  string `json:"source"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
}

// RawJSON is an opaque JSON document stored in a json/jsonb or text column.
type RawJSON []byte

func (r *RawJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("model: cannot scan %T into RawJSON", src)
	}
	return nil
}

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(b []byte) error {
	*r = append(RawJSON(nil), b...)
	return nil
}
