// Package store persists news items and spotlight events. The SQL
// implementation targets Postgres (pgx) in production and SQLite locally;
// Memory backs tests and the "memory" driver.
package store

import (
	"context"

	"tekkin/internal/model"
)

// NewsStore is the write/read contract of the news table.
type NewsStore interface {
	// UpsertNews inserts item or updates the row with the same URL.
	UpsertNews(ctx context.Context, item *model.NewsItem) error
	// ListNews returns up to limit items of category, newest first.
	ListNews(ctx context.Context, category string, limit int) ([]*model.NewsItem, error)
}

// EventStore is the write/read contract of the spotlight_events table.
type EventStore interface {
	// InsertEvents inserts every record without any dedup key.
	InsertEvents(ctx context.Context, records []*model.EventRecord) error
	// InsertEvent inserts a single record.
	InsertEvent(ctx context.Context, record *model.EventRecord) error
	// EventExists reports whether a row with the same artist and date exists.
	EventExists(ctx context.Context, artist, date string) (bool, error)
	// ListEvents returns every row, most recently inserted first.
	ListEvents(ctx context.Context) ([]*model.EventRecord, error)
}

type Store interface {
	NewsStore
	EventStore
	Ping(ctx context.Context) error
	Close() error
}
