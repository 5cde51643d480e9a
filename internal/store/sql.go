package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"tekkin/internal/config"
	"tekkin/internal/model"
)

const (
	tableNews   = "news"
	tableEvents = "spotlight_events"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// sqlDriverNames maps config drivers to database/sql driver names.
var sqlDriverNames = map[string]string{
	DriverPostgres: "pgx",
	DriverSQLite:   "sqlite3",
}

var eventColumns = []string{
	"id",
	"artist",
	"COALESCE(artist_id, '') AS artist_id",
	"COALESCE(date, '') AS date",
	"COALESCE(venue, '') AS venue",
	"COALESCE(city, '') AS city",
	"COALESCE(country, '') AS country",
	"COALESCE(url, '') AS url",
	"source",
	"CAST(raw AS TEXT) AS raw",
	"created_at",
}

var newsColumns = []string{
	"id",
	"url",
	"title",
	"source",
	"category",
	"COALESCE(summary, '') AS summary",
	"COALESCE(image_url, '') AS image_url",
	"published_at",
	"created_at",
}

// SQL implements Store on top of sqlx with squirrel-built statements.
type SQL struct {
	DB   *sqlx.DB
	psql sq.StatementBuilderType
	now  func() time.Time
}

// Open connects the store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Store, error) {
	if cfg.Driver == DriverMemory {
		return NewMemory(), nil
	}
	sqlDB, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewSQL(sqlx.NewDb(sqlDB, sqlDriverNames[cfg.Driver])), nil
}

// OpenDB opens the database/sql handle for a SQL driver.
func OpenDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	name, ok := sqlDriverNames[cfg.Driver]
	if !ok {
		return nil, errors.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	db, err := sql.Open(name, strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	if cfg.MaxPoolSize > 0 {
		db.SetMaxOpenConns(cfg.MaxPoolSize)
		db.SetMaxIdleConns(cfg.MaxPoolSize)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// NewSQL wraps an open sqlx handle. Placeholders follow the driver.
func NewSQL(db *sqlx.DB) *SQL {
	var format sq.PlaceholderFormat = sq.Question
	if db.DriverName() == "pgx" || db.DriverName() == "postgres" {
		format = sq.Dollar
	}
	return &SQL{
		DB:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(format),
		now:  time.Now,
	}
}

func (s *SQL) UpsertNews(ctx context.Context, item *model.NewsItem) error {
	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}
	statement, args, err := s.psql.Insert(tableNews).
		Columns("id", "url", "title", "source", "category", "summary", "image_url", "published_at", "created_at").
		Values(id, item.URL, item.Title, item.Source, item.Category, nullable(item.Summary), nullable(item.ImageURL),
			item.PublishedAt.UTC(), s.now().UTC()).
		Suffix("ON CONFLICT (url) DO UPDATE SET " +
			"title = excluded.title, source = excluded.source, category = excluded.category, " +
			"summary = excluded.summary, image_url = excluded.image_url, published_at = excluded.published_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, statement, args...); err != nil {
		return errors.Wrapf(err, "store: upsert news %s", item.URL)
	}
	return nil
}

func (s *SQL) ListNews(ctx context.Context, category string, limit int) ([]*model.NewsItem, error) {
	builder := s.psql.Select(newsColumns...).From(tableNews).OrderBy("published_at DESC")
	if category != "" {
		builder = builder.Where(sq.Eq{"category": category})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	statement, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	list := make([]*model.NewsItem, 0)
	if err := s.DB.SelectContext(ctx, &list, statement, args...); err != nil {
		return nil, errors.Wrap(err, "store: list news")
	}
	return list, nil
}

func (s *SQL) InsertEvents(ctx context.Context, records []*model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	builder := s.insertEvents()
	for _, r := range records {
		builder = builder.Values(s.eventValues(r)...)
	}
	statement, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, statement, args...); err != nil {
		return errors.Wrapf(err, "store: insert %d events", len(records))
	}
	return nil
}

func (s *SQL) InsertEvent(ctx context.Context, record *model.EventRecord) error {
	statement, args, err := s.insertEvents().Values(s.eventValues(record)...).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, statement, args...); err != nil {
		return errors.Wrapf(err, "store: insert event %s %s", record.Artist, record.Date)
	}
	return nil
}

// EventExists matches an empty date against NULL, which is how eventValues
// stores it.
func (s *SQL) EventExists(ctx context.Context, artist, date string) (bool, error) {
	statement, args, err := s.psql.Select("id").From(tableEvents).
		Where(sq.Eq{"artist": artist, "date": nullable(date)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, err
	}
	var ids []string
	if err := s.DB.SelectContext(ctx, &ids, statement, args...); err != nil {
		return false, errors.Wrap(err, "store: event exists")
	}
	return len(ids) > 0, nil
}

func (s *SQL) ListEvents(ctx context.Context) ([]*model.EventRecord, error) {
	statement, args, err := s.psql.Select(eventColumns...).From(tableEvents).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	list := make([]*model.EventRecord, 0)
	if err := s.DB.SelectContext(ctx, &list, statement, args...); err != nil {
		return nil, errors.Wrap(err, "store: list events")
	}
	return list, nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQL) Close() error {
	return s.DB.Close()
}

func (s *SQL) insertEvents() sq.InsertBuilder {
	return s.psql.Insert(tableEvents).
		Columns("id", "artist", "artist_id", "date", "venue", "city", "country", "url", "source", "raw", "created_at")
}

func (s *SQL) eventValues(r *model.EventRecord) []interface{} {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	return []interface{}{
		id,
		r.Artist,
		nullable(r.ArtistID),
		nullable(r.Date),
		nullable(r.Venue),
		nullable(r.City),
		nullable(r.Country),
		nullable(r.URL),
		r.Source,
		r.Raw,
		s.now().UTC(),
	}
}

// nullable stores empty optional text as NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
