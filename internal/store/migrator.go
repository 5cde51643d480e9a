package store

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"tekkin/internal/store/migrations"
)

// Migrator applies the embedded schema migrations for one driver.
type Migrator struct {
	db     *sql.DB
	driver string
}

func NewMigrator(db *sql.DB, driver string) *Migrator {
	return &Migrator{db: db, driver: driver}
}

func (m *Migrator) init() (*migrate.Migrate, error) {
	var (
		instance database.Driver
		err      error
	)
	src, dir := migrations.Postgres, "postgres"

	switch m.driver {
	case DriverPostgres:
		instance, err = migratepgx.WithInstance(m.db, &migratepgx.Config{})
	case DriverSQLite:
		instance, err = sqlite3.WithInstance(m.db, &sqlite3.Config{})
		src, dir = migrations.SQLite, "sqlite"
	default:
		return nil, errors.Errorf("migrate: unsupported driver %q", m.driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "migrate: driver")
	}

	d, err := iofs.New(src, dir)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", d, m.driver, instance)
}

// Up runs every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	mg, err := m.init()
	if err != nil {
		return err
	}
	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Reset drops every table.
func (m *Migrator) Reset() error {
	mg, err := m.init()
	if err != nil {
		return err
	}
	return mg.Drop()
}

// Status returns the current schema version.
func (m *Migrator) Status() (version uint, dirty bool, err error) {
	mg, err := m.init()
	if err != nil {
		return 0, false, err
	}
	return mg.Version()
}
