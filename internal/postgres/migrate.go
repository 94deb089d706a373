package postgres

import (
	"embed"
	"errors"

	"github.com/flexprice/lockbox/internal/config"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations. It opens its own
// connection so closing it never touches the shared pool.
type Migrator struct {
	m      *migrate.Migrate
	logger *logger.Logger
}

// NewMigrator prepares a migrator for the configured database
func NewMigrator(cfg *config.Configuration, log *logger.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not load schema migrations").
			Mark(ierr.ErrSystem)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.Postgres.GetURL())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not connect to the database to migrate it").
			Mark(ierr.ErrDatabase)
	}

	return &Migrator{m: m, logger: log}, nil
}

// Up applies all pending migrations
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Debugw("database schema is up to date")
		return nil
	}
	if err != nil {
		return ierr.WithError(err).
			WithHint("Database migration failed").
			Mark(ierr.ErrDatabase)
	}

	version, _, _ := m.m.Version()
	m.logger.Infow("applied database migrations", "version", version)
	return nil
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	err := m.m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ierr.WithError(err).
			WithHint("Database rollback failed").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Version reports the applied schema version. dirty is true when a previous
// migration failed half way.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Migrator) Close() {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil || dbErr != nil {
		m.logger.Warnw("error closing migrator", "source_error", srcErr, "database_error", dbErr)
	}
}
