package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

func newMigrator(db *sql.DB, d Dialect) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch d {
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s driver: %w", d, err)
	}

	source, err := iofs.New(migrations, "migrations/"+string(d))
	if err != nil {
		return nil, fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(d), driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Migrate applies all pending migrations. Already applied migrations are skipped.
func Migrate(db *sql.DB, d Dialect) error {
	m, err := newMigrator(db, d)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("getting migration version: %w", err)
	}

	if dirty {
		slog.Warn("Database migration state is dirty", "version", version)
	} else {
		slog.Info("Database migrations complete", "dialect", d, "version", version)
	}
	return nil
}

// MigrationVersion returns the current migration version.
func MigrationVersion(db *sql.DB, d Dialect) (uint, bool, error) {
	m, err := newMigrator(db, d)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}

// MigrateDown rolls back every migration. All data is lost.
func MigrateDown(db *sql.DB, d Dialect) error {
	m, err := newMigrator(db, d)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}
