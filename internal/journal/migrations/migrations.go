package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// MigrateUp applies every pending migration. A journal already at the
// latest version is left untouched.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	// m is never closed: closing it would close the caller's db handle.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// CheckSchemaStatus reports whether the journal schema matches the
// migrations compiled into this binary. It returns nil only when the
// versions agree and the schema is clean.
func CheckSchemaStatus(db *sql.DB) error {
	latest, err := latestVersion()
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}

	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	// m is never closed: closing it would close the caller's db handle.

	current, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return errors.New("journal has no schema version (needs migration)")
	case err != nil:
		return fmt.Errorf("reading journal schema version: %w", err)
	case dirty:
		return fmt.Errorf("journal schema is dirty at version %d from an interrupted migration", current)
	case current < latest:
		return fmt.Errorf("journal schema is at version %d, binary expects %d (needs migration)", current, latest)
	case current > latest:
		return fmt.Errorf("journal schema version %d is ahead of this binary (expects %d)", current, latest)
	}
	return nil
}

// newMigrate wires the embedded migration files to the open journal handle.
func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("wrapping journal handle: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("assembling migrator: %w", err)
	}
	return m, nil
}

// latestVersion scans the embedded migration files for the highest version.
func latestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			// Next errors once v is the last migration.
			return v, nil
		}
		v = next
	}
}
