package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable keeps the inbox schema version apart from any other
// migrate user sharing the database file.
const migrationsTable = "gitnotify_schema_migrations"

// RunMigrations brings the notice inbox and review event log schema up to
// date and returns the resulting schema version. Already-applied migrations
// are skipped; a dirty schema is an error.
func RunMigrations(db *sql.DB) (uint, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open inbox migrations: %w", err)
	}

	target, err := migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return 0, fmt.Errorf("prepare inbox database: %w", err)
	}

	m, err := migrate.NewWithInstance("inbox", source, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("create inbox migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate inbox schema: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read inbox schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("inbox schema version %d is dirty", version)
	}

	return version, nil
}
