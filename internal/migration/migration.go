package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const (
	migrationsDir   = "migrations"
	migrationsTable = "coretrack_schema_migrations"
)

// SchemaState reports where the Postgres schema stands after RunMigrations.
type SchemaState struct {
	Version uint
	Dirty   bool
	Changed bool
}

// RunMigrations brings the Postgres schema up to the newest embedded version.
// The shared *sql.DB stays open; the migrator is never closed.
func RunMigrations(db *sql.DB) (SchemaState, error) {
	if db == nil {
		return SchemaState{}, errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return SchemaState{}, err
	}

	state := SchemaState{Changed: true}
	if err := migrator.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return SchemaState{}, fmt.Errorf("apply migrations: %w", err)
		}
		state.Changed = false
	}

	version, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return SchemaState{}, fmt.Errorf("read schema version: %w", err)
	default:
		state.Version = version
		state.Dirty = dirty
	}
	return state, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}
