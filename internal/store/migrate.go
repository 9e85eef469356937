package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/matheus3301/msgr/internal/store/migrations"
)

// ErrDirtySchema means a previous migration stopped halfway and needs a
// manual fix before the server can start.
var ErrDirtySchema = errors.New("schema is dirty")

// MigrateResult reports the schema version before and after Migrate.
type MigrateResult struct {
	From    uint
	Version uint
	Changed bool
}

// Migrate brings the schema up to the latest embedded migration.
func (db *DB) Migrate() (MigrateResult, error) {
	m, err := db.migrator()
	if err != nil {
		return MigrateResult{}, err
	}

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return MigrateResult{}, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return MigrateResult{From: from}, fmt.Errorf("%w at version %d", ErrDirtySchema, from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrateResult{From: from}, fmt.Errorf("migrate up from %d: %w", from, err)
	}

	to, _, err := m.Version()
	if err != nil {
		return MigrateResult{From: from}, fmt.Errorf("read schema version: %w", err)
	}
	return MigrateResult{From: from, Version: to, Changed: to != from}, nil
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}
	return m, nil
}
