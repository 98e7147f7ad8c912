package storage

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// withSchemaMigrations opens the Postgres migrations in dir, runs fn and
// closes both the source and the database handle
func withSchemaMigrations(databaseURL, dir string, fn func(m *migrate.Migrate) error) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations in %s: %w", dir, err)
	}
	defer func() {
		_, _ = m.Close() // nolint:errcheck // cleanup in defer
	}()
	return fn(m)
}

// RunMigrations applies every pending schema migration
func RunMigrations(databaseURL, dir string) error {
	return withSchemaMigrations(databaseURL, dir, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply schema migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigrations reverts the most recent schema migration
func RollbackMigrations(databaseURL, dir string) error {
	return withSchemaMigrations(databaseURL, dir, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("roll back schema migration: %w", err)
		}
		return nil
	})
}

// MigrationVersion reports the applied schema version. A database without
// migrations reports version 0.
func MigrationVersion(databaseURL, dir string) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := withSchemaMigrations(databaseURL, dir, func(m *migrate.Migrate) error {
		v, d, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		version, dirty = v, d
		return nil
	})
	return version, dirty, err
}
