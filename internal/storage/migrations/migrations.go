// Package migrations embeds the schema for the Postgres repository
// implementation and applies it with golang-migrate, which tracks applied
// versions in its own schema_migrations table so re-running Apply against an
// already-migrated database is a no-op rather than re-executing DDL.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var files embed.FS

// Apply runs every embedded migration against db in filename order, each
// version guarded by golang-migrate's own migration-history tracking.
func Apply(ctx context.Context, db *sql.DB) error {
	sourceDriver, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("open migration target: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
