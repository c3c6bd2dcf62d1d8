// Package storage implements the repository ports (internal/repository)
// against Postgres, using jmoiron/sqlx for scanning and lib/pq as the
// driver — the stack the teacher's go.mod carries for relational storage,
// given a concrete home here since HTTP routing and persistence internals
// are collaborators but the core still needs something to compile against.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/scenarioflow/control-plane/internal/repository"
	"github.com/scenarioflow/control-plane/internal/storage/migrations"
)

// Postgres is a repository.Repository backed by a single *sqlx.DB handle.
// Large JSON-shaped fields (steps, setup, teardown, variables, tags, nodes,
// edges, node_results, step_results, environment) are stored as jsonb,
// exactly as spec.md §6 "Persisted state layout" describes.
type Postgres struct {
	db *sqlx.DB
}

// Open connects to dsn, verifies connectivity with a ping, and applies the
// embedded schema migrations.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewWithDB wraps an already-open sqlx handle, used by tests running
// against go-sqlmock.
func NewWithDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Ping verifies the connection is alive, used by the gateway's health check.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Scenarios returns the Scenarios repository port.
func (p *Postgres) Scenarios() repository.Scenarios { return &scenarioRepo{db: p.db} }

// Sessions returns the Sessions repository port.
func (p *Postgres) Sessions() repository.Sessions { return &sessionRepo{db: p.db} }

// UserFlows returns the UserFlows repository port.
func (p *Postgres) UserFlows() repository.UserFlows { return &userFlowRepo{db: p.db} }
