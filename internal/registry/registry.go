// Package registry is the durable Job Registry (spec §4.2): the single
// source of truth for job lifecycle state, backed by PostgreSQL.
//
// Go Pattern: we use jmoiron/sqlx the same way the teacher's internal/database
// package does — raw SQL plus struct scanning via `db:"..."` tags, no ORM.
// State transitions use Postgres as the compare-and-set primitive: an
// `UPDATE ... WHERE job_id = $1 AND state = $2` either updates exactly one
// row or zero, and RowsAffected tells the caller which — the same
// optimistic-concurrency trick a CAS loop would use against a single memory
// location, except the "location" here is a row guarded by the database's
// own locking.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Registry wraps a pooled Postgres connection with the Job Registry's
// application-specific queries.
type Registry struct {
	*sqlx.DB
}

// New opens a pooled connection to the Job Registry's backing Postgres
// instance. Pool settings follow the teacher's serverless-friendly
// configuration (internal/database/database.go).
func New(databaseURL string) (*Registry, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to job registry database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &Registry{db}, nil
}

// HealthCheck verifies the registry's database connection is alive.
func (r *Registry) HealthCheck(ctx context.Context) error {
	return r.PingContext(ctx)
}

// RunMigrations applies all pending schema migrations from migrationsPath.
func (r *Registry) RunMigrations(migrationsPath string) error {
	driver, err := postgres.WithInstance(r.DB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		log.Println("📦 Registry: no new migrations to apply")
	} else {
		version, dirty, _ := m.Version()
		log.Printf("📦 Registry: migrated to version %d (dirty: %v)", version, dirty)
	}
	return nil
}

// ErrNoRows is returned when a query expected to match a row matches none.
// It aliases sql.ErrNoRows so callers can keep using errors.Is against the
// familiar stdlib sentinel.
var ErrNoRows = sql.ErrNoRows
