// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/misp-purge/internal/model"
	"github.com/alfredjeanlab/misp-purge/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL and
// runs any pending migrations.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A purge run is a single sequential writer.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "purge_schema_migrations"})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRun upserts the run row and replaces its chunk rows in one
// transaction, so a re-saved run never mixes old and new chunks.
func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	return s.inTransaction(ctx, func(tx *sql.Tx) error {
		if err := queryUpsertRun(ctx, tx, run); err != nil {
			return fmt.Errorf("save run %s: %w", run.ID, err)
		}
		if err := queryDeleteChunks(ctx, tx, run.ID); err != nil {
			return fmt.Errorf("clear chunks for %s: %w", run.ID, err)
		}
		for _, c := range run.Chunks {
			if err := queryInsertChunk(ctx, tx, run.ID, c); err != nil {
				return fmt.Errorf("save chunk %d of %s: %w", c.Index, run.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := queryGetRun(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	chunks, err := queryGetChunks(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("get chunks for %s: %w", id, err)
	}
	run.Chunks = chunks
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	return queryListRuns(ctx, s.db, limit)
}

// inTransaction begins a transaction, calls fn, and commits on success or
// rolls back on error.
func (s *PostgresStore) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
