package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/checkstock/internal/config"
)

//go:embed schema.sql
var schema string

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

var (
	dbInstance *DB
	dbErr      error
	once       sync.Once
)

// NewDB creates a new database connection pool. The driver is "postgres"
// (lib/pq) unless the config selects "pgx". The pool is created once; a
// failed first attempt is returned to every later caller.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	once.Do(func() {
		driver := cfg.Driver
		if driver == "" {
			driver = "postgres"
		}

		db, err := sqlx.Connect(driver, cfg.DSN())
		if err != nil {
			dbErr = fmt.Errorf("connect %s: %w", driver, err)
			return
		}

		maxConns := cfg.MaxConns
		if maxConns <= 0 {
			maxConns = 10
		}

		// Configure connection pool
		db.SetMaxOpenConns(maxConns + 5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		dbInstance = &DB{
			DB:  db,
			sem: semaphore.NewWeighted(int64(maxConns)),
		}
	})

	return dbInstance, dbErr
}

// EnsureSchema creates the ledger and ingest tracking tables if missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not apply schema: %w", err)
	}
	return nil
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	// Acquire semaphore
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
