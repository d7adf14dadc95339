// Package database opens the SQL backends of the credential store.
package database

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// connectTimeout bounds the initial ping and the migration run.
const connectTimeout = 30 * time.Second

// Postgres is the pgx-backed credential store. Both the users and api_keys
// tables live in the pool's database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL, checks the server answers and brings
// the users and api_keys schema up to date. The pool is closed on any error.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres store URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	pg := &Postgres{pool: pool}

	setupCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := pool.Ping(setupCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reaching postgres store: %w", err)
	}
	if err := pg.migrate(setupCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pg, nil
}

func (pg *Postgres) migrate(ctx context.Context) error {
	// The *sql.DB borrows connections from the pool and is not closed here.
	sqlDB := stdlib.OpenDBFromPool(pg.pool)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migrating credential schema: %w", err)
	}
	return nil
}

// Ping reports whether the store still answers; the health endpoint uses it.
func (pg *Postgres) Ping(ctx context.Context) error {
	return pg.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (pg *Postgres) Close() {
	pg.pool.Close()
}

// Pool is handed to the user and api key repositories.
func (pg *Postgres) Pool() *pgxpool.Pool {
	return pg.pool
}
