// Package postgres is the run ledger on a PostgreSQL server via the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"cornucopia/internal/infra/persistence/sqlledger"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/cornucopia?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a postgres-backed run ledger.
type Store struct {
	*sqlledger.Ledger
}

// NewStore opens the database at dsn (falls back to defaultDSN), pings it and
// ensures the runs table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	ledger, err := sqlledger.New(ctx, db, sqlledger.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Ledger: ledger}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
