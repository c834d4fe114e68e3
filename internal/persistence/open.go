// Package persistence selects the run ledger backend. It is the only package
// that imports the infra ledger drivers.
package persistence

import (
	"context"
	"fmt"
	"strings"

	"cornucopia/internal/infra/persistence/memory"
	"cornucopia/internal/infra/persistence/postgres"
	"cornucopia/internal/infra/persistence/sqlite"
	"cornucopia/pkg/domain"
)

// StorageDriver identifies a concrete ledger implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// Config selects and configures a ledger. An empty driver means sqlite.
type Config struct {
	Driver string
	Path   string
	DSN    string
}

// Open returns the configured ledger.
func Open(ctx context.Context, cfg Config) (domain.RunLedger, error) {
	driver := StorageDriver(strings.ToLower(strings.TrimSpace(cfg.Driver)))
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, cfg.Path)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
