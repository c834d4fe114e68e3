// Package sqlite is the embedded run ledger on the pure go sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"cornucopia/internal/infra/persistence/sqlledger"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "cornucopia.db"

// Store is a sqlite-backed run ledger.
type Store struct {
	*sqlledger.Ledger
	path string
}

// NewStore opens (creating if needed) the database at path. ":memory:" gives
// a private in-memory database.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" coherent.
	db.SetMaxOpenConns(1)
	ledger, err := sqlledger.New(ctx, db, sqlledger.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Ledger: ledger, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
