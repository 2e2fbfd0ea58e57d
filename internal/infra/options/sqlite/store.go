// Package sqlite stores plugin options in a single SQLite file using the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"pluginscaffold/internal/infra/options/sqlkv"
	"pluginscaffold/internal/options/core"
)

// Store is an sqlkv store on SQLite.
type Store struct {
	*sqlkv.Store
	path string
}

// NewStore opens (creating when needed) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "pluginscaffold.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection serialises writers, which SQLite requires anyway
	db.SetMaxOpenConns(1)
	kv, err := sqlkv.New(ctx, db, sqlkv.Dialect{Driver: core.DriverSQLite})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: kv, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
