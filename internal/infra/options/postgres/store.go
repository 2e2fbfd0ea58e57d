// Package postgres stores plugin options in Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"pluginscaffold/internal/infra/options/sqlkv"
	"pluginscaffold/internal/options/core"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/pluginscaffold?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is an sqlkv store on Postgres.
type Store struct {
	*sqlkv.Store
}

// NewStore connects using dsn (falling back to a localhost default), pings
// the server and applies the options schema.
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
	kv, err := sqlkv.New(ctx, db, sqlkv.Dialect{Driver: core.DriverPostgres, Numbered: true})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: kv}, nil
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
