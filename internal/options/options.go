// Package options selects and opens the plugin options backend. Other
// packages depend on Store and never import the infra drivers directly.
package options

import (
	"context"
	"fmt"

	"pluginscaffold/internal/config"
	"pluginscaffold/internal/infra/options/memory"
	"pluginscaffold/internal/infra/options/postgres"
	"pluginscaffold/internal/infra/options/sqlite"
	"pluginscaffold/internal/options/core"
)

type (
	// Store is the options contract.
	Store = core.Store
	// Driver identifies a backend.
	Driver = core.Driver
)

const (
	DriverMemory   = core.DriverMemory
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
)

// ErrInvalidName is returned for empty or oversized names.
var ErrInvalidName = core.ErrInvalidName

// NewMemory returns an in-process store.
func NewMemory() Store { return memory.New() }

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Options) (Store, error) {
	switch Driver(cfg.Driver) {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown options driver %s", cfg.Driver)
	}
}
