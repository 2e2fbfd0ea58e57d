// Package core defines the contract for plugin options and transients:
// small named string values the plugin persists between requests.
package core

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Driver identifies a concrete options backend.
type Driver string

const (
	// DriverMemory keeps values in process memory (default, tests).
	DriverMemory Driver = "memory"
	// DriverSQLite stores values in a local SQLite file.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores values in Postgres.
	DriverPostgres Driver = "postgres"
)

// Store persists options (no expiry) and transients (optional expiry).
// Expired transients read as absent.
type Store interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) (bool, error)
	GetTransient(ctx context.Context, name string) (string, bool, error)
	// SetTransient stores value until ttl elapses; ttl <= 0 never expires.
	SetTransient(ctx context.Context, name, value string, ttl time.Duration) error
	DeleteTransient(ctx context.Context, name string) (bool, error)
	// Names lists option names with prefix in lexical order.
	Names(ctx context.Context, prefix string) ([]string, error)
	Driver() Driver
	Close() error
}

// ErrInvalidName is returned for empty or oversized names.
var ErrInvalidName = errors.New("options: invalid name")

// MaxNameLength bounds option and transient names.
const MaxNameLength = 191

// CheckName validates an option or transient name.
func CheckName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}

// ExpiresAt converts a ttl into an absolute unix-nano deadline; 0 means never.
func ExpiresAt(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixNano()
}

// Expired reports whether a deadline produced by ExpiresAt has passed.
func Expired(now time.Time, deadline int64) bool {
	return deadline != 0 && now.UnixNano() >= deadline
}
