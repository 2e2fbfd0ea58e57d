// Package sqlkv implements the options contract over database/sql. The SQLite
// and Postgres drivers share it and differ only in placeholder style.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"pluginscaffold/internal/options/core"
)

// Dialect describes the SQL flavour of a backend.
type Dialect struct {
	Driver core.Driver
	// Numbered selects $1-style placeholders instead of ?.
	Numbered bool
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS options (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transients (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at BIGINT NOT NULL DEFAULT 0
	)`,
}

// Store implements core.Store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
	now     func() time.Time
}

// New applies the schema and returns a store owning db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply options schema: %w", err)
		}
	}
	return &Store{db: db, dialect: dialect, now: time.Now}, nil
}

// SetClock replaces the time source used for transient expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// DB exposes the underlying handle for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the configured driver.
func (s *Store) Driver() core.Driver { return s.dialect.Driver }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) q(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get returns an option value.
func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT value FROM options WHERE name = ?`), name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get option %s: %w", name, err)
	}
	return v, true, nil
}

// Set upserts an option value.
func (s *Store) Set(ctx context.Context, name, value string) error {
	if err := core.CheckName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO options(name, value) VALUES(?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`), name, value)
	if err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}
	return nil
}

// Delete removes an option.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	return s.deleteFrom(ctx, "options", name)
}

// GetTransient returns a live transient and purges it once expired.
func (s *Store) GetTransient(ctx context.Context, name string) (string, bool, error) {
	var (
		v        string
		deadline int64
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT value, expires_at FROM transients WHERE name = ?`), name).Scan(&v, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get transient %s: %w", name, err)
	}
	if core.Expired(s.clock(), deadline) {
		if _, err := s.deleteFrom(ctx, "transients", name); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return v, true, nil
}

// SetTransient upserts a transient.
func (s *Store) SetTransient(ctx context.Context, name, value string, ttl time.Duration) error {
	if err := core.CheckName(name); err != nil {
		return err
	}
	deadline := core.ExpiresAt(s.clock(), ttl)
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO transients(name, value, expires_at) VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`), name, value, deadline)
	if err != nil {
		return fmt.Errorf("set transient %s: %w", name, err)
	}
	return nil
}

// DeleteTransient removes a transient.
func (s *Store) DeleteTransient(ctx context.Context, name string) (bool, error) {
	return s.deleteFrom(ctx, "transients", name)
}

// Names lists option names starting with prefix.
func (s *Store) Names(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT name FROM options WHERE substr(name, 1, ?) = ? ORDER BY name`), len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan option name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return out, nil
}

// PurgeExpired deletes every expired transient and returns how many went.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM transients WHERE expires_at <> 0 AND expires_at <= ?`), s.clock().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge transients: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) deleteFrom(ctx context.Context, table, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE name = ?`), name)
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", strings.TrimSuffix(table, "s"), name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
