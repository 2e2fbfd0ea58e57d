// Package memory implements an in-process options Store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pluginscaffold/internal/options/core"
)

type transient struct {
	value    string
	deadline int64
}

// Store implements core.Store backed by maps.
type Store struct {
	mu         sync.RWMutex
	options    map[string]string
	transients map[string]transient
	now        func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		options:    make(map[string]string),
		transients: make(map[string]transient),
		now:        time.Now,
	}
}

// SetClock replaces the time source used for transient expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Driver returns the options driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Get returns an option value.
func (s *Store) Get(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.options[name]
	return v, ok, nil
}

// Set stores an option value.
func (s *Store) Set(_ context.Context, name, value string) error {
	if err := core.CheckName(name); err != nil {
		return err
	}
	s.mu.Lock()
	s.options[name] = value
	s.mu.Unlock()
	return nil
}

// Delete removes an option.
func (s *Store) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.options[name]
	delete(s.options, name)
	return ok, nil
}

// GetTransient returns a live transient; expired entries are dropped.
func (s *Store) GetTransient(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transients[name]
	if !ok {
		return "", false, nil
	}
	if core.Expired(s.now(), t.deadline) {
		delete(s.transients, name)
		return "", false, nil
	}
	return t.value, true, nil
}

// SetTransient stores a transient.
func (s *Store) SetTransient(_ context.Context, name, value string, ttl time.Duration) error {
	if err := core.CheckName(name); err != nil {
		return err
	}
	s.mu.Lock()
	s.transients[name] = transient{value: value, deadline: core.ExpiresAt(s.now(), ttl)}
	s.mu.Unlock()
	return nil
}

// DeleteTransient removes a transient, reporting whether a live one existed.
func (s *Store) DeleteTransient(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transients[name]
	delete(s.transients, name)
	return ok && !core.Expired(s.now(), t.deadline), nil
}

// Names lists option names with prefix.
func (s *Store) Names(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	out := make([]string, 0, len(s.options))
	for name := range s.options {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
