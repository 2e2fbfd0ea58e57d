// Package memory implements an in-memory asset Store for tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // etag only
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"pluginscaffold/internal/assets/core"
)

type assetEntry struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory.
type Store struct {
	mu      sync.RWMutex
	objs    map[string]assetEntry
	baseURL string
}

// New returns an in-memory asset store whose URLs are rooted at baseURL.
func New(baseURL string) *Store {
	return &Store{objs: make(map[string]assetEntry), baseURL: baseURL}
}

// Driver returns the asset driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores or replaces an asset.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if err := checkKey(key); err != nil {
		return core.Info{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := md5.Sum(b) //nolint:gosec // etag only
	ct := opts.ContentType
	if ct == "" {
		ct = core.ContentTypeFor(key)
	}
	info := core.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  ct,
		CacheControl: opts.CacheControl,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     core.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.mu.Lock()
	s.objs[key] = assetEntry{info: info, data: b}
	s.mu.Unlock()
	return info, nil
}

// Get returns asset metadata and a reader over a copy of its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	data := bytes.Clone(obj.data)
	info := obj.info
	info.Metadata = core.CloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Head returns asset metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	info := obj.info
	info.Metadata = core.CloneMetadata(info.Metadata)
	return info, nil
}

// Delete removes the asset, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

// List returns all assets under prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	out := make([]core.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			inf := v.info
			inf.Metadata = core.CloneMetadata(inf.Metadata)
			out = append(out, inf)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// URL joins key onto the configured base URL.
func (s *Store) URL(_ context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return core.JoinURL(s.baseURL, key), nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", core.ErrInvalidKey, key)
	}
	return nil
}
