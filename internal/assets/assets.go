// Package assets selects the asset store backend and publishes a plugin's
// static files into it. Other packages depend on Store and never import the
// infra drivers directly.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"pluginscaffold/internal/assets/core"
	"pluginscaffold/internal/config"
	fsstore "pluginscaffold/internal/infra/assets/fs"
	"pluginscaffold/internal/infra/assets/memory"
	"pluginscaffold/internal/infra/assets/s3"
)

type (
	// Store is the asset storage contract.
	Store = core.Store
	// Info describes a published asset.
	Info = core.Info
	// PutOptions tunes Put.
	PutOptions = core.PutOptions
	// Driver identifies a backend.
	Driver = core.Driver
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrNotFound is returned for missing assets.
	ErrNotFound = core.ErrNotFound
	// ErrInvalidKey is returned for keys that escape the store.
	ErrInvalidKey = core.ErrInvalidKey
)

// NewMemory returns an in-memory store with URLs rooted at baseURL.
func NewMemory(baseURL string) Store { return memory.New(baseURL) }

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Assets) (Store, error) {
	switch Driver(cfg.Driver) {
	case "", DriverFilesystem:
		return fsstore.New(cfg.Root, cfg.BaseURL)
	case DriverMemory:
		return memory.New(cfg.BaseURL), nil
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			PathStyle:       cfg.S3PathStyle,
			PublicURL:       cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown assets driver %s", cfg.Driver)
	}
}

// publishable lists the extensions Publish copies.
var publishable = map[string]bool{
	".js": true, ".css": true, ".map": true, ".png": true, ".jpg": true,
	".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".woff": true, ".woff2": true,
}

// Publish copies every static file under dirs of src into store, keyed by its
// slash path. It returns the published keys in walk order.
func Publish(ctx context.Context, store Store, src fs.FS, dirs ...string) ([]string, error) {
	var keys []string
	for _, dir := range dirs {
		err := fs.WalkDir(src, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !publishable[strings.ToLower(path.Ext(p))] {
				return nil
			}
			f, err := src.Open(p)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if _, err := store.Put(ctx, p, f, PutOptions{CacheControl: "public, max-age=31536000"}); err != nil {
				return fmt.Errorf("publish %s: %w", p, err)
			}
			keys = append(keys, p)
			return nil
		})
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return keys, err
		}
	}
	return keys, nil
}

// JoinURL appends key to base with exactly one separating slash.
func JoinURL(base, key string) string { return core.JoinURL(base, key) }
