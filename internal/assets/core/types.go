// Package core defines the storage contract for published plugin assets
// (scripts, stylesheets, images) shared by every asset backend.
package core

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"time"
)

// Driver identifies a concrete asset storage backend implementation.
type Driver string

const (
	// DriverFilesystem serves assets from a local directory (default, dev).
	DriverFilesystem Driver = "fs"
	// DriverS3 stores assets in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps assets in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType  string            // derived from the key extension when empty
	CacheControl string            // optional
	Metadata     map[string]string // small, flat key-value
}

// Info describes a published asset.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	CacheControl string            `json:"cache_control,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store publishes assets under slash-separated keys. Put replaces an existing
// asset so a redeploy can republish the same keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	// URL returns the address a browser should load key from.
	URL(ctx context.Context, key string) (string, error)
	Driver() Driver
}

var (
	// ErrNotFound is returned by Get and Head for missing keys.
	ErrNotFound = errors.New("assets: not found")
	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("assets: invalid key")
)

// ContentTypeFor guesses a MIME type from the key extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// JoinURL appends key to base with exactly one separating slash.
func JoinURL(base, key string) string {
	if base == "" {
		return "/" + trimLeft(key)
	}
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + trimLeft(key)
}

func trimLeft(key string) string {
	for len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	return key
}

// CloneMetadata copies a metadata map; nil stays nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
