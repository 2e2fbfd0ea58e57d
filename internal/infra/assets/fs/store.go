// Package fs serves plugin assets from a local directory. Keys map to relative
// file paths under the root; a `.meta` sidecar keeps content type, cache
// control and user metadata.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pluginscaffold/internal/assets/core"
)

const metaSuffix = ".meta"

// Store implements core.Store on the local filesystem.
type Store struct {
	root    string
	baseURL string
}

// New returns a filesystem-backed asset store rooted at root, creating it if
// needed. URLs are built by joining keys onto baseURL.
func New(root, baseURL string) (*Store, error) {
	if root == "" {
		root = "./assets"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root, baseURL: baseURL}, nil
}

// Driver returns the asset driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Root returns the directory assets are stored under.
func (s *Store) Root() string { return s.root }

// sanitizeKey rejects keys that are empty, absolute or escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", core.ErrInvalidKey)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q contains '..'", core.ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q is absolute", core.ErrInvalidKey, key)
	}
	if strings.HasSuffix(key, metaSuffix) {
		return "", fmt.Errorf("%w: %q uses the reserved %s suffix", core.ErrInvalidKey, key, metaSuffix)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(k))
	return dataPath, dataPath + metaSuffix, nil
}

type metaFile struct {
	ContentType  string            `json:"content_type,omitempty"`
	CacheControl string            `json:"cache_control,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ETag         string            `json:"etag"`
	Size         int64             `json:"size"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (m metaFile) info(key string) core.Info {
	return core.Info{
		Key:          key,
		Size:         m.Size,
		ContentType:  m.ContentType,
		CacheControl: m.CacheControl,
		ETag:         m.ETag,
		Metadata:     core.CloneMetadata(m.Metadata),
		LastModified: m.UpdatedAt,
	}
}

// Put writes the asset through a temp file and renames it into place, so a
// reader never observes a partial file.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return core.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return core.Info{}, err
	}
	ct := opts.ContentType
	if ct == "" {
		ct = core.ContentTypeFor(key)
	}
	mf := metaFile{
		ContentType:  ct,
		CacheControl: opts.CacheControl,
		Metadata:     core.CloneMetadata(opts.Metadata),
		ETag:         hex.EncodeToString(h.Sum(nil)),
		Size:         size,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := writeMeta(metaPath, mf); err != nil {
		return core.Info{}, err
	}
	return mf.info(key), nil
}

// Get opens the asset. Files copied into the root without a sidecar are
// served with a guessed content type.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	dataPath, _, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	info, err := s.Head(ctx, key)
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, err
	}
	return info, file, nil
}

// Head returns asset metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	mf, err := readMeta(metaPath)
	if err == nil {
		return mf.info(key), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, err
	}
	st, statErr := os.Stat(dataPath)
	if errors.Is(statErr, fs.ErrNotExist) || (statErr == nil && st.IsDir()) {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if statErr != nil {
		return core.Info{}, statErr
	}
	return core.Info{Key: key, Size: st.Size(), ContentType: core.ContentTypeFor(key), LastModified: st.ModTime().UTC()}, nil
}

// Delete removes the asset and its sidecar.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

// List walks the root and returns assets under prefix ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasSuffix(name, metaSuffix) || strings.HasPrefix(name, ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.Head(ctx, key)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// URL joins key onto the configured base URL.
func (s *Store) URL(_ context.Context, key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return core.JoinURL(s.baseURL, k), nil
}

func writeMeta(path string, mf metaFile) error {
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return mf, nil
}
