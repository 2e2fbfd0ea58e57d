package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pluginscaffold/internal/assets/assetstest"
	"pluginscaffold/internal/assets/core"
)

func TestContract(t *testing.T) {
	assetstest.Run(t, func(t *testing.T) core.Store {
		s, err := New(t.TempDir(), "/assets")
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		return s
	})
}

func TestSidecarAndCopiedFiles(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "nested", "root")
	s, err := New(root, "/assets/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Root() != root {
		t.Fatalf("root = %s", s.Root())
	}
	if _, err := s.Put(ctx, "js/app.js", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "js", "app.js.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if _, err := s.Put(ctx, "js/app.js.meta", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("reserved suffix accepted: %v", err)
	}

	// a file dropped in by hand has no sidecar
	if err := os.WriteFile(filepath.Join(root, "js", "vendor.js"), []byte("vendor"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := s.Head(ctx, "js/vendor.js")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.Size != 6 || !strings.Contains(info.ContentType, "javascript") {
		t.Fatalf("unexpected info %+v", info)
	}
	infos, err := s.List(ctx, "")
	if err != nil || len(infos) != 2 {
		t.Fatalf("list = %+v, %v", infos, err)
	}
	if _, err := s.Head(ctx, "js"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("directory must read as missing: %v", err)
	}
	url, err := s.URL(ctx, "js/./app.js")
	if err != nil || url != "/assets/js/app.js" {
		t.Fatalf("url = %q, %v", url, err)
	}
}
