// Package assetstest checks the behaviour every asset driver shares.
package assetstest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pluginscaffold/internal/assets/core"
)

// Run exercises a fresh store from newStore for each case.
func Run(t *testing.T, newStore func(t *testing.T) core.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		s := newStore(t)
		info, err := s.Put(ctx, "assets/css/app.css", strings.NewReader("body{}"), core.PutOptions{
			CacheControl: "public, max-age=60",
			Metadata:     map[string]string{"origin": "bundle"},
		})
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		if info.Key != "assets/css/app.css" || info.Size != 6 || !strings.HasPrefix(info.ContentType, "text/css") {
			t.Fatalf("unexpected info %+v", info)
		}
		got, body, err := s.Get(ctx, "assets/css/app.css")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(data) != "body{}" {
			t.Fatalf("body = %q", data)
		}
		if got.CacheControl != "public, max-age=60" || got.Metadata["origin"] != "bundle" {
			t.Fatalf("metadata lost: %+v", got)
		}
		head, err := s.Head(ctx, "assets/css/app.css")
		if err != nil || head.Size != 6 {
			t.Fatalf("head = %+v, %v", head, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		s := newStore(t)
		if _, _, err := s.Get(ctx, "assets/none.js"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("get missing = %v, want ErrNotFound", err)
		}
		if _, err := s.Head(ctx, "assets/none.js"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("head missing = %v, want ErrNotFound", err)
		}
		if removed, err := s.Delete(ctx, "assets/none.js"); err != nil || removed {
			t.Fatalf("delete missing = %v, %v", removed, err)
		}
	})

	t.Run("invalid keys", func(t *testing.T) {
		s := newStore(t)
		for _, key := range []string{"", "/abs.js", "../escape.js", "a/../../b.js"} {
			if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
				t.Errorf("Put(%q) = %v, want ErrInvalidKey", key, err)
			}
			if _, err := s.URL(ctx, key); !errors.Is(err, core.ErrInvalidKey) {
				t.Errorf("URL(%q) = %v, want ErrInvalidKey", key, err)
			}
		}
	})

	t.Run("list and delete", func(t *testing.T) {
		s := newStore(t)
		for _, key := range []string{"assets/js/b.js", "assets/js/a.js", "assets/css/a.css"} {
			if _, err := s.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
				t.Fatalf("put %s: %v", key, err)
			}
		}
		infos, err := s.List(ctx, "assets/js/")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var keys []string
		for _, info := range infos {
			keys = append(keys, info.Key)
		}
		if diff := cmp.Diff([]string{"assets/js/a.js", "assets/js/b.js"}, keys); diff != "" {
			t.Fatalf("list mismatch (-want +got):\n%s", diff)
		}
		if removed, err := s.Delete(ctx, "assets/js/a.js"); err != nil || !removed {
			t.Fatalf("delete = %v, %v", removed, err)
		}
		if _, err := s.Head(ctx, "assets/js/a.js"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("deleted asset still present: %v", err)
		}
	})
}
