package assets

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"pluginscaffold/internal/config"
	"pluginscaffold/testutil"
)

func TestOnlyAssetsPackageImportsInfra(t *testing.T) {
	testutil.AssertDriversBehindFacade(t, "pluginscaffold/...", "pluginscaffold/internal/assets", "pluginscaffold/internal/infra/assets")
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.Assets
		want Driver
	}{
		{name: "default", cfg: config.Assets{Root: filepath.Join(t.TempDir(), "a")}, want: DriverFilesystem},
		{name: "fs", cfg: config.Assets{Driver: "fs", Root: t.TempDir()}, want: DriverFilesystem},
		{name: "memory", cfg: config.Assets{Driver: "memory", BaseURL: "/static"}, want: DriverMemory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if store.Driver() != tc.want {
				t.Fatalf("driver = %s, want %s", store.Driver(), tc.want)
			}
		})
	}
	if _, err := Open(ctx, config.Assets{Driver: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	src := fstest.MapFS{
		"assets/js/app.js":       {Data: []byte("console.log(1)")},
		"assets/css/app.css":     {Data: []byte("body{}")},
		"assets/js/README.md":    {Data: []byte("skip")},
		"definitions/widget.hcl": {Data: []byte("skip")},
	}
	store := NewMemory("https://cdn.test/plugin")
	keys, err := Publish(ctx, store, src, "assets/js", "assets/css", "assets/img")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if diff := cmp.Diff([]string{"assets/js/app.js", "assets/css/app.css"}, keys); diff != "" {
		t.Fatalf("published keys mismatch (-want +got):\n%s", diff)
	}
	info, body, err := store.Get(ctx, "assets/js/app.js")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "console.log(1)" || info.CacheControl == "" {
		t.Fatalf("unexpected asset %q %+v", data, info)
	}
	url, err := store.URL(ctx, "assets/js/app.js")
	if err != nil || url != "https://cdn.test/plugin/assets/js/app.js" {
		t.Fatalf("url = %q, %v", url, err)
	}
}

func TestJoinURL(t *testing.T) {
	cases := map[[2]string]string{
		{"/assets/", "/js/a.js"}: "/assets/js/a.js",
		{"", "js/a.js"}:          "/js/a.js",
		{"https://x.test", "a"}:  "https://x.test/a",
	}
	for in, want := range cases {
		if got := JoinURL(in[0], in[1]); got != want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
