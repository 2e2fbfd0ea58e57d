package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pluginscaffold/internal/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	a, err := newApp(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp.StatusCode, string(body)
}

func TestServerRoutes(t *testing.T) {
	isolate(t)
	a := newTestApp(t)
	srv, err := a.newServer(context.Background())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	cases := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{name: "health", path: "/healthz", status: http.StatusOK, want: "ok"},
		{name: "home", path: "/", status: http.StatusOK, want: "frontend.min.js"},
		{name: "archive", path: "/samples/", status: http.StatusOK, want: "query: post_type=sample-post-type"},
		{name: "term", path: "/sample-taxonomy/news/", status: http.StatusOK, want: "term=news"},
		{name: "shortcode", path: "/?content=%5Bscaffold_widget+title%3DHey%5D", status: http.StatusOK, want: `<h2 class="widget-title">Hey</h2>`},
		{name: "admin", path: "/admin/", status: http.StatusOK, want: "admin.min.css"},
		{name: "unrouted", path: "/missing/page/", status: http.StatusNotFound},
		{name: "asset", path: "/assets/assets/js/frontend.js", status: http.StatusOK, want: "plugin-scaffolding"},
		{name: "missing asset", path: "/assets/assets/js/nope.js", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := get(t, ts.URL+tc.path)
			if status != tc.status {
				t.Fatalf("status = %d, want %d\n%s", status, tc.status, body)
			}
			if tc.want != "" && !strings.Contains(body, tc.want) {
				t.Fatalf("body missing %q:\n%s", tc.want, body)
			}
		})
	}

	status, body := get(t, ts.URL+"/metrics")
	if status != http.StatusOK || !strings.Contains(body, `pluginscaffold_hook_dispatch_total{hook="init",kind="action",result="success"}`) {
		t.Fatalf("metrics missing init dispatches:\n%s", body)
	}
	status, body = get(t, ts.URL+"/debug/vars")
	if status != http.StatusOK || !strings.Contains(body, srv.expvar.Name()) {
		t.Fatalf("expvar missing %s", srv.expvar.Name())
	}
}

func TestServerAssetMethod(t *testing.T) {
	isolate(t)
	a := newTestApp(t)
	srv, err := a.newServer(context.Background())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assets/assets/js/frontend.js", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/assets/assets/css/frontend.css", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 || rec.Header().Get("Content-Length") == "" {
		t.Fatalf("head: status=%d len=%d headers=%v", rec.Code, rec.Body.Len(), rec.Header())
	}
}

func TestServerWatchReloadsDefinitions(t *testing.T) {
	isolate(t)
	dir := os.Getenv("PLUGINSCAFFOLD_PLUGIN_DIR")
	postTypes := filepath.Join(dir, "definitions", "posttypes")
	if err := os.MkdirAll(postTypes, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	write := func(name, label string) {
		src := "post_type \"" + name + "\" {\n  label = \"" + label + "\"\n  public = true\n}\n"
		if err := os.WriteFile(filepath.Join(postTypes, name+".hcl"), []byte(src), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("book", "Book")

	a := newTestApp(t)
	srv, err := a.newServer(context.Background())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if _, ok := srv.defs.Load().PostType("book"); !ok {
		t.Fatalf("disk definitions not loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.watch(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watch: %v", err)
		}
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if _, ok := srv.defs.Load().PostType("movie"); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("definitions were not reloaded")
		case <-tick.C:
			write("movie", "Movie")
		}
	}
}
