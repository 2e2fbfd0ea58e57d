package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pluginscaffold/internal/assets"
	"pluginscaffold/internal/definitions"
	"pluginscaffold/internal/logging"
	"pluginscaffold/internal/observability"
	"pluginscaffold/plugins/scaffolding"
)

const shutdownTimeout = 5 * time.Second

// server renders pages with a fresh runtime per request. Definitions are
// shared and swapped atomically when the watcher reloads them.
type server struct {
	app    *app
	defs   atomic.Pointer[definitions.Set]
	expvar *observability.ExpvarRecorder
}

func (a *app) newServer(ctx context.Context) (*server, error) {
	keys, err := assets.Publish(ctx, a.assets, scaffolding.Files(), scaffolding.AssetDirs()...)
	if err != nil {
		return nil, fmt.Errorf("publish assets: %w", err)
	}
	a.log.V(1).Info("published assets", "count", len(keys), "driver", a.assets.Driver())

	defs, err := scaffolding.LoadDefinitions(ctx, a.settings().Dir)
	if err != nil {
		return nil, err
	}
	s := &server{app: a, expvar: observability.NewExpvarRecorder("")}
	s.defs.Store(defs)
	return s, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.app.metrics, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	mux.Handle(s.assetPrefix(), http.HandlerFunc(s.serveAsset))
	mux.HandleFunc("/admin/", s.servePage(true))
	mux.HandleFunc("/", s.servePage(false))
	return mux
}

// assetPrefix is the path of the configured base URL, or /assets/ when the
// base URL points elsewhere.
func (s *server) assetPrefix() string {
	base := s.app.cfg.Assets.BaseURL
	if !strings.HasPrefix(base, "/") || strings.Trim(base, "/") == "" {
		return "/assets/"
	}
	return "/" + strings.Trim(base, "/") + "/"
}

func (s *server) serveAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, s.assetPrefix())
	info, body, err := s.app.assets.Get(r.Context(), key)
	switch {
	case errors.Is(err, assets.ErrNotFound), errors.Is(err, assets.ErrInvalidKey):
		http.NotFound(w, r)
		return
	case err != nil:
		s.app.log.Error(err, "asset read failed", "key", key)
		http.Error(w, "asset unavailable", http.StatusInternalServerError)
		return
	}
	defer func() { _ = body.Close() }()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.CacheControl != "" {
		w.Header().Set("Cache-Control", info.CacheControl)
	}
	if info.ETag != "" {
		w.Header().Set("ETag", info.ETag)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(w, body)
}

func (s *server) servePage(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p := page{Path: r.URL.Path, Content: r.URL.Query().Get("content"), Admin: admin}
		if admin {
			p.Path = "/"
		}
		var buf strings.Builder
		sess, err := s.app.boot(ctx, &buf, s.defs.Load(), s.expvar)
		if err == nil {
			err = sess.render(ctx, &buf, p)
		}
		switch {
		case errors.Is(err, errNoRoute):
			http.NotFound(w, r)
			return
		case err != nil:
			s.app.log.Error(err, "render failed", "path", r.URL.Path)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, buf.String())
	}
}

// watch reloads the definitions whenever they change on disk. A failed
// reload keeps the previous set.
func (s *server) watch(ctx context.Context) error {
	dir := filepath.Join(s.app.settings().Dir, "definitions")
	ctx = logging.NewContext(ctx, s.app.log)
	return definitions.Watch(ctx, dir, definitions.DefaultDebounce, func(set *definitions.Set, err error) {
		if err != nil {
			s.app.log.Error(err, "definitions reload failed, keeping previous set")
			return
		}
		s.defs.Store(set)
		s.app.log.Info("definitions reloaded", "count", set.Len())
	})
}

func runServe(ctx context.Context, a *app, args []string, _ io.Writer) error {
	fs := a.flags("serve")
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	watch := fs.Bool("watch", a.cfg.Server.Watch, "reload definitions when they change")
	if err := parse(fs, args); err != nil {
		return err
	}
	srv, err := a.newServer(ctx)
	if err != nil {
		return err
	}
	if *watch {
		go func() {
			if err := srv.watch(ctx); err != nil {
				a.log.Error(err, "definitions watcher stopped")
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	a.log.Info("serving", "addr", *addr, "watch", *watch)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
