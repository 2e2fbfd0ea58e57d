package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"pluginscaffold/internal/assets"
	"pluginscaffold/internal/config"
	"pluginscaffold/internal/core"
	"pluginscaffold/internal/definitions"
	"pluginscaffold/internal/host"
	"pluginscaffold/internal/logging"
	"pluginscaffold/internal/observability"
	"pluginscaffold/internal/options"
	"pluginscaffold/plugins/scaffolding"
)

// app holds what outlives a single runtime: configuration, stores, metrics.
type app struct {
	cfg      config.Config
	log      logr.Logger
	options  options.Store
	assets   assets.Store
	metrics  *prometheus.Registry
	observer host.Observer
	stderr   io.Writer
}

func newApp(ctx context.Context, cfg config.Config, stderr io.Writer) (*app, error) {
	log, err := logging.New(stderr, logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Verbosity: cfg.Log.Verbosity,
	})
	if err != nil {
		return nil, err
	}
	opts, err := options.Open(ctx, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("open options store: %w", err)
	}
	store, err := assets.Open(ctx, cfg.Assets)
	if err != nil {
		_ = opts.Close()
		return nil, fmt.Errorf("open asset store: %w", err)
	}
	metrics := prometheus.NewRegistry()
	prom, err := observability.NewPrometheusObserver(metrics)
	if err != nil {
		_ = opts.Close()
		return nil, err
	}
	return &app{
		cfg:      cfg,
		log:      log.WithName("scaffold"),
		options:  opts,
		assets:   store,
		metrics:  metrics,
		observer: prom,
		stderr:   stderr,
	}, nil
}

func (a *app) Close() error { return a.options.Close() }

// settings maps the plugin configuration onto runtime settings, keeping the
// plugin's own defaults for anything left empty.
func (a *app) settings() core.Settings {
	s := scaffolding.DefaultSettings()
	p := a.cfg.Plugin
	if p.Name != "" {
		s.Plugin = p.Name
	}
	if p.Namespace != "" {
		s.Namespace = p.Namespace
	}
	if p.TextDomain != "" {
		s.TextDomain = p.TextDomain
	}
	if p.Version != "" {
		s.Version = p.Version
	}
	if p.Environment != "" {
		s.Environment = p.Environment
	}
	s.Dir = p.Dir
	s.URL = p.URL
	s.Debug = p.Debug
	return s
}

func (a *app) activeKey() string { return a.settings().Namespace + "_active_version" }

// session is one booted runtime: a fresh host and registry sharing the app's
// stores.
type session struct {
	rt     *core.Runtime
	plugin *scaffolding.Plugin
}

func (a *app) boot(ctx context.Context, out io.Writer, defs *definitions.Set, extra ...host.Observer) (*session, error) {
	observers := observability.Multi{a.observer}
	observers = append(observers, extra...)
	h := host.New(
		host.WithOutput(out),
		host.WithObserver(observers),
		host.WithLogger(a.log.WithName("host")),
	)
	settings := a.settings()
	rt := core.NewRuntime(h, settings,
		core.WithOptions(a.options),
		core.WithAssets(a.assets),
		core.WithLogger(a.log),
	)
	version, ok, err := a.options.Get(ctx, a.activeKey())
	if err != nil {
		return nil, err
	}
	if ok {
		h.ActivatePlugin(settings.Plugin, version)
	}
	ctx = logging.NewContext(ctx, a.log)
	if defs == nil {
		defs, err = scaffolding.LoadDefinitions(ctx, settings.Dir)
		if err != nil {
			return nil, err
		}
	}
	p, err := scaffolding.BootWith(ctx, rt, defs)
	if err != nil {
		return nil, err
	}
	return &session{rt: rt, plugin: p}, nil
}

// load fires the hooks the host runs on every request before output starts.
func (s *session) load(ctx context.Context, admin bool) error {
	h := s.rt.Host
	for _, name := range []string{"plugins_loaded", "init", "widgets_init", "wp_loaded"} {
		if err := h.DoAction(ctx, name); err != nil {
			return err
		}
	}
	enqueue := "wp_enqueue_scripts"
	if admin {
		enqueue = "admin_enqueue_scripts"
	}
	return h.DoAction(ctx, enqueue)
}

func (a *app) activate(ctx context.Context, s *session) error {
	settings := s.rt.Settings
	if err := s.rt.Host.Activate(ctx, settings.Plugin, settings.Version); err != nil {
		return err
	}
	return a.options.Set(ctx, a.activeKey(), settings.Version)
}

func (a *app) deactivate(ctx context.Context, s *session) error {
	if err := s.rt.Host.Deactivate(ctx, s.rt.Settings.Plugin); err != nil {
		return err
	}
	_, err := a.options.Delete(ctx, a.activeKey())
	return err
}

var errNotActive = errors.New("plugin is not active")
