package core

import (
	"github.com/go-logr/logr"

	"pluginscaffold/internal/assets"
	"pluginscaffold/internal/host"
	"pluginscaffold/internal/options"
)

// Settings describes the plugin a runtime serves.
type Settings struct {
	Plugin      string // slug used for activation hooks
	Namespace   string // prefix for options and transients
	TextDomain  string
	Version     string
	Dir         string // plugin root on disk
	URL         string // base URL assets are served from
	Environment string
	Debug       bool
}

// Runtime bundles everything an extension needs: the registry that keeps
// canonical instances, the subscriber bound to it, the host and the stores.
type Runtime struct {
	Registry   *Registry
	Subscriber *Subscriber
	Host       *host.Host
	Options    options.Store
	Assets     assets.Store
	Settings   Settings
	Log        logr.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRegistry shares reg instead of creating a fresh registry.
func WithRegistry(reg *Registry) RuntimeOption {
	return func(rt *Runtime) {
		if reg != nil {
			rt.Registry = reg
		}
	}
}

// WithOptions sets the options store.
func WithOptions(store options.Store) RuntimeOption {
	return func(rt *Runtime) { rt.Options = store }
}

// WithAssets sets the asset store.
func WithAssets(store assets.Store) RuntimeOption {
	return func(rt *Runtime) { rt.Assets = store }
}

// WithLogger sets the runtime logger.
func WithLogger(log logr.Logger) RuntimeOption {
	return func(rt *Runtime) { rt.Log = log }
}

// NewRuntime wires a runtime around h. Without options it gets a fresh
// registry and an in-memory options store.
func NewRuntime(h *host.Host, settings Settings, opts ...RuntimeOption) *Runtime {
	if h == nil {
		h = host.New()
	}
	rt := &Runtime{Host: h, Settings: settings, Log: logr.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(rt)
		}
	}
	if rt.Registry == nil {
		rt.Registry = NewRegistry()
	}
	if rt.Options == nil {
		rt.Options = options.NewMemory()
	}
	rt.Subscriber = NewSubscriber(rt.Registry, h, rt.Log.WithName("subscriber"))
	return rt
}
