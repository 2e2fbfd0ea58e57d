package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"pluginscaffold/internal/assets"
	"pluginscaffold/internal/host"
	"pluginscaffold/pkg/hook"
)

// Framework is embedded by every extension. It carries the runtime the
// extension was constructed with and the shared helpers. Helpers that return
// an error report ErrNoRuntime before Construct; the others require a
// constructed extension.
type Framework struct {
	rt *Runtime
}

func (f *Framework) framework() *Framework { return f }

// Extension is satisfied by any pointer to a struct embedding Framework.
type Extension interface {
	framework() *Framework
}

// ActionRegistrar is implemented by extensions that subscribe actions.
type ActionRegistrar interface {
	AddActions(ctx context.Context) error
}

// FilterRegistrar is implemented by extensions that subscribe filters.
type FilterRegistrar interface {
	AddFilters(ctx context.Context) error
}

// ShortcodeRegistrar is implemented by extensions that register shortcodes.
type ShortcodeRegistrar interface {
	AddShortcodes(ctx context.Context) error
}

// ErrNoRuntime is returned by Construct when rt is nil and by Framework
// helpers called before Construct.
var ErrNoRuntime = errors.New("core: nil runtime")

// Construct binds ext to rt and wires its extension points once per identity.
// Constructing an identity that is already wired, or being wired further up
// the stack, only binds the runtime and returns nil. A failed extension point
// leaves the identity unwired so a later Construct retries.
func Construct(ctx context.Context, rt *Runtime, ext Extension) error {
	if rt == nil {
		return ErrNoRuntime
	}
	ext.framework().rt = rt
	canonical, owner := rt.Registry.claimWiring(ext)
	id := hook.IdentityOf(ext)
	if !owner {
		rt.Log.V(1).Info("extension already wired", "identity", id, "state", rt.Registry.State(id).String())
		return nil
	}
	target, ok := canonical.(Extension)
	if !ok {
		err := fmt.Errorf("%w: %s holds %T", ErrIdentityConflict, id, canonical)
		rt.Registry.finishWiring(id, err)
		return err
	}
	if target.framework().rt == nil {
		target.framework().rt = rt
	}
	err := wire(ctx, target)
	rt.Registry.finishWiring(id, err)
	if err != nil {
		return fmt.Errorf("wire %s: %w", id, err)
	}
	rt.Log.V(1).Info("extension wired", "identity", id)
	return nil
}

// Resolve constructs ext and returns the canonical instance of its identity,
// which is ext itself unless an earlier instance got there first.
func Resolve[T Extension](ctx context.Context, rt *Runtime, ext T) (T, error) {
	var zero T
	if err := Construct(ctx, rt, ext); err != nil {
		return zero, err
	}
	id := hook.IdentityOf(ext)
	canonical, ok := rt.Registry.Get(id)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownIdentity, id)
	}
	typed, ok := canonical.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrIdentityConflict, id, canonical)
	}
	return typed, nil
}

func wire(ctx context.Context, ext Extension) error {
	if r, ok := ext.(ActionRegistrar); ok {
		if err := r.AddActions(ctx); err != nil {
			return fmt.Errorf("actions: %w", err)
		}
	}
	if r, ok := ext.(FilterRegistrar); ok {
		if err := r.AddFilters(ctx); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
	}
	if r, ok := ext.(ShortcodeRegistrar); ok {
		if err := r.AddShortcodes(ctx); err != nil {
			return fmt.Errorf("shortcodes: %w", err)
		}
	}
	return nil
}

// Runtime returns the runtime the extension was constructed with.
func (f *Framework) Runtime() *Runtime { return f.rt }

// Subscriber returns the runtime's subscriber.
func (f *Framework) Subscriber() *Subscriber { return f.rt.Subscriber }

// Host returns the runtime's host.
func (f *Framework) Host() *host.Host { return f.rt.Host }

// Logger returns the runtime logger, or a discarding one before Construct.
func (f *Framework) Logger() logr.Logger {
	if f.rt == nil {
		return logr.Discard()
	}
	return f.rt.Log
}

func (f *Framework) bound() error {
	if f.rt == nil {
		return ErrNoRuntime
	}
	return nil
}

// URL resolves rel against the plugin's base URL.
func (f *Framework) URL(rel string) string { return assets.JoinURL(f.rt.Settings.URL, rel) }

// AssetURL asks the asset store where rel is served from, falling back to URL
// when no store is configured.
func (f *Framework) AssetURL(ctx context.Context, rel string) (string, error) {
	if err := f.bound(); err != nil {
		return "", err
	}
	if f.rt.Assets == nil {
		return f.URL(rel), nil
	}
	return f.rt.Assets.URL(ctx, rel)
}

// Path resolves rel against the plugin directory.
func (f *Framework) Path(rel string) string { return filepath.Join(f.rt.Settings.Dir, rel) }

// Version returns the plugin version.
func (f *Framework) Version() string { return f.rt.Settings.Version }

// Namespace returns the option/transient prefix.
func (f *Framework) Namespace() string { return f.rt.Settings.Namespace }

// GetClasses lists the definition names (*.hcl base names) in a plugin
// directory, sorted. A missing directory yields no names.
func (f *Framework) GetClasses(dir string) ([]string, error) {
	if err := f.bound(); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(f.Path(dir), "*.hcl"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".hcl"))
	}
	sort.Strings(names)
	return names, nil
}

const logTTL = 24 * time.Hour

func (f *Framework) logKey() string { return f.rt.Settings.Namespace + "_error_log" }

// Log appends v to the debug log kept in a day-long transient.
func (f *Framework) Log(ctx context.Context, v any) error {
	if err := f.bound(); err != nil {
		return err
	}
	raw, ok, err := f.rt.Options.GetTransient(ctx, f.logKey())
	if err != nil {
		return err
	}
	if !ok || !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		raw = "[]"
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	raw, err = sjson.SetRaw(raw, "-1", string(encoded))
	if err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return f.rt.Options.SetTransient(ctx, f.logKey(), raw, logTTL)
}

// DisplayLog exposes the debug log, if any, and clears it.
func (f *Framework) DisplayLog(ctx context.Context) error {
	if err := f.bound(); err != nil {
		return err
	}
	raw, ok, err := f.rt.Options.GetTransient(ctx, f.logKey())
	if err != nil {
		return err
	}
	if ok && gjson.Get(raw, "#").Int() > 0 {
		if err := f.Expose(json.RawMessage(raw)); err != nil {
			return err
		}
	}
	_, err = f.rt.Options.DeleteTransient(ctx, f.logKey())
	return err
}

// ClearLog drops the debug log without exposing it.
func (f *Framework) ClearLog(ctx context.Context) error {
	if err := f.bound(); err != nil {
		return err
	}
	_, err := f.rt.Options.DeleteTransient(ctx, f.logKey())
	return err
}

var exposeSeq atomic.Uint64

// Expose prints v to the browser console once the request shuts down.
func (f *Framework) Expose(v any) error {
	if err := f.bound(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode exposed value: %w", err)
	}
	name := fmt.Sprintf("expose#%d", exposeSeq.Add(1))
	out := f.rt.Host.Output()
	cb := hook.Function[hook.Func](name, func(context.Context, ...any) (any, error) {
		_, err := fmt.Fprintf(out, "<script>console.log(%s);</script>", payload)
		return nil, err
	})
	return f.rt.Subscriber.AddAction("shutdown", cb, hook.Priority(9999))
}

// IsPluginActive returns the version of an active plugin.
func (f *Framework) IsPluginActive(plugin string) (string, bool) {
	return f.rt.Host.IsPluginActive(plugin)
}

var devEnvironments = []string{"staging", "development", "local"}

// IsDev reports whether the runtime serves a development environment.
func (f *Framework) IsDev() bool {
	s := f.rt.Settings
	return s.Debug || slices.Contains(devEnvironments, strings.ToLower(s.Environment))
}

// ArrayMerge returns defaults with values from merge for keys defaults
// already has. Keys only present in merge are dropped.
func ArrayMerge[V any](defaults, merge map[string]V) map[string]V {
	out := make(map[string]V, len(defaults))
	for k, v := range defaults {
		if m, ok := merge[k]; ok {
			v = m
		}
		out[k] = v
	}
	return out
}

// ArraysMerge folds ArrayMerge over maps, using the first as defaults.
func ArraysMerge[V any](maps ...map[string]V) map[string]V {
	if len(maps) == 0 {
		return map[string]V{}
	}
	merged := maps[0]
	for _, m := range maps[1:] {
		merged = ArrayMerge(merged, m)
	}
	return merged
}
