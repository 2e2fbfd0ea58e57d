// Package scaffolding is the reference plugin built on the core framework. It
// bundles an admin and a front-end asset loader and registers the post types,
// taxonomies and widgets declared under definitions/.
package scaffolding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"pluginscaffold/internal/core"
	"pluginscaffold/internal/definitions"
	"pluginscaffold/internal/host"
	"pluginscaffold/pkg/hook"
	"pluginscaffold/plugins/scaffolding/posttypes"
	"pluginscaffold/plugins/scaffolding/taxonomies"
	"pluginscaffold/plugins/scaffolding/widgets"
)

const (
	Name       = "plugin-scaffolding"
	Version    = "1.0.0"
	TextDomain = "plugin_scaffolding"
	Namespace  = "pluginscaffolding"

	definitionsDir = "definitions"
)

// DefaultSettings returns the settings the plugin runs with when the
// configuration leaves them empty.
func DefaultSettings() core.Settings {
	return core.Settings{
		Plugin:      Name,
		Namespace:   Namespace,
		TextDomain:  TextDomain,
		Version:     Version,
		Environment: "production",
	}
}

// Plugin is the root extension.
type Plugin struct {
	core.Framework
	defs *definitions.Set
}

// Boot loads the definitions, constructs the admin and front-end extensions
// and then the plugin itself. Booting again on the same runtime returns the
// plugin constructed first.
func Boot(ctx context.Context, rt *core.Runtime) (*Plugin, error) {
	if rt == nil {
		return nil, core.ErrNoRuntime
	}
	defs, err := LoadDefinitions(ctx, rt.Settings.Dir)
	if err != nil {
		return nil, err
	}
	return BootWith(ctx, rt, defs)
}

// BootWith is Boot with definitions loaded by the caller.
func BootWith(ctx context.Context, rt *core.Runtime, defs *definitions.Set) (*Plugin, error) {
	if rt == nil {
		return nil, core.ErrNoRuntime
	}
	domain := rt.Settings.TextDomain
	if domain == "" {
		domain = TextDomain
	}
	rt.Host.LoadPluginTextDomain(domain, path.Join(filepath.Base(rt.Settings.Dir), "languages"))

	if _, err := core.Resolve(ctx, rt, &Admin{}); err != nil {
		return nil, err
	}
	if _, err := core.Resolve(ctx, rt, &FrontEnd{}); err != nil {
		return nil, err
	}
	return core.Resolve(ctx, rt, &Plugin{defs: defs})
}

// LoadDefinitions reads definitions/ from dir when it exists on disk and falls
// back to the bundled copy otherwise.
func LoadDefinitions(ctx context.Context, dir string) (*definitions.Set, error) {
	if dir != "" {
		local := filepath.Join(dir, definitionsDir)
		if st, err := os.Stat(local); err == nil && st.IsDir() {
			return definitions.LoadDir(ctx, local)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return definitions.LoadFS(ctx, bundled, definitionsDir)
}

// Definitions returns the definitions the plugin registers.
func (p *Plugin) Definitions() *definitions.Set {
	if p.defs == nil {
		return &definitions.Set{}
	}
	return p.defs
}

// SetDefinitions swaps the definitions, e.g. after a reload. The new set takes
// effect on the next init.
func (p *Plugin) SetDefinitions(defs *definitions.Set) {
	if defs != nil {
		p.defs = defs
	}
}

func (p *Plugin) slug() string {
	if s := p.Runtime().Settings.Plugin; s != "" {
		return s
	}
	return Name
}

type action struct {
	hook     string
	callable hook.Callable[hook.Func]
	priority int
}

// AddActions implements core.ActionRegistrar.
func (p *Plugin) AddActions(context.Context) error {
	method := func(name string, fn func(*Plugin) hook.Func) hook.Callable[hook.Func] {
		return hook.Method(p, name, fn)
	}
	actions := []action{
		{host.ActivationHook(p.slug()), method("activate", func(x *Plugin) hook.Func { return x.activate }), 10},
		{host.DeactivationHook(p.slug()), method("deactivate", func(x *Plugin) hook.Func { return x.deactivate }), 10},
		{"init", method("registerPostTypes", func(x *Plugin) hook.Func { return x.registerPostTypes }), 10},
		{"init", method("registerTaxonomies", func(x *Plugin) hook.Func { return x.registerTaxonomies }), 10},
		{"widgets_init", method("registerWidgets", func(x *Plugin) hook.Func { return x.registerWidgets }), 10},
	}
	if p.IsDev() {
		display := method("displayLog", func(x *Plugin) hook.Func { return x.displayLog })
		actions = append(actions,
			action{"wp_footer", display, 999},
			action{"admin_footer", display, 999},
		)
	}
	for _, a := range actions {
		if err := p.Subscriber().AddAction(a.hook, a.callable, hook.Priority(a.priority)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) activate(ctx context.Context, _ ...any) (any, error) {
	if _, err := p.registerPostTypes(ctx); err != nil {
		return nil, err
	}
	if _, err := p.registerTaxonomies(ctx); err != nil {
		return nil, err
	}
	return nil, p.Host().FlushRewriteRules(ctx)
}

func (p *Plugin) deactivate(ctx context.Context, _ ...any) (any, error) {
	if err := p.ClearLog(ctx); err != nil {
		return nil, err
	}
	return nil, p.Host().FlushRewriteRules(ctx)
}

func (p *Plugin) displayLog(ctx context.Context, _ ...any) (any, error) {
	return nil, p.DisplayLog(ctx)
}

func (p *Plugin) registerPostTypes(ctx context.Context, _ ...any) (any, error) {
	for _, def := range p.Definitions().PostTypes {
		pt, err := core.Resolve(ctx, p.Runtime(), posttypes.New(def))
		if err != nil {
			return nil, err
		}
		if err := pt.Register(ctx); err != nil {
			return nil, fmt.Errorf("post type %s: %w", def.Name, err)
		}
	}
	return nil, nil
}

func (p *Plugin) registerTaxonomies(ctx context.Context, _ ...any) (any, error) {
	for _, def := range p.Definitions().Taxonomies {
		tax, err := core.Resolve(ctx, p.Runtime(), taxonomies.New(def))
		if err != nil {
			return nil, err
		}
		if err := tax.Register(ctx); err != nil {
			return nil, fmt.Errorf("taxonomy %s: %w", def.Name, err)
		}
	}
	return nil, nil
}

func (p *Plugin) registerWidgets(ctx context.Context, _ ...any) (any, error) {
	for _, def := range p.Definitions().Widgets {
		w, err := core.Resolve(ctx, p.Runtime(), widgets.New(def.Definition))
		if err != nil {
			return nil, err
		}
		if err := w.Register(ctx); err != nil {
			return nil, fmt.Errorf("widget %s: %w", def.Definition.ID, err)
		}
	}
	return nil, nil
}
