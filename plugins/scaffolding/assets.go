package scaffolding

import (
	"context"
	"fmt"

	"pluginscaffold/internal/core"
	"pluginscaffold/internal/host"
	"pluginscaffold/pkg/hook"
	"pluginscaffold/plugins/scaffolding/widgets"
)

// assetDirs are the bundled directories published to the asset store.
var assetDirs = []string{"assets/js", "assets/css"}

// AssetDirs returns the bundled directories holding static assets.
func AssetDirs() []string { return append([]string(nil), assetDirs...) }

// assetLoader enqueues the script and stylesheet named after area, minified
// outside development.
type assetLoader struct {
	fw   *core.Framework
	area string
}

func (l assetLoader) suffix() string {
	if l.fw.IsDev() {
		return ""
	}
	return ".min"
}

func (l assetLoader) handle() string { return l.fw.Namespace() + "-" + l.area }

func (l assetLoader) enqueueScripts(ctx context.Context, _ ...any) (any, error) {
	src, err := l.fw.AssetURL(ctx, "assets/js/"+l.area+l.suffix()+".js")
	if err != nil {
		return nil, err
	}
	l.fw.Host().EnqueueScript(host.Asset{
		Handle:   l.handle(),
		Src:      src,
		Version:  l.fw.Version(),
		InFooter: true,
	})
	return nil, nil
}

func (l assetLoader) enqueueStyles(ctx context.Context, _ ...any) (any, error) {
	src, err := l.fw.AssetURL(ctx, "assets/css/"+l.area+l.suffix()+".css")
	if err != nil {
		return nil, err
	}
	l.fw.Host().EnqueueStyle(host.Asset{
		Handle:  l.handle(),
		Src:     src,
		Version: l.fw.Version(),
		Media:   "all",
	})
	return nil, nil
}

// Admin loads the admin-area assets.
type Admin struct{ core.Framework }

func (a *Admin) loader() assetLoader { return assetLoader{fw: &a.Framework, area: "admin"} }

// AddActions implements core.ActionRegistrar.
func (a *Admin) AddActions(context.Context) error {
	sub := a.Subscriber()
	if err := sub.AddAction("admin_enqueue_scripts", hook.Method(a, "enqueueScripts", func(x *Admin) hook.Func { return x.loader().enqueueScripts })); err != nil {
		return err
	}
	return sub.AddAction("admin_enqueue_scripts", hook.Method(a, "enqueueStyles", func(x *Admin) hook.Func { return x.loader().enqueueStyles }))
}

// FrontEnd loads the visitor-facing assets and provides the widget shortcode.
type FrontEnd struct{ core.Framework }

func (f *FrontEnd) loader() assetLoader { return assetLoader{fw: &f.Framework, area: "frontend"} }

// AddActions implements core.ActionRegistrar.
func (f *FrontEnd) AddActions(context.Context) error {
	sub := f.Subscriber()
	if err := sub.AddAction("wp_enqueue_scripts", hook.Method(f, "enqueueScripts", func(x *FrontEnd) hook.Func { return x.loader().enqueueScripts })); err != nil {
		return err
	}
	return sub.AddAction("wp_enqueue_scripts", hook.Method(f, "enqueueStyles", func(x *FrontEnd) hook.Func { return x.loader().enqueueStyles }))
}

// WidgetShortcode is the tag that renders a registered widget inline.
const WidgetShortcode = "scaffold_widget"

// AddShortcodes implements core.ShortcodeRegistrar.
func (f *FrontEnd) AddShortcodes(context.Context) error {
	return f.Subscriber().AddShortcode(WidgetShortcode, hook.Method(f, "widgetShortcode", func(x *FrontEnd) hook.ShortcodeFunc { return x.widgetShortcode }))
}

// widgetShortcode renders [scaffold_widget id="..." title="..."]. The other
// attributes go through the widget's own update as settings.
func (f *FrontEnd) widgetShortcode(ctx context.Context, attrs map[string]string, content, _ string) (string, error) {
	id := attrs["id"]
	if id == "" {
		id = widgets.SampleID
	}
	w, ok := f.Host().Widget(id)
	if !ok {
		return "", fmt.Errorf("%w: unknown widget %s", host.ErrInvalidWidget, id)
	}
	settings := host.WidgetSettings{}
	for k, v := range attrs {
		if k != "id" {
			settings[k] = v
		}
	}
	if content != "" {
		if _, ok := settings["title"]; !ok {
			settings["title"] = content
		}
	}
	settings, err := w.Update(ctx, settings, nil)
	if err != nil {
		return "", err
	}
	return w.Render(ctx, host.WidgetArgs{
		BeforeWidget: `<div class="widget ` + id + `">`,
		AfterWidget:  "</div>",
		BeforeTitle:  `<h2 class="widget-title">`,
		AfterTitle:   "</h2>",
	}, settings)
}
