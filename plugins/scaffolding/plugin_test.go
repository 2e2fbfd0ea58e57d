package scaffolding

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"pluginscaffold/internal/assets"
	"pluginscaffold/internal/core"
	"pluginscaffold/internal/host"
	"pluginscaffold/pkg/hook"
	"pluginscaffold/plugins/scaffolding/posttypes"
	"pluginscaffold/plugins/scaffolding/taxonomies"
	"pluginscaffold/plugins/scaffolding/widgets"
)

const cdn = "https://cdn.test/plugin-scaffolding/"

func newRuntime(t *testing.T, dev bool, out *bytes.Buffer) *core.Runtime {
	t.Helper()
	settings := DefaultSettings()
	settings.Debug = dev
	var opts []host.Option
	if out != nil {
		opts = append(opts, host.WithOutput(out))
	}
	return core.NewRuntime(host.New(opts...), settings, core.WithAssets(assets.NewMemory(cdn)))
}

func boot(t *testing.T, rt *core.Runtime) *Plugin {
	t.Helper()
	p, err := Boot(context.Background(), rt)
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	return p
}

func TestBootTwiceWiresOnce(t *testing.T) {
	rt := newRuntime(t, false, nil)
	first := boot(t, rt)
	second := boot(t, rt)
	if first != second {
		t.Fatalf("second boot should return the canonical plugin")
	}
	if n := len(rt.Host.Subscriptions("init")); n != 2 {
		t.Fatalf("expected 2 init subscriptions, got %d", n)
	}
	if n := len(rt.Host.Subscriptions("wp_enqueue_scripts")); n != 2 {
		t.Fatalf("expected 2 front-end enqueue subscriptions, got %d", n)
	}
	cb := hook.Method(first, "registerPostTypes", func(x *Plugin) hook.Func { return x.registerPostTypes })
	if p, ok := rt.Subscriber.HasAction("init", cb); !ok || p != 10 {
		t.Fatalf("registerPostTypes subscription = %d %v", p, ok)
	}
	if _, ok := rt.Host.TextDomain(TextDomain); !ok {
		t.Fatalf("text domain not loaded")
	}
}

func TestInitRegistersBundledDefinitions(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, false, nil)
	boot(t, rt)
	for i := 0; i < 2; i++ {
		if err := rt.Host.DoAction(ctx, "init"); err != nil {
			t.Fatalf("init: %v", err)
		}
	}
	if err := rt.Host.DoAction(ctx, "widgets_init"); err != nil {
		t.Fatalf("widgets_init: %v", err)
	}
	pt, ok := rt.Host.PostType(posttypes.SampleName)
	if !ok || pt.Args.Rewrite == nil || pt.Args.Rewrite.Slug != "samples" {
		t.Fatalf("sample post type not registered: %+v", pt)
	}
	tax, ok := rt.Host.Taxonomy(taxonomies.SampleName)
	if !ok || !slices.Contains(tax.ObjectTypes, posttypes.SampleName) {
		t.Fatalf("sample taxonomy not attached: %+v", tax)
	}
	if _, ok := rt.Host.Widget(widgets.SampleID); !ok {
		t.Fatalf("sample widget not registered")
	}
	for _, id := range []hook.Identity{"posttypes/" + posttypes.SampleName, "taxonomies/" + taxonomies.SampleName, "widgets/" + widgets.SampleID} {
		if rt.Registry.State(id) != core.Wired {
			t.Fatalf("%s should be wired once", id)
		}
	}
}

func TestActivationFlushesRewriteRules(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, false, nil)
	boot(t, rt)
	if err := rt.Host.Activate(ctx, Name, Version); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if v, ok := rt.Host.IsPluginActive(Name); !ok || v != Version {
		t.Fatalf("plugin not active")
	}
	if rt.Host.RewriteFlushes() != 1 {
		t.Fatalf("expected one flush, got %d", rt.Host.RewriteFlushes())
	}
	q, ok := rt.Host.ResolvePath("samples/hello/")
	if !ok || q != "post_type=sample-post-type&name=hello" {
		t.Fatalf("resolve = %q %v", q, ok)
	}
	if q, ok := rt.Host.ResolvePath("sample-taxonomy/news/"); !ok || q != "taxonomy=sample-taxonomy&term=news" {
		t.Fatalf("taxonomy resolve = %q %v", q, ok)
	}
}

func TestDeactivationClearsLog(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, true, nil)
	p := boot(t, rt)
	if err := p.Log(ctx, map[string]string{"msg": "debug"}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := rt.Host.Deactivate(ctx, Name); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, ok, _ := rt.Options.GetTransient(ctx, Namespace+"_error_log"); ok {
		t.Fatalf("debug log should be cleared")
	}
	if rt.Host.RewriteFlushes() != 1 {
		t.Fatalf("deactivation should flush rewrite rules")
	}
}

func TestDevFooterDisplaysLog(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	rt := newRuntime(t, true, &out)
	p := boot(t, rt)
	_ = p.Log(ctx, "hello from the log")
	if err := rt.Host.DoAction(ctx, "wp_footer"); err != nil {
		t.Fatalf("footer: %v", err)
	}
	if err := rt.Host.DoAction(ctx, "shutdown"); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(out.String(), "console.log(") || !strings.Contains(out.String(), "hello from the log") {
		t.Fatalf("log not exposed: %q", out.String())
	}
}

func TestProductionSkipsLogDisplay(t *testing.T) {
	rt := newRuntime(t, false, nil)
	boot(t, rt)
	if rt.Host.HasAnyFilter("wp_footer") || rt.Host.HasAnyFilter("admin_footer") {
		t.Fatalf("footer log display is development only")
	}
}

func TestAssetsEnqueued(t *testing.T) {
	cases := []struct {
		name   string
		dev    bool
		action string
		script string
		style  string
		handle string
	}{
		{"front-end production", false, "wp_enqueue_scripts", cdn + "assets/js/frontend.min.js", cdn + "assets/css/frontend.min.css", Namespace + "-frontend"},
		{"front-end development", true, "wp_enqueue_scripts", cdn + "assets/js/frontend.js", cdn + "assets/css/frontend.css", Namespace + "-frontend"},
		{"admin production", false, "admin_enqueue_scripts", cdn + "assets/js/admin.min.js", cdn + "assets/css/admin.min.css", Namespace + "-admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := newRuntime(t, tc.dev, nil)
			boot(t, rt)
			if err := rt.Host.DoAction(context.Background(), tc.action); err != nil {
				t.Fatalf("%s: %v", tc.action, err)
			}
			scripts, styles := rt.Host.Scripts(), rt.Host.Styles()
			if len(scripts) != 1 || len(styles) != 1 {
				t.Fatalf("expected one script and one style, got %d/%d", len(scripts), len(styles))
			}
			s := scripts[0]
			if s.Src != tc.script || s.Handle != tc.handle || !s.InFooter || s.Version != Version || len(s.Deps) != 0 {
				t.Fatalf("unexpected script %+v", s)
			}
			if styles[0].Src != tc.style || styles[0].Media != "all" {
				t.Fatalf("unexpected style %+v", styles[0])
			}
		})
	}
}

func TestWidgetShortcode(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t, false, nil)
	boot(t, rt)
	_ = rt.Host.DoAction(ctx, "widgets_init")
	out, err := rt.Host.DoShortcode(ctx, `<p>[scaffold_widget title="<b>Hi</b>" my_radio="2"]</p>`)
	if err != nil {
		t.Fatalf("shortcode: %v", err)
	}
	for _, want := range []string{
		`<div class="widget sample_widget_id"><h2 class="widget-title">Hi</h2>`,
		`<li><strong>my_radio:</strong> 2</li>`,
		`</ul></div></p>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := rt.Host.DoShortcode(ctx, `[scaffold_widget id="missing"]`); err == nil {
		t.Fatalf("unknown widget should fail")
	}
}

func TestBundledAssetsPublish(t *testing.T) {
	store := assets.NewMemory(cdn)
	keys, err := assets.Publish(context.Background(), store, Files(), AssetDirs()...)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	for _, want := range []string{"assets/js/admin.min.js", "assets/css/frontend.css"} {
		if !slices.Contains(keys, want) {
			t.Fatalf("missing %s in %v", want, keys)
		}
	}
}

func TestLoadDefinitionsPrefersDisk(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "definitions", "posttypes")
	if err := os.MkdirAll(local, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := "post_type \"book\" {\n  public = true\n}\n"
	if err := os.WriteFile(filepath.Join(local, "book.hcl"), []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	set, err := LoadDefinitions(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := set.PostType("book"); !ok || set.Len() != 1 {
		t.Fatalf("expected only the on-disk definition, got %d", set.Len())
	}
	bundled, err := LoadDefinitions(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("load bundled: %v", err)
	}
	if bundled.Len() != 3 {
		t.Fatalf("expected the three bundled definitions, got %d", bundled.Len())
	}
}
