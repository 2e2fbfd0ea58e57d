package host

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
)

func TestRegisterPostTypeAndTaxonomy(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.RegisterPostType(ctx, "Bad Name", PostTypeArgs{}); !errors.Is(err, ErrInvalidPostType) {
		t.Fatalf("expected ErrInvalidPostType, got %v", err)
	}
	if err := h.RegisterPostType(ctx, "a-name-longer-than-20", PostTypeArgs{}); !errors.Is(err, ErrInvalidPostType) {
		t.Fatalf("expected ErrInvalidPostType for long name, got %v", err)
	}
	if err := h.RegisterTaxonomy(ctx, "genre", []string{"", "movie", "movie"}, TaxonomyArgs{Public: true}); err != nil {
		t.Fatalf("register taxonomy: %v", err)
	}
	if err := h.RegisterPostType(ctx, "book", PostTypeArgs{Public: true, Taxonomies: []string{"genre"}}); err != nil {
		t.Fatalf("register post type: %v", err)
	}
	tax, ok := h.Taxonomy("genre")
	if !ok {
		t.Fatalf("taxonomy missing")
	}
	if diff := cmp.Diff([]string{"movie", "book"}, tax.ObjectTypes); diff != "" {
		t.Fatalf("object types mismatch (-want +got):\n%s", diff)
	}
	if h.DidAction("registered_post_type") != 1 || h.DidAction("registered_taxonomy") != 1 {
		t.Fatalf("registration actions not fired")
	}
	if !h.PostTypeExists("book") || h.PostTypeExists("movie") {
		t.Fatalf("post type lookup wrong")
	}
}

func TestRegisterTaxonomyForObjectType(t *testing.T) {
	ctx := context.Background()
	h := New()
	if err := h.RegisterTaxonomyForObjectType("genre", "book"); !errors.Is(err, ErrUnknownTaxonomy) {
		t.Fatalf("expected ErrUnknownTaxonomy, got %v", err)
	}
	_ = h.RegisterTaxonomy(ctx, "genre", nil, TaxonomyArgs{})
	if err := h.RegisterTaxonomyForObjectType("genre", "book"); !errors.Is(err, ErrUnknownPostType) {
		t.Fatalf("expected ErrUnknownPostType, got %v", err)
	}
	_ = h.RegisterPostType(ctx, "book", PostTypeArgs{})
	for i := 0; i < 2; i++ {
		if err := h.RegisterTaxonomyForObjectType("genre", "book"); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}
	tax, _ := h.Taxonomy("genre")
	if diff := cmp.Diff([]string{"book"}, tax.ObjectTypes); diff != "" {
		t.Fatalf("object types mismatch (-want +got):\n%s", diff)
	}
	if err := h.RegisterTaxonomy(ctx, "Genre!", nil, TaxonomyArgs{}); !errors.Is(err, ErrInvalidTaxonomy) {
		t.Fatalf("expected ErrInvalidTaxonomy, got %v", err)
	}
}

func TestFlushRewriteRules(t *testing.T) {
	ctx := context.Background()
	h := New()
	_ = h.RegisterPostType(ctx, "sample-post-type", PostTypeArgs{
		Public:     true,
		HasArchive: true,
		Rewrite:    &Rewrite{Slug: "samples", Pages: true, Feeds: true},
	})
	_ = h.RegisterPostType(ctx, "private", PostTypeArgs{Rewrite: &Rewrite{Slug: "hidden"}})
	_ = h.RegisterTaxonomy(ctx, "sample-taxonomy", []string{"sample-post-type"}, TaxonomyArgs{Public: true})
	_ = h.AddFilter("rewrite_rules_array", key("custom"), func(_ context.Context, args ...any) (any, error) {
		rules := args[0].([]RewriteRule)
		return append([]RewriteRule{{Pattern: "custom/?$", Query: "page=custom"}}, rules...), nil
	}, 10, 1)

	if err := h.FlushRewriteRules(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	cases := map[string]string{
		"samples/":             "post_type=sample-post-type",
		"samples/hello/":       "post_type=sample-post-type&name=hello",
		"samples/page/2/":      "post_type=sample-post-type&paged=2",
		"samples/feed/rss2/":   "post_type=sample-post-type&feed=rss2",
		"sample-taxonomy/news": "taxonomy=sample-taxonomy&term=news",
		"custom":               "page=custom",
	}
	for path, want := range cases {
		got, ok := h.ResolvePath(path)
		if !ok || got != want {
			t.Errorf("resolve %q = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := h.ResolvePath("hidden/x"); ok {
		t.Fatalf("non-public post type must not get rules")
	}
	if h.RewriteFlushes() != 1 {
		t.Fatalf("expected one flush, got %d", h.RewriteFlushes())
	}
}

func TestFlushRewriteRulesRejectsBadFilterResult(t *testing.T) {
	h := New()
	_ = h.AddFilter("rewrite_rules_array", key("bad"), func(context.Context, ...any) (any, error) {
		return "nope", nil
	}, 10, 1)
	if err := h.FlushRewriteRules(context.Background()); err == nil {
		t.Fatalf("expected type error")
	}
	if h.RewriteFlushes() != 0 {
		t.Fatalf("failed flush must not count")
	}
}

type stubWidget struct{ id string }

func (w stubWidget) ID() string   { return w.id }
func (w stubWidget) Name() string { return "Stub" }
func (w stubWidget) Form(context.Context, WidgetSettings) (string, error) {
	return "<form>", nil
}
func (w stubWidget) Update(_ context.Context, next, _ WidgetSettings) (WidgetSettings, error) {
	return next, nil
}
func (w stubWidget) Render(_ context.Context, args WidgetArgs, instance WidgetSettings) (string, error) {
	return args.BeforeWidget + instance["title"].(string) + args.AfterWidget, nil
}

func TestWidgets(t *testing.T) {
	h := New()
	if err := h.RegisterWidget(nil); !errors.Is(err, ErrInvalidWidget) {
		t.Fatalf("expected ErrInvalidWidget, got %v", err)
	}
	if err := h.RegisterWidget(stubWidget{}); !errors.Is(err, ErrInvalidWidget) {
		t.Fatalf("expected ErrInvalidWidget for empty id, got %v", err)
	}
	_ = h.RegisterWidget(stubWidget{id: "stub"})
	out, err := h.RenderWidget(context.Background(), "stub", WidgetArgs{BeforeWidget: "<div>", AfterWidget: "</div>"}, WidgetSettings{"title": "T"})
	if err != nil || out != "<div>T</div>" {
		t.Fatalf("render = %q, %v", out, err)
	}
	if _, err := h.RenderWidget(context.Background(), "missing", WidgetArgs{}, nil); !errors.Is(err, ErrInvalidWidget) {
		t.Fatalf("expected ErrInvalidWidget, got %v", err)
	}
	h.UnregisterWidget("stub")
	if len(h.Widgets()) != 0 {
		t.Fatalf("unregister failed")
	}
}

func TestAssetQueue(t *testing.T) {
	h := New()
	if !h.EnqueueScript(Asset{Handle: "app", Src: "/js/app.js", Deps: []string{"vendor"}, Version: "1.0", InFooter: true}) {
		t.Fatalf("first enqueue should be new")
	}
	h.EnqueueScript(Asset{Handle: "vendor", Src: "/js/vendor.js", InFooter: true})
	h.EnqueueScript(Asset{Handle: "head", Src: "/js/head.js"})
	if h.EnqueueScript(Asset{Handle: "app", Src: "/other.js"}) {
		t.Fatalf("duplicate handle should be ignored")
	}
	h.EnqueueStyle(Asset{Handle: "main", Src: "/css/main.css", Version: "2"})

	var handles []string
	for _, a := range h.Scripts() {
		handles = append(handles, a.Handle)
	}
	if diff := cmp.Diff([]string{"vendor", "app", "head"}, handles); diff != "" {
		t.Fatalf("script order mismatch (-want +got):\n%s", diff)
	}

	var head, foot bytes.Buffer
	if err := h.PrintHead(&head); err != nil {
		t.Fatalf("print head: %v", err)
	}
	if err := h.PrintFooter(&foot); err != nil {
		t.Fatalf("print footer: %v", err)
	}
	wantHead := `<link rel="stylesheet" id="main-css" href="/css/main.css?ver=2" media="all" />` + "\n" +
		`<script id="head-js" src="/js/head.js"></script>` + "\n"
	if head.String() != wantHead {
		t.Fatalf("head mismatch:\n%s", head.String())
	}
	wantFoot := `<script id="vendor-js" src="/js/vendor.js"></script>` + "\n" +
		`<script id="app-js" src="/js/app.js?ver=1.0"></script>` + "\n"
	if foot.String() != wantFoot {
		t.Fatalf("footer mismatch:\n%s", foot.String())
	}
}

func TestAssetQueueLogsMissingDependency(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) { lines = append(lines, args) }, funcr.Options{Verbosity: 1})
	h := New(WithLogger(log))
	h.EnqueueScript(Asset{Handle: "app", Src: "/js/app.js", Deps: []string{"jquery"}, InFooter: true})

	var foot bytes.Buffer
	if err := h.PrintFooter(&foot); err != nil {
		t.Fatalf("print footer: %v", err)
	}
	if foot.String() != `<script id="app-js" src="/js/app.js"></script>`+"\n" {
		t.Fatalf("footer mismatch:\n%s", foot.String())
	}
	if len(lines) != 1 || !strings.Contains(lines[0], `"dependency"="jquery"`) || !strings.Contains(lines[0], `"handle"="app"`) {
		t.Fatalf("expected one unresolved dependency log line, got %q", lines)
	}
}

func TestActivationLifecycle(t *testing.T) {
	ctx := context.Background()
	h := New()
	var log []string
	_ = h.RegisterActivationHook("demo", key("on"), record(&log, "activate"))
	_ = h.RegisterDeactivationHook("demo", key("off"), record(&log, "deactivate"))

	if err := h.Activate(ctx, "demo", "1.2.0"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if v, ok := h.IsPluginActive("demo"); !ok || v != "1.2.0" {
		t.Fatalf("plugin not active: %q %v", v, ok)
	}
	if err := h.Deactivate(ctx, "demo"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, ok := h.IsPluginActive("demo"); ok {
		t.Fatalf("plugin still active")
	}
	if diff := cmp.Diff([]string{"activate", "deactivate"}, log); diff != "" {
		t.Fatalf("lifecycle mismatch (-want +got):\n%s", diff)
	}
	if h.DidAction("activated_plugin") != 1 || h.DidAction("deactivated_plugin") != 1 {
		t.Fatalf("lifecycle actions not fired")
	}
}

func TestFailedActivationLeavesPluginInactive(t *testing.T) {
	h := New()
	boom := errors.New("boom")
	_ = h.RegisterActivationHook("demo", key("on"), func(context.Context, ...any) (any, error) { return nil, boom })
	if err := h.Activate(context.Background(), "demo", "1"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(h.ActivePlugins()) != 0 {
		t.Fatalf("plugin should stay inactive")
	}
}

func TestLoadPluginTextDomain(t *testing.T) {
	h := New()
	if !h.LoadPluginTextDomain("demo", "demo/languages") {
		t.Fatalf("first load should succeed")
	}
	if h.LoadPluginTextDomain("demo", "elsewhere") {
		t.Fatalf("second load should report false")
	}
	if p, _ := h.TextDomain("demo"); p != "demo/languages" {
		t.Fatalf("path = %q", p)
	}
}
