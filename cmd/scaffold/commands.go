package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"sigs.k8s.io/yaml"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("scaffold "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parse reports flag errors as usage errors.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return nil
}

func runBoot(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if err := parse(a.flags("boot"), args); err != nil {
		return err
	}
	s, err := a.boot(ctx, stdout, nil)
	if err != nil {
		return err
	}
	if err := s.load(ctx, false); err != nil {
		return err
	}
	h := s.rt.Host
	fmt.Fprintf(stdout, "booted %s %s\n", s.rt.Settings.Plugin, s.rt.Settings.Version)
	fmt.Fprintf(stdout, "extensions: %d\n", s.rt.Registry.Len())
	fmt.Fprintf(stdout, "post types: %s\n", strings.Join(h.PostTypes(), ", "))
	fmt.Fprintf(stdout, "taxonomies: %s\n", strings.Join(h.Taxonomies(), ", "))
	fmt.Fprintf(stdout, "widgets: %s\n", strings.Join(h.Widgets(), ", "))
	fmt.Fprintf(stdout, "shortcodes: %s\n", strings.Join(h.Shortcodes(), ", "))
	return nil
}

func runActivate(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if err := parse(a.flags("activate"), args); err != nil {
		return err
	}
	s, err := a.boot(ctx, stdout, nil)
	if err != nil {
		return err
	}
	if err := a.activate(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "activated %s %s (%d rewrite rules)\n",
		s.rt.Settings.Plugin, s.rt.Settings.Version, len(s.rt.Host.RewriteRules()))
	return nil
}

func runDeactivate(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if err := parse(a.flags("deactivate"), args); err != nil {
		return err
	}
	s, err := a.boot(ctx, stdout, nil)
	if err != nil {
		return err
	}
	if _, ok := s.rt.Host.IsPluginActive(s.rt.Settings.Plugin); !ok {
		return fmt.Errorf("%s: %w", s.rt.Settings.Plugin, errNotActive)
	}
	if err := a.deactivate(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deactivated %s\n", s.rt.Settings.Plugin)
	return nil
}

// page is one render request.
type page struct {
	Path    string
	Content string
	Admin   bool
}

func runRender(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := a.flags("render")
	var p page
	fs.StringVar(&p.Path, "path", "/", "request path resolved through the rewrite rules")
	fs.StringVar(&p.Content, "content", "", "post content, shortcodes expanded")
	fs.BoolVar(&p.Admin, "admin", false, "render an admin page")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.boot(ctx, stdout, nil)
	if err != nil {
		return err
	}
	return s.render(ctx, stdout, p)
}

// render writes a full page: queued styles and head scripts, the filtered
// content, the footer hooks and footer scripts, then fires shutdown.
func (s *session) render(ctx context.Context, w io.Writer, p page) error {
	h := s.rt.Host
	if err := s.load(ctx, p.Admin); err != nil {
		return err
	}
	var query string
	if path := strings.Trim(p.Path, "/"); path != "" {
		if err := h.FlushRewriteRules(ctx); err != nil {
			return err
		}
		q, ok := h.ResolvePath(path)
		if !ok {
			return fmt.Errorf("%w: %s", errNoRoute, p.Path)
		}
		query = q
	}

	content, err := h.ApplyFilters(ctx, "the_content", p.Content)
	if err != nil {
		return err
	}
	text, ok := content.(string)
	if !ok {
		return fmt.Errorf("the_content returned %T", content)
	}
	if text, err = h.DoShortcode(ctx, text); err != nil {
		return err
	}

	fmt.Fprint(w, "<!DOCTYPE html>\n<html>\n<head>\n")
	if err := h.PrintHead(w); err != nil {
		return err
	}
	fmt.Fprint(w, "</head>\n<body>\n")
	if query != "" {
		fmt.Fprintf(w, "<!-- query: %s -->\n", query)
	}
	if text != "" {
		fmt.Fprintln(w, text)
	}
	footer := "wp_footer"
	if p.Admin {
		footer = "admin_footer"
	}
	if err := h.DoAction(ctx, footer); err != nil {
		return err
	}
	if err := h.PrintFooter(w); err != nil {
		return err
	}
	fmt.Fprint(w, "</body>\n</html>\n")
	return h.DoAction(ctx, "shutdown")
}

type snapshot struct {
	Plugin      pluginInfo     `json:"plugin"`
	Definitions []definition   `json:"definitions"`
	Hooks       []hookInfo     `json:"hooks"`
	Shortcodes  []string       `json:"shortcodes"`
	Registry    []identityInfo `json:"registry"`
	Options     []string       `json:"options"`
}

type pluginInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Namespace     string `json:"namespace"`
	TextDomain    string `json:"textDomain"`
	Environment   string `json:"environment"`
	Dev           bool   `json:"dev"`
	ActiveVersion string `json:"activeVersion,omitempty"`
}

type definition struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

type hookInfo struct {
	Hook     string `json:"hook"`
	Callable string `json:"callable"`
	Priority int    `json:"priority"`
	Arity    int    `json:"arity"`
}

type identityInfo struct {
	Identity string `json:"identity"`
	State    string `json:"state"`
}

func runInspect(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	fs := a.flags("inspect")
	format := fs.String("format", "text", "output format: text|json|yaml")
	loaded := fs.Bool("init", true, "fire init and widgets_init before inspecting")
	if err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.boot(ctx, io.Discard, nil)
	if err != nil {
		return err
	}
	if *loaded {
		if err := s.load(ctx, false); err != nil {
			return err
		}
	}
	snap, err := a.snapshot(ctx, s)
	if err != nil {
		return err
	}
	switch *format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml":
		out, err := yaml.Marshal(snap)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	case "text":
		return snap.writeText(stdout)
	default:
		fmt.Fprintf(a.stderr, "unknown format %q\n", *format)
		return errUsage
	}
}

func (a *app) snapshot(ctx context.Context, s *session) (snapshot, error) {
	rt := s.rt
	h := rt.Host
	snap := snapshot{
		Plugin: pluginInfo{
			Name:        rt.Settings.Plugin,
			Version:     rt.Settings.Version,
			Namespace:   rt.Settings.Namespace,
			TextDomain:  rt.Settings.TextDomain,
			Environment: rt.Settings.Environment,
			Dev:         s.plugin.IsDev(),
		},
		Shortcodes: h.Shortcodes(),
	}
	if v, ok := h.IsPluginActive(rt.Settings.Plugin); ok {
		snap.Plugin.ActiveVersion = v
	}
	defs := s.plugin.Definitions()
	for _, d := range defs.PostTypes {
		snap.Definitions = append(snap.Definitions, definition{"post_type", d.Name, d.Source})
	}
	for _, d := range defs.Taxonomies {
		snap.Definitions = append(snap.Definitions, definition{"taxonomy", d.Name, d.Source})
	}
	for _, d := range defs.Widgets {
		snap.Definitions = append(snap.Definitions, definition{"widget", d.Definition.ID, d.Source})
	}
	for _, name := range h.Hooks() {
		for _, sub := range h.Subscriptions(name) {
			snap.Hooks = append(snap.Hooks, hookInfo{name, sub.Key.String(), sub.Priority, sub.Arity})
		}
	}
	for _, id := range rt.Registry.Identities() {
		snap.Registry = append(snap.Registry, identityInfo{string(id), rt.Registry.State(id).String()})
	}
	names, err := a.options.Names(ctx, rt.Settings.Namespace)
	if err != nil {
		return snapshot{}, err
	}
	snap.Options = names
	return snap, nil
}

func (s snapshot) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	p := s.Plugin
	active := "inactive"
	if p.ActiveVersion != "" {
		active = "active " + p.ActiveVersion
	}
	fmt.Fprintf(tw, "plugin\t%s %s (%s, %s)\n", p.Name, p.Version, p.Environment, active)
	fmt.Fprintf(tw, "text domain\t%s\n", p.TextDomain)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "KIND\tNAME\tSOURCE")
	for _, d := range s.Definitions {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Kind, d.Name, d.Source)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "HOOK\tPRIORITY\tCALLABLE")
	for _, hk := range s.Hooks {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", hk.Hook, hk.Priority, hk.Callable)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "IDENTITY\tSTATE")
	for _, id := range s.Registry {
		fmt.Fprintf(tw, "%s\t%s\n", id.Identity, id.State)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "shortcodes\t%s\n", strings.Join(s.Shortcodes, ", "))
	fmt.Fprintf(tw, "options\t%s\n", strings.Join(s.Options, ", "))
	return tw.Flush()
}

var errNoRoute = errors.New("no rewrite rule matches")
