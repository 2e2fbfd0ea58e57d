// Package definitions loads post types, taxonomies and widgets declared in HCL
// files. A plugin keeps one definition per file under posttypes/, taxonomies/
// and widgets/ and registers them on the host at the usual hooks.
package definitions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"pluginscaffold/internal/host"
	"pluginscaffold/internal/logging"
	"pluginscaffold/internal/widget"
)

var (
	// ErrInvalid is returned for definitions that parse but cannot be used.
	ErrInvalid = errors.New("definitions: invalid definition")
	// ErrDuplicate is returned when two files declare the same name.
	ErrDuplicate = errors.New("definitions: duplicate definition")
)

// PostType is a decoded post_type block.
type PostType struct {
	Name   string
	Args   host.PostTypeArgs
	Source string
}

// Taxonomy is a decoded taxonomy block.
type Taxonomy struct {
	Name        string
	ObjectTypes []string
	Args        host.TaxonomyArgs
	Source      string
}

// Widget is a decoded widget block.
type Widget struct {
	Definition widget.Definition
	Source     string
}

// Set is every definition found under one root.
type Set struct {
	PostTypes  []PostType
	Taxonomies []Taxonomy
	Widgets    []Widget
}

// PostType looks up a post type by name.
func (s *Set) PostType(name string) (PostType, bool) {
	for _, pt := range s.PostTypes {
		if pt.Name == name {
			return pt, true
		}
	}
	return PostType{}, false
}

// Taxonomy looks up a taxonomy by name.
func (s *Set) Taxonomy(name string) (Taxonomy, bool) {
	for _, t := range s.Taxonomies {
		if t.Name == name {
			return t, true
		}
	}
	return Taxonomy{}, false
}

// Widget looks up a widget by id.
func (s *Set) Widget(id string) (Widget, bool) {
	for _, w := range s.Widgets {
		if w.Definition.ID == id {
			return w, true
		}
	}
	return Widget{}, false
}

// Len returns the number of definitions in the set.
func (s *Set) Len() int { return len(s.PostTypes) + len(s.Taxonomies) + len(s.Widgets) }

func (s *Set) merge(other *Set) error {
	for _, pt := range other.PostTypes {
		if prev, ok := s.PostType(pt.Name); ok {
			return fmt.Errorf("%w: post type %s in %s and %s", ErrDuplicate, pt.Name, prev.Source, pt.Source)
		}
		s.PostTypes = append(s.PostTypes, pt)
	}
	for _, t := range other.Taxonomies {
		if prev, ok := s.Taxonomy(t.Name); ok {
			return fmt.Errorf("%w: taxonomy %s in %s and %s", ErrDuplicate, t.Name, prev.Source, t.Source)
		}
		s.Taxonomies = append(s.Taxonomies, t)
	}
	for _, w := range other.Widgets {
		if prev, ok := s.Widget(w.Definition.ID); ok {
			return fmt.Errorf("%w: widget %s in %s and %s", ErrDuplicate, w.Definition.ID, prev.Source, w.Source)
		}
		s.Widgets = append(s.Widgets, w)
	}
	return nil
}

// Parse decodes a single HCL document.
func Parse(filename string, src []byte) (*Set, error) {
	return parse(hclparse.NewParser(), filename, src)
}

func parse(parser *hclparse.Parser, filename string, src []byte) (*Set, error) {
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	var doc hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	set := &Set{}
	for _, b := range doc.PostTypes {
		pt, err := b.postType(filename)
		if err != nil {
			return nil, err
		}
		if err := set.merge(&Set{PostTypes: []PostType{pt}}); err != nil {
			return nil, err
		}
	}
	for _, b := range doc.Taxonomies {
		if err := set.merge(&Set{Taxonomies: []Taxonomy{b.taxonomy(filename)}}); err != nil {
			return nil, err
		}
	}
	for _, b := range doc.Widgets {
		w, err := b.widget(filename)
		if err != nil {
			return nil, err
		}
		if err := set.merge(&Set{Widgets: []Widget{w}}); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// LoadFS decodes every *.hcl file below dir in fsys, in lexical order. A
// missing dir yields an empty set.
func LoadFS(ctx context.Context, fsys fs.FS, dir string) (*Set, error) {
	log := logging.FromContext(ctx)
	files, err := findFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	set := &Set{}
	parser := hclparse.NewParser()
	for _, name := range files {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read definition %s: %w", name, err)
		}
		found, err := parse(parser, name, src)
		if err != nil {
			return nil, err
		}
		if err := set.merge(found); err != nil {
			return nil, err
		}
	}
	log.V(1).Info("loaded definitions", "dir", dir, "files", len(files),
		"postTypes", len(set.PostTypes), "taxonomies", len(set.Taxonomies), "widgets", len(set.Widgets))
	return set, nil
}

// LoadDir is LoadFS over the operating system directory dir.
func LoadDir(ctx context.Context, dir string) (*Set, error) {
	return LoadFS(ctx, os.DirFS(dir), ".")
}

func findFiles(fsys fs.FS, dir string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && path.Ext(p) == ".hcl" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find definition files in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

type hclFile struct {
	PostTypes  []*postTypeBlock `hcl:"post_type,block"`
	Taxonomies []*taxonomyBlock `hcl:"taxonomy,block"`
	Widgets    []*widgetBlock   `hcl:"widget,block"`
}

type rewriteBlock struct {
	Slug      string `hcl:"slug,optional"`
	WithFront *bool  `hcl:"with_front,optional"`
	Pages     *bool  `hcl:"pages,optional"`
	Feeds     *bool  `hcl:"feeds,optional"`
}

func (b *rewriteBlock) rewrite(hasArchive bool) *host.Rewrite {
	if b == nil {
		return nil
	}
	orDefault := func(v *bool, def bool) bool {
		if v == nil {
			return def
		}
		return *v
	}
	return &host.Rewrite{
		Slug:      b.Slug,
		WithFront: orDefault(b.WithFront, true),
		Pages:     orDefault(b.Pages, true),
		Feeds:     orDefault(b.Feeds, hasArchive),
	}
}

type postTypeBlock struct {
	Name              string            `hcl:"name,label"`
	Label             string            `hcl:"label,optional"`
	Description       string            `hcl:"description,optional"`
	Labels            map[string]string `hcl:"labels,optional"`
	Supports          []string          `hcl:"supports,optional"`
	Taxonomies        []string          `hcl:"taxonomies,optional"`
	Hierarchical      bool              `hcl:"hierarchical,optional"`
	Public            bool              `hcl:"public,optional"`
	ShowUI            bool              `hcl:"show_ui,optional"`
	ShowInMenu        bool              `hcl:"show_in_menu,optional"`
	MenuPosition      int               `hcl:"menu_position,optional"`
	MenuIcon          string            `hcl:"menu_icon,optional"`
	ShowInAdminBar    bool              `hcl:"show_in_admin_bar,optional"`
	ShowInNavMenus    bool              `hcl:"show_in_nav_menus,optional"`
	CanExport         bool              `hcl:"can_export,optional"`
	HasArchive        bool              `hcl:"has_archive,optional"`
	ExcludeFromSearch bool              `hcl:"exclude_from_search,optional"`
	PubliclyQueryable bool              `hcl:"publicly_queryable,optional"`
	CapabilityType    string            `hcl:"capability_type,optional"`
	Rewrite           *rewriteBlock     `hcl:"rewrite,block"`
}

func (b *postTypeBlock) postType(source string) (PostType, error) {
	if strings.TrimSpace(b.Name) == "" {
		return PostType{}, fmt.Errorf("%w: %s: post_type without name", ErrInvalid, source)
	}
	capability := b.CapabilityType
	if capability == "" {
		capability = "post"
	}
	return PostType{
		Name:   b.Name,
		Source: source,
		Args: host.PostTypeArgs{
			Label:             b.Label,
			Description:       b.Description,
			Labels:            b.Labels,
			Supports:          b.Supports,
			Taxonomies:        b.Taxonomies,
			Hierarchical:      b.Hierarchical,
			Public:            b.Public,
			ShowUI:            b.ShowUI,
			ShowInMenu:        b.ShowInMenu,
			MenuPosition:      b.MenuPosition,
			MenuIcon:          b.MenuIcon,
			ShowInAdminBar:    b.ShowInAdminBar,
			ShowInNavMenus:    b.ShowInNavMenus,
			CanExport:         b.CanExport,
			HasArchive:        b.HasArchive,
			ExcludeFromSearch: b.ExcludeFromSearch,
			PubliclyQueryable: b.PubliclyQueryable,
			CapabilityType:    capability,
			Rewrite:           b.Rewrite.rewrite(b.HasArchive),
		},
	}, nil
}

type taxonomyBlock struct {
	Name              string            `hcl:"name,label"`
	ObjectTypes       []string          `hcl:"object_types,optional"`
	Labels            map[string]string `hcl:"labels,optional"`
	Hierarchical      bool              `hcl:"hierarchical,optional"`
	Public            bool              `hcl:"public,optional"`
	ShowUI            bool              `hcl:"show_ui,optional"`
	ShowAdminColumn   bool              `hcl:"show_admin_column,optional"`
	ShowInNavMenus    bool              `hcl:"show_in_nav_menus,optional"`
	ShowTagcloud      bool              `hcl:"show_tagcloud,optional"`
	ShowInREST        bool              `hcl:"show_in_rest,optional"`
	PubliclyQueryable bool              `hcl:"publicly_queryable,optional"`
	Rewrite           *rewriteBlock     `hcl:"rewrite,block"`
}

func (b *taxonomyBlock) taxonomy(source string) Taxonomy {
	return Taxonomy{
		Name:        b.Name,
		ObjectTypes: b.ObjectTypes,
		Source:      source,
		Args: host.TaxonomyArgs{
			Labels:            b.Labels,
			Hierarchical:      b.Hierarchical,
			Public:            b.Public,
			ShowUI:            b.ShowUI,
			ShowAdminColumn:   b.ShowAdminColumn,
			ShowInNavMenus:    b.ShowInNavMenus,
			ShowTagcloud:      b.ShowTagcloud,
			ShowInREST:        b.ShowInREST,
			PubliclyQueryable: b.PubliclyQueryable,
			Rewrite:           b.Rewrite.rewrite(false),
		},
	}
}

type optionBlock struct {
	Value string `hcl:"value"`
	Label string `hcl:"label,optional"`
}

type fieldBlock struct {
	Name        string         `hcl:"name,label"`
	Type        string         `hcl:"type"`
	Label       string         `hcl:"label,optional"`
	Description string         `hcl:"description,optional"`
	Default     string         `hcl:"default,optional"`
	Sanitize    string         `hcl:"sanitize,optional"`
	Options     []*optionBlock `hcl:"option,block"`
}

type widgetBlock struct {
	ID          string        `hcl:"id,label"`
	Name        string        `hcl:"name,optional"`
	ClassName   string        `hcl:"class_name,optional"`
	Description string        `hcl:"description,optional"`
	Fields      []*fieldBlock `hcl:"field,block"`
}

// Sanitizers are the names a field's sanitize attribute may use.
var Sanitizers = map[string]func(string) string{
	"text":     widget.SanitizeTextField,
	"textarea": widget.SanitizeTextarea,
	"raw":      func(s string) string { return s },
}

func (b *widgetBlock) widget(source string) (Widget, error) {
	def := widget.Definition{
		ID:          b.ID,
		Name:        b.Name,
		ClassName:   b.ClassName,
		Description: b.Description,
		Fields:      make([]widget.Field, 0, len(b.Fields)),
	}
	for _, fb := range b.Fields {
		f := widget.Field{
			Name:        fb.Name,
			Type:        widget.FieldType(fb.Type),
			Label:       fb.Label,
			Description: fb.Description,
			Default:     fb.Default,
		}
		if fb.Sanitize != "" {
			fn, ok := Sanitizers[fb.Sanitize]
			if !ok {
				return Widget{}, fmt.Errorf("%w: %s: widget %s field %s: unknown sanitizer %q", ErrInvalid, source, b.ID, fb.Name, fb.Sanitize)
			}
			f.Sanitize = fn
		}
		for _, ob := range fb.Options {
			f.Options = append(f.Options, widget.Option{Value: ob.Value, Label: ob.Label})
		}
		def.Fields = append(def.Fields, f)
	}
	if _, err := widget.New(def, nil); err != nil {
		return Widget{}, fmt.Errorf("%s: %w", source, err)
	}
	return Widget{Definition: def, Source: source}, nil
}
