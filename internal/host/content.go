package host

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
)

var (
	// ErrInvalidPostType is returned for post type names outside [a-z0-9_-]{1,20}.
	ErrInvalidPostType = errors.New("host: invalid post type name")
	// ErrInvalidTaxonomy is returned for taxonomy names outside [a-z0-9_-]{1,32}.
	ErrInvalidTaxonomy = errors.New("host: invalid taxonomy name")
	// ErrUnknownPostType is returned when a post type is referenced before registration.
	ErrUnknownPostType = errors.New("host: unknown post type")
	// ErrUnknownTaxonomy is returned when a taxonomy is referenced before registration.
	ErrUnknownTaxonomy = errors.New("host: unknown taxonomy")
)

var (
	postTypeName = regexp.MustCompile(`^[a-z0-9_-]{1,20}$`)
	taxonomyName = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)
)

// Rewrite controls the permalink structure of a content type.
type Rewrite struct {
	Slug      string
	WithFront bool
	Pages     bool
	Feeds     bool
}

// PostTypeArgs mirrors the arguments accepted when registering a post type.
type PostTypeArgs struct {
	Label             string
	Description       string
	Labels            map[string]string
	Supports          []string
	Taxonomies        []string
	Hierarchical      bool
	Public            bool
	ShowUI            bool
	ShowInMenu        bool
	MenuPosition      int
	MenuIcon          string
	ShowInAdminBar    bool
	ShowInNavMenus    bool
	CanExport         bool
	HasArchive        bool
	ExcludeFromSearch bool
	PubliclyQueryable bool
	CapabilityType    string
	Rewrite           *Rewrite
}

// PostType is a registered content type.
type PostType struct {
	Name string
	Args PostTypeArgs
}

// TaxonomyArgs mirrors the arguments accepted when registering a taxonomy.
type TaxonomyArgs struct {
	Labels            map[string]string
	Hierarchical      bool
	Public            bool
	ShowUI            bool
	ShowAdminColumn   bool
	ShowInNavMenus    bool
	ShowTagcloud      bool
	ShowInREST        bool
	PubliclyQueryable bool
	Rewrite           *Rewrite
}

// Taxonomy is a registered taxonomy and the object types it is attached to.
type Taxonomy struct {
	Name        string
	ObjectTypes []string
	Args        TaxonomyArgs
}

// RegisterPostType records a content type, replacing any earlier registration
// of the same name, and fires registered_post_type.
func (h *Host) RegisterPostType(ctx context.Context, name string, args PostTypeArgs) error {
	if !postTypeName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidPostType, name)
	}
	args.Supports = slices.Clone(args.Supports)
	args.Taxonomies = slices.Clone(args.Taxonomies)
	h.mu.Lock()
	h.postTypes[name] = PostType{Name: name, Args: args}
	for _, tax := range args.Taxonomies {
		if t, ok := h.taxonomies[tax]; ok && !slices.Contains(t.ObjectTypes, name) {
			t.ObjectTypes = append(t.ObjectTypes, name)
		}
	}
	h.mu.Unlock()
	return h.DoAction(ctx, "registered_post_type", name, args)
}

// PostType returns a registered content type.
func (h *Host) PostType(name string) (PostType, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	pt, ok := h.postTypes[name]
	return pt, ok
}

// PostTypeExists reports whether name is registered.
func (h *Host) PostTypeExists(name string) bool {
	_, ok := h.PostType(name)
	return ok
}

// PostTypes returns all registered post type names, sorted.
func (h *Host) PostTypes() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.postTypes))
	for name := range h.postTypes {
		out = append(out, name)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

// RegisterTaxonomy records a taxonomy for objectTypes and fires
// registered_taxonomy. Object types need not be registered yet.
func (h *Host) RegisterTaxonomy(ctx context.Context, name string, objectTypes []string, args TaxonomyArgs) error {
	if !taxonomyName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTaxonomy, name)
	}
	types := make([]string, 0, len(objectTypes))
	for _, ot := range objectTypes {
		if ot != "" && !slices.Contains(types, ot) {
			types = append(types, ot)
		}
	}
	h.mu.Lock()
	h.taxonomies[name] = &Taxonomy{Name: name, ObjectTypes: types, Args: args}
	h.mu.Unlock()
	return h.DoAction(ctx, "registered_taxonomy", name, types, args)
}

// RegisterTaxonomyForObjectType attaches an existing taxonomy to an existing
// post type. Attaching twice is a no-op.
func (h *Host) RegisterTaxonomyForObjectType(taxonomy, objectType string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.taxonomies[taxonomy]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaxonomy, taxonomy)
	}
	if _, ok := h.postTypes[objectType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPostType, objectType)
	}
	if !slices.Contains(t.ObjectTypes, objectType) {
		t.ObjectTypes = append(t.ObjectTypes, objectType)
	}
	return nil
}

// Taxonomy returns a copy of a registered taxonomy.
func (h *Host) Taxonomy(name string) (Taxonomy, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.taxonomies[name]
	if !ok {
		return Taxonomy{}, false
	}
	out := *t
	out.ObjectTypes = slices.Clone(t.ObjectTypes)
	return out, true
}

// Taxonomies returns all registered taxonomy names, sorted.
func (h *Host) Taxonomies() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.taxonomies))
	for name := range h.taxonomies {
		out = append(out, name)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}
