// Package taxonomies turns taxonomy definitions into extensions.
package taxonomies

import (
	"context"

	"pluginscaffold/internal/core"
	"pluginscaffold/internal/definitions"
	"pluginscaffold/pkg/hook"
)

// SampleName is the taxonomy shipped with the scaffold.
const SampleName = "sample-taxonomy"

// Taxonomy registers one declared taxonomy and attaches it to its object types.
type Taxonomy struct {
	core.Framework
	def definitions.Taxonomy
}

// New wraps def.
func New(def definitions.Taxonomy) *Taxonomy { return &Taxonomy{def: def} }

// Identity keys the registry by taxonomy name.
func (t *Taxonomy) Identity() hook.Identity { return hook.Identity("taxonomies/" + t.def.Name) }

// Name returns the taxonomy name.
func (t *Taxonomy) Name() string { return t.def.Name }

// Register records the taxonomy and attaches it to every object type that is
// already registered. Object types registered later pick it up through their
// own taxonomies list.
func (t *Taxonomy) Register(ctx context.Context) error {
	h := t.Host()
	if err := h.RegisterTaxonomy(ctx, t.def.Name, t.def.ObjectTypes, t.def.Args); err != nil {
		return err
	}
	for _, objectType := range t.def.ObjectTypes {
		if !h.PostTypeExists(objectType) {
			t.Logger().V(1).Info("object type not registered yet", "taxonomy", t.def.Name, "objectType", objectType)
			continue
		}
		if err := h.RegisterTaxonomyForObjectType(t.def.Name, objectType); err != nil {
			return err
		}
	}
	return nil
}
