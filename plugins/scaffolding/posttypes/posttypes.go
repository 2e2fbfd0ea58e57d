// Package posttypes turns post_type definitions into extensions so each
// content type is registered once per runtime, however often it is requested.
package posttypes

import (
	"context"

	"pluginscaffold/internal/core"
	"pluginscaffold/internal/definitions"
	"pluginscaffold/pkg/hook"
)

// SampleName is the post type shipped with the scaffold.
const SampleName = "sample-post-type"

// PostType registers one declared content type.
type PostType struct {
	core.Framework
	def definitions.PostType
}

// New wraps def.
func New(def definitions.PostType) *PostType { return &PostType{def: def} }

// Identity keys the registry by post type name.
func (p *PostType) Identity() hook.Identity { return hook.Identity("posttypes/" + p.def.Name) }

// Name returns the post type name.
func (p *PostType) Name() string { return p.def.Name }

// Register records the post type on the host.
func (p *PostType) Register(ctx context.Context) error {
	p.Logger().V(1).Info("register post type", "name", p.def.Name, "source", p.def.Source)
	return p.Host().RegisterPostType(ctx, p.def.Name, p.def.Args)
}
