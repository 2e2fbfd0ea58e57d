// Package widgets turns widget definitions into extensions.
package widgets

import (
	"context"

	"pluginscaffold/internal/core"
	"pluginscaffold/internal/widget"
	"pluginscaffold/pkg/hook"
)

// SampleID is the widget shipped with the scaffold.
const SampleID = "sample_widget_id"

// Widget registers one declared widget type.
type Widget struct {
	core.Framework
	def widget.Definition
}

// New wraps def.
func New(def widget.Definition) *Widget { return &Widget{def: def} }

// Identity keys the registry by widget id.
func (w *Widget) Identity() hook.Identity { return hook.Identity("widgets/" + w.def.ID) }

// ID returns the widget id.
func (w *Widget) ID() string { return w.def.ID }

// Register builds the widget around the host filters and records it.
func (w *Widget) Register(context.Context) error {
	built, err := widget.New(w.def, w.Host())
	if err != nil {
		return err
	}
	return w.Host().RegisterWidget(built)
}
