package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidWidget is returned for widgets without an id.
var ErrInvalidWidget = errors.New("host: invalid widget")

// WidgetSettings is the stored configuration of one widget instance.
type WidgetSettings map[string]any

// WidgetArgs wraps rendered widget output for a sidebar.
type WidgetArgs struct {
	BeforeWidget string
	AfterWidget  string
	BeforeTitle  string
	AfterTitle   string
}

// Widget is a sidebar widget type.
type Widget interface {
	ID() string
	Name() string
	Form(ctx context.Context, instance WidgetSettings) (string, error)
	Update(ctx context.Context, next, prev WidgetSettings) (WidgetSettings, error)
	Render(ctx context.Context, args WidgetArgs, instance WidgetSettings) (string, error)
}

// RegisterWidget records w, replacing a widget with the same id.
func (h *Host) RegisterWidget(w Widget) error {
	if w == nil || w.ID() == "" {
		return ErrInvalidWidget
	}
	h.mu.Lock()
	h.widgets[w.ID()] = w
	h.mu.Unlock()
	return nil
}

// UnregisterWidget drops the widget with id.
func (h *Host) UnregisterWidget(id string) {
	h.mu.Lock()
	delete(h.widgets, id)
	h.mu.Unlock()
}

// Widget returns the widget registered under id.
func (h *Host) Widget(id string) (Widget, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.widgets[id]
	return w, ok
}

// Widgets returns the registered widget ids, sorted.
func (h *Host) Widgets() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.widgets))
	for id := range h.widgets {
		out = append(out, id)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

// RenderWidget renders the widget registered under id.
func (h *Host) RenderWidget(ctx context.Context, id string, args WidgetArgs, instance WidgetSettings) (string, error) {
	w, ok := h.Widget(id)
	if !ok {
		return "", fmt.Errorf("%w: unknown widget %s", ErrInvalidWidget, id)
	}
	return w.Render(ctx, args, instance)
}
