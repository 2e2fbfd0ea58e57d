package host

import (
	"context"
	"sort"

	"pluginscaffold/pkg/hook"
)

// ActivationHook is the action fired when plugin is activated.
func ActivationHook(plugin string) string { return "activate_" + plugin }

// DeactivationHook is the action fired when plugin is deactivated.
func DeactivationHook(plugin string) string { return "deactivate_" + plugin }

// RegisterActivationHook subscribes fn to the activation hook of plugin.
func (h *Host) RegisterActivationHook(plugin string, key hook.Key, fn hook.Func) error {
	return h.AddAction(ActivationHook(plugin), key, fn, 10, 1)
}

// RegisterDeactivationHook subscribes fn to the deactivation hook of plugin.
func (h *Host) RegisterDeactivationHook(plugin string, key hook.Key, fn hook.Func) error {
	return h.AddAction(DeactivationHook(plugin), key, fn, 10, 1)
}

// Activate fires the plugin's activation hook and marks it active at version.
// The plugin stays inactive when a callback fails.
func (h *Host) Activate(ctx context.Context, plugin, version string) error {
	if err := h.DoAction(ctx, ActivationHook(plugin)); err != nil {
		return err
	}
	h.ActivatePlugin(plugin, version)
	return h.DoAction(ctx, "activated_plugin", plugin)
}

// Deactivate fires the plugin's deactivation hook and marks it inactive.
func (h *Host) Deactivate(ctx context.Context, plugin string) error {
	if err := h.DoAction(ctx, DeactivationHook(plugin)); err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.active, plugin)
	h.mu.Unlock()
	return h.DoAction(ctx, "deactivated_plugin", plugin)
}

// ActivatePlugin marks plugin active without firing hooks.
func (h *Host) ActivatePlugin(plugin, version string) {
	h.mu.Lock()
	h.active[plugin] = version
	h.mu.Unlock()
}

// IsPluginActive returns the version of an active plugin.
func (h *Host) IsPluginActive(plugin string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.active[plugin]
	return v, ok
}

// ActivePlugins returns the active plugin names, sorted.
func (h *Host) ActivePlugins() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.active))
	for name := range h.active {
		out = append(out, name)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

// LoadPluginTextDomain records where the translations of domain live. It
// reports false when the domain was already loaded.
func (h *Host) LoadPluginTextDomain(domain, path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.domains[domain]; ok {
		return false
	}
	h.domains[domain] = path
	return true
}

// TextDomain returns the path recorded for domain.
func (h *Host) TextDomain(domain string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.domains[domain]
	return p, ok
}
