// Package host is the in-process plugin host: the hook table shared by actions
// and filters, shortcodes, content types, taxonomies, widgets, the asset queue,
// rewrite rules and plugin activation. Extensions reach it through the core
// subscriber; the host itself knows nothing about extension identities beyond
// the opaque hook.Key attached to each callback.
package host
