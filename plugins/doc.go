// Package plugins hosts plugin implementation subpackages. It contains no
// runtime code itself; it exists so the architecture test that keeps plugins
// away from the storage drivers has a home.
package plugins
