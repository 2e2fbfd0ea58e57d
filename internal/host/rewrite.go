package host

import (
	"context"
	"fmt"
	"regexp"
)

// RewriteRule maps a request path pattern to a query string.
type RewriteRule struct {
	Pattern string
	Query   string
}

// Match reports whether path matches the rule and returns the expanded query.
func (r RewriteRule) Match(path string) (string, bool) {
	re, err := regexp.Compile("^" + r.Pattern)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatchIndex(path)
	if m == nil {
		return "", false
	}
	return string(re.ExpandString(nil, r.Query, path, m)), true
}

// FlushRewriteRules regenerates the rule set from the registered post types
// and taxonomies and passes it through the rewrite_rules_array filter.
func (h *Host) FlushRewriteRules(ctx context.Context) error {
	var rules []RewriteRule
	for _, name := range h.PostTypes() {
		pt, _ := h.PostType(name)
		if !pt.Args.Public || pt.Args.Rewrite == nil {
			continue
		}
		slug := pt.Args.Rewrite.Slug
		if slug == "" {
			slug = name
		}
		if pt.Args.HasArchive {
			rules = append(rules, RewriteRule{Pattern: slug + "/?$", Query: "post_type=" + name})
			if pt.Args.Rewrite.Feeds {
				rules = append(rules, RewriteRule{Pattern: slug + "/feed/(feed|rdf|rss|rss2|atom)/?$", Query: "post_type=" + name + "&feed=${1}"})
			}
			if pt.Args.Rewrite.Pages {
				rules = append(rules, RewriteRule{Pattern: slug + "/page/([0-9]{1,})/?$", Query: "post_type=" + name + "&paged=${1}"})
			}
		}
		rules = append(rules, RewriteRule{Pattern: slug + "/([^/]+)/?$", Query: "post_type=" + name + "&name=${1}"})
	}
	for _, name := range h.Taxonomies() {
		tax, _ := h.Taxonomy(name)
		if !tax.Args.Public {
			continue
		}
		slug := name
		if tax.Args.Rewrite != nil && tax.Args.Rewrite.Slug != "" {
			slug = tax.Args.Rewrite.Slug
		}
		rules = append(rules, RewriteRule{Pattern: slug + "/([^/]+)/?$", Query: "taxonomy=" + name + "&term=${1}"})
	}

	filtered, err := h.ApplyFilters(ctx, "rewrite_rules_array", rules)
	if err != nil {
		return err
	}
	out, ok := filtered.([]RewriteRule)
	if !ok {
		return fmt.Errorf("host: rewrite_rules_array returned %T", filtered)
	}
	h.mu.Lock()
	h.rewrite = out
	h.flushes++
	h.mu.Unlock()
	return nil
}

// RewriteRules returns the rules produced by the last flush.
func (h *Host) RewriteRules() []RewriteRule {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]RewriteRule(nil), h.rewrite...)
}

// RewriteFlushes returns how many times the rules have been flushed.
func (h *Host) RewriteFlushes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.flushes
}

// ResolvePath returns the query of the first rule matching path.
func (h *Host) ResolvePath(path string) (string, bool) {
	for _, rule := range h.RewriteRules() {
		if q, ok := rule.Match(path); ok {
			return q, true
		}
	}
	return "", false
}
