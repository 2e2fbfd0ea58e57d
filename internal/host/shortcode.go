package host

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"pluginscaffold/pkg/hook"
)

// ErrInvalidShortcode is returned for tags the parser could never match.
var ErrInvalidShortcode = errors.New("host: invalid shortcode tag")

type shortcode struct {
	key hook.Key
	fn  hook.ShortcodeFunc
}

// AddShortcode binds tag to fn. A later registration of the same tag wins.
func (h *Host) AddShortcode(tag string, key hook.Key, fn hook.ShortcodeFunc) error {
	if !validTag(tag) {
		return fmt.Errorf("%w: %q", ErrInvalidShortcode, tag)
	}
	if fn == nil {
		return fmt.Errorf("%w: shortcode %s", ErrNilCallback, tag)
	}
	h.mu.Lock()
	h.shortcodes[tag] = shortcode{key: key, fn: fn}
	h.mu.Unlock()
	return nil
}

// RemoveShortcode drops tag.
func (h *Host) RemoveShortcode(tag string) {
	h.mu.Lock()
	delete(h.shortcodes, tag)
	h.mu.Unlock()
}

// ShortcodeExists reports whether tag is registered.
func (h *Host) ShortcodeExists(tag string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.shortcodes[tag]
	return ok
}

// ShortcodeKey returns the key tag was registered with.
func (h *Host) ShortcodeKey(tag string) (hook.Key, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sc, ok := h.shortcodes[tag]
	return sc.key, ok
}

// Shortcodes returns all registered tags, sorted.
func (h *Host) Shortcodes() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.shortcodes))
	for tag := range h.shortcodes {
		out = append(out, tag)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

func validTag(tag string) bool {
	if tag == "" {
		return false
	}
	return !strings.ContainsAny(tag, "[]/<>&\"' \t\r\n")
}

// DoShortcode expands every registered shortcode in content. Unknown tags are
// left untouched and [[tag]] escapes to a literal [tag].
func (h *Host) DoShortcode(ctx context.Context, content string) (string, error) {
	if !strings.Contains(content, "[") {
		return content, nil
	}
	start := time.Now()
	var (
		b     strings.Builder
		calls int
		err   error
	)
	rest := content
	for err == nil {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			break
		}
		b.WriteString(rest[:open])
		tok, ok := h.scanShortcode(rest[open:])
		if !ok {
			b.WriteByte('[')
			rest = rest[open+1:]
			continue
		}
		rest = rest[open+tok.length:]
		if tok.escaped {
			b.WriteString(tok.raw[1 : len(tok.raw)-1])
			continue
		}
		calls++
		var out string
		out, err = tok.sc.fn(ctx, tok.attrs, tok.content, tok.tag)
		if err != nil {
			err = fmt.Errorf("shortcode %s: %s: %w", tok.tag, tok.sc.key, err)
			break
		}
		b.WriteString(out)
	}
	if err == nil {
		b.WriteString(rest)
	}
	h.observe(ctx, Dispatch{Kind: "shortcode", Hook: "do_shortcode", Callbacks: calls, Duration: time.Since(start), Err: err})
	if err != nil {
		return content, err
	}
	return b.String(), nil
}

type shortcodeToken struct {
	tag     string
	attrs   map[string]string
	content string
	raw     string
	length  int
	escaped bool
	sc      shortcode
}

// scanShortcode parses a shortcode at the start of s, which begins with '['.
func (h *Host) scanShortcode(s string) (shortcodeToken, bool) {
	i := 1
	escaped := false
	if len(s) > 1 && s[1] == '[' {
		escaped = true
		i = 2
	}
	j := i
	for j < len(s) && isTagByte(s[j]) {
		j++
	}
	if j == i {
		return shortcodeToken{}, false
	}
	tag := s[i:j]
	h.mu.RLock()
	sc, ok := h.shortcodes[tag]
	h.mu.RUnlock()
	if !ok {
		return shortcodeToken{}, false
	}

	end, selfClosing, ok := findTagEnd(s, j)
	if !ok {
		return shortcodeToken{}, false
	}
	attrText := s[j:end]
	if selfClosing {
		attrText = strings.TrimSuffix(attrText, "/")
	}
	length := end + 1
	var inner string
	switch {
	case escaped && length < len(s) && s[length] == ']':
		// [[tag]] wins over an enclosing [[tag]...[/tag]].
	case !selfClosing:
		closing := "[/" + tag + "]"
		if k := strings.Index(s[length:], closing); k >= 0 {
			inner = s[length : length+k]
			length += k + len(closing)
		}
	}
	if escaped {
		if length >= len(s) || s[length] != ']' {
			return shortcodeToken{}, false
		}
		length++
	}
	return shortcodeToken{
		tag:     tag,
		attrs:   ParseAttributes(attrText),
		content: inner,
		raw:     s[:length],
		length:  length,
		escaped: escaped,
		sc:      sc,
	}, true
}

// findTagEnd returns the index of the ']' closing the opening tag, skipping
// brackets inside quoted attribute values.
func findTagEnd(s string, from int) (int, bool, bool) {
	if from < len(s) && s[from] != ']' && s[from] != '/' && !isSpace(s[from]) {
		return 0, false, false
	}
	var quote byte
	for k := from; k < len(s); k++ {
		c := s[k]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			return 0, false, false
		case c == ']':
			return k, k > from && s[k-1] == '/', true
		}
	}
	return 0, false, false
}

func isTagByte(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

var attrPattern = regexp.MustCompile(`([\w-]+)\s*=\s*"([^"]*)"|([\w-]+)\s*=\s*'([^']*)'|([\w-]+)\s*=\s*([^\s'"]+)|"([^"]*)"|'([^']*)'|(\S+)`)

// ParseAttributes splits a shortcode attribute string. Named attributes are
// keyed by their lower-cased name; positional values are keyed "0", "1", ...
func ParseAttributes(text string) map[string]string {
	attrs := make(map[string]string)
	pos := 0
	for _, m := range attrPattern.FindAllStringSubmatch(strings.TrimSpace(text), -1) {
		switch {
		case m[1] != "":
			attrs[strings.ToLower(m[1])] = m[2]
		case m[3] != "":
			attrs[strings.ToLower(m[3])] = m[4]
		case m[5] != "":
			attrs[strings.ToLower(m[5])] = m[6]
		case m[7] != "" || strings.HasPrefix(m[0], `"`):
			attrs[strconv.Itoa(pos)] = m[7]
			pos++
		case m[8] != "" || strings.HasPrefix(m[0], `'`):
			attrs[strconv.Itoa(pos)] = m[8]
			pos++
		default:
			attrs[strconv.Itoa(pos)] = m[9]
			pos++
		}
	}
	return attrs
}

// ShortcodeAtts fills defaults with the matching keys of attrs. Keys not in
// defaults are dropped.
func ShortcodeAtts(defaults, attrs map[string]string) map[string]string {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		if given, ok := attrs[k]; ok {
			out[k] = given
			continue
		}
		out[k] = v
	}
	return out
}
