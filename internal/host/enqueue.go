package host

import (
	"fmt"
	"html"
	"io"
	"net/url"
	"sync"
)

// Asset is an enqueued script or stylesheet.
type Asset struct {
	Handle   string
	Src      string
	Deps     []string
	Version  string
	InFooter bool
	Media    string
}

type assetQueue struct {
	mu     sync.Mutex
	order  []string
	assets map[string]Asset
}

// add enqueues a once per handle; the first registration wins.
func (q *assetQueue) add(a Asset) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.assets == nil {
		q.assets = make(map[string]Asset)
	}
	if _, ok := q.assets[a.Handle]; ok {
		return false
	}
	q.assets[a.Handle] = a
	q.order = append(q.order, a.Handle)
	return true
}

// list returns assets with enqueued dependencies placed before dependents.
// missing is called for every dependency handle that was never enqueued.
func (q *assetQueue) list(missing func(handle, dep string)) []Asset {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Asset, 0, len(q.order))
	seen := make(map[string]bool, len(q.order))
	var visit func(handle string)
	visit = func(handle string) {
		a, ok := q.assets[handle]
		if !ok || seen[handle] {
			return
		}
		seen[handle] = true
		for _, dep := range a.Deps {
			if _, ok := q.assets[dep]; !ok && missing != nil {
				missing(handle, dep)
				continue
			}
			visit(dep)
		}
		out = append(out, a)
	}
	for _, handle := range q.order {
		visit(handle)
	}
	return out
}

// EnqueueScript queues a script and reports whether the handle was new.
func (h *Host) EnqueueScript(a Asset) bool { return h.scripts.add(a) }

// EnqueueStyle queues a stylesheet and reports whether the handle was new.
func (h *Host) EnqueueStyle(a Asset) bool { return h.styles.add(a) }

// Scripts returns the queued scripts in output order.
func (h *Host) Scripts() []Asset { return h.scripts.list(h.unresolved("script")) }

// Styles returns the queued stylesheets in output order.
func (h *Host) Styles() []Asset { return h.styles.list(h.unresolved("style")) }

func (h *Host) unresolved(kind string) func(handle, dep string) {
	return func(handle, dep string) {
		h.log.V(1).Info("dependency not enqueued", "kind", kind, "handle", handle, "dependency", dep)
	}
}

// PrintHead writes link tags for all styles and header scripts.
func (h *Host) PrintHead(w io.Writer) error {
	for _, a := range h.Styles() {
		media := a.Media
		if media == "" {
			media = "all"
		}
		if _, err := fmt.Fprintf(w, "<link rel=\"stylesheet\" id=\"%s-css\" href=\"%s\" media=\"%s\" />\n",
			html.EscapeString(a.Handle), html.EscapeString(versioned(a)), html.EscapeString(media)); err != nil {
			return err
		}
	}
	return h.printScripts(w, false)
}

// PrintFooter writes script tags for scripts queued for the footer.
func (h *Host) PrintFooter(w io.Writer) error { return h.printScripts(w, true) }

func (h *Host) printScripts(w io.Writer, footer bool) error {
	for _, a := range h.Scripts() {
		if a.InFooter != footer {
			continue
		}
		if _, err := fmt.Fprintf(w, "<script id=\"%s-js\" src=\"%s\"></script>\n",
			html.EscapeString(a.Handle), html.EscapeString(versioned(a))); err != nil {
			return err
		}
	}
	return nil
}

func versioned(a Asset) string {
	if a.Version == "" {
		return a.Src
	}
	u, err := url.Parse(a.Src)
	if err != nil {
		return a.Src
	}
	q := u.Query()
	q.Set("ver", a.Version)
	u.RawQuery = q.Encode()
	return u.String()
}
