package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"pluginscaffold/pkg/hook"
)

var (
	// ErrInvalidHook is returned for empty hook names.
	ErrInvalidHook = errors.New("host: invalid hook name")
	// ErrNilCallback is returned when a subscription carries no function.
	ErrNilCallback = errors.New("host: nil callback")
)

// Dispatch describes a single action, filter or shortcode run.
type Dispatch struct {
	Kind      string
	Hook      string
	Callbacks int
	Duration  time.Duration
	Err       error
}

// Observer receives a Dispatch after every run.
type Observer interface {
	ObserveDispatch(ctx context.Context, d Dispatch)
}

type subscription struct {
	key      hook.Key
	fn       hook.Func
	priority int
	arity    int
	seq      uint64
}

// Host holds all state of a single host instance.
type Host struct {
	mu         sync.RWMutex
	filters    map[string][]*subscription
	seq        uint64
	didAction  map[string]int
	current    []string
	shortcodes map[string]shortcode
	postTypes  map[string]PostType
	taxonomies map[string]*Taxonomy
	widgets    map[string]Widget
	scripts    assetQueue
	styles     assetQueue
	active     map[string]string
	domains    map[string]string
	rewrite    []RewriteRule
	flushes    int

	out      io.Writer
	observer Observer
	log      logr.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithOutput sets where exposed debug output is written.
func WithOutput(w io.Writer) Option {
	return func(h *Host) {
		if w != nil {
			h.out = w
		}
	}
}

// WithObserver attaches a dispatch observer.
func WithObserver(o Observer) Option {
	return func(h *Host) { h.observer = o }
}

// WithLogger sets the host logger.
func WithLogger(l logr.Logger) Option {
	return func(h *Host) { h.log = l }
}

// New constructs an empty host.
func New(opts ...Option) *Host {
	h := &Host{
		filters:    make(map[string][]*subscription),
		didAction:  make(map[string]int),
		shortcodes: make(map[string]shortcode),
		postTypes:  make(map[string]PostType),
		taxonomies: make(map[string]*Taxonomy),
		widgets:    make(map[string]Widget),
		active:     make(map[string]string),
		domains:    make(map[string]string),
		out:        io.Discard,
		log:        logr.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Output returns the writer exposed debug output goes to.
func (h *Host) Output() io.Writer { return h.out }

// AddFilter attaches fn under key at priority. Adding the same key at the same
// priority again replaces the earlier callback in place.
func (h *Host) AddFilter(name string, key hook.Key, fn hook.Func, priority, arity int) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidHook
	}
	if fn == nil {
		return fmt.Errorf("%w: %s on %s", ErrNilCallback, key, name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.filters[name] {
		if sub.key == key && sub.priority == priority {
			sub.fn = fn
			sub.arity = arity
			return nil
		}
	}
	h.seq++
	h.filters[name] = append(h.filters[name], &subscription{key: key, fn: fn, priority: priority, arity: arity, seq: h.seq})
	return nil
}

// AddAction is AddFilter; actions and filters share one table.
func (h *Host) AddAction(name string, key hook.Key, fn hook.Func, priority, arity int) error {
	return h.AddFilter(name, key, fn, priority, arity)
}

// RemoveFilter detaches key at priority and reports whether it was attached.
func (h *Host) RemoveFilter(name string, key hook.Key, priority int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.filters[name]
	for i, sub := range subs {
		if sub.key == key && sub.priority == priority {
			h.filters[name] = append(subs[:i:i], subs[i+1:]...)
			if len(h.filters[name]) == 0 {
				delete(h.filters, name)
			}
			return true
		}
	}
	return false
}

// RemoveAllFilters detaches everything from name.
func (h *Host) RemoveAllFilters(name string) {
	h.mu.Lock()
	delete(h.filters, name)
	h.mu.Unlock()
}

// HasFilter returns the lowest priority key is attached at on name.
func (h *Host) HasFilter(name string, key hook.Key) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	found := false
	best := 0
	for _, sub := range h.filters[name] {
		if sub.key != key {
			continue
		}
		if !found || sub.priority < best {
			best = sub.priority
			found = true
		}
	}
	return best, found
}

// HasAnyFilter reports whether anything is attached to name.
func (h *Host) HasAnyFilter(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.filters[name]) > 0
}

// Hooks returns the names of all hooks with subscriptions, sorted.
func (h *Host) Hooks() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.filters))
	for name := range h.filters {
		out = append(out, name)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Subscription is a read-only view of an attached callback.
type Subscription struct {
	Hook     string
	Key      hook.Key
	Priority int
	Arity    int
}

// Subscriptions lists callbacks on name in dispatch order.
func (h *Host) Subscriptions(name string) []Subscription {
	subs := h.ordered(name)
	out := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, Subscription{Hook: name, Key: sub.key, Priority: sub.priority, Arity: sub.arity})
	}
	return out
}

func (h *Host) ordered(name string) []subscription {
	h.mu.RLock()
	subs := make([]subscription, 0, len(h.filters[name]))
	for _, sub := range h.filters[name] {
		subs = append(subs, *sub)
	}
	h.mu.RUnlock()
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority == subs[j].priority {
			return subs[i].seq < subs[j].seq
		}
		return subs[i].priority < subs[j].priority
	})
	return subs
}

// ApplyFilters runs value through every callback on name. Each callback sees
// the value returned by the previous one as its first argument.
func (h *Host) ApplyFilters(ctx context.Context, name string, value any, args ...any) (any, error) {
	subs := h.ordered(name)
	start := time.Now()
	h.enter(name)
	defer h.leave()

	all := make([]any, 0, len(args)+1)
	all = append(all, value)
	all = append(all, args...)
	var err error
	for _, sub := range subs {
		all[0] = value
		out, cbErr := sub.fn(ctx, truncate(all, sub.arity)...)
		if cbErr != nil {
			err = fmt.Errorf("filter %s: %s: %w", name, sub.key, cbErr)
			break
		}
		value = out
	}
	h.observe(ctx, Dispatch{Kind: "filter", Hook: name, Callbacks: len(subs), Duration: time.Since(start), Err: err})
	return value, err
}

// DoAction runs every callback on name, discarding return values. The first
// callback error stops the run.
func (h *Host) DoAction(ctx context.Context, name string, args ...any) error {
	h.mu.Lock()
	h.didAction[name]++
	h.mu.Unlock()

	subs := h.ordered(name)
	start := time.Now()
	h.enter(name)
	defer h.leave()

	var err error
	for _, sub := range subs {
		if _, cbErr := sub.fn(ctx, truncate(args, sub.arity)...); cbErr != nil {
			err = fmt.Errorf("action %s: %s: %w", name, sub.key, cbErr)
			break
		}
	}
	h.observe(ctx, Dispatch{Kind: "action", Hook: name, Callbacks: len(subs), Duration: time.Since(start), Err: err})
	return err
}

// DidAction returns how many times name has been fired.
func (h *Host) DidAction(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.didAction[name]
}

// CurrentFilter returns the innermost hook being dispatched, if any.
func (h *Host) CurrentFilter() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.current) == 0 {
		return "", false
	}
	return h.current[len(h.current)-1], true
}

func (h *Host) enter(name string) {
	h.mu.Lock()
	h.current = append(h.current, name)
	h.mu.Unlock()
}

func (h *Host) leave() {
	h.mu.Lock()
	if n := len(h.current); n > 0 {
		h.current = h.current[:n-1]
	}
	h.mu.Unlock()
}

func (h *Host) observe(ctx context.Context, d Dispatch) {
	if d.Err != nil {
		h.log.Error(d.Err, "dispatch failed", "kind", d.Kind, "hook", d.Hook)
	}
	if h.observer != nil {
		h.observer.ObserveDispatch(ctx, d)
	}
}

func truncate(args []any, arity int) []any {
	if arity <= 0 {
		return nil
	}
	if arity >= len(args) {
		return args
	}
	return args[:arity]
}
