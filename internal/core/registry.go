package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"pluginscaffold/pkg/hook"
)

// WiringState tracks whether an identity's hooks have been attached.
type WiringState int

const (
	// Unwired means an instance exists but its extension points have not run.
	Unwired WiringState = iota
	// Wiring means extension points are running.
	Wiring
	// Wired means all extension points returned successfully.
	Wired
)

func (s WiringState) String() string {
	switch s {
	case Unwired:
		return "unwired"
	case Wiring:
		return "wiring"
	case Wired:
		return "wired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrUnknownIdentity is returned when an identity has neither an instance
	// nor a factory to construct one.
	ErrUnknownIdentity = errors.New("core: unknown extension identity")
	// ErrIdentityConflict is returned when the canonical instance for an
	// identity cannot serve a callable bound to another type.
	ErrIdentityConflict = errors.New("core: identity bound to a different type")
)

// Factory constructs the default instance for an identity.
type Factory func() (any, error)

type registryEntry struct {
	instance any
	state    WiringState
}

// Registry keeps one canonical instance per extension identity.
type Registry struct {
	mu        sync.RWMutex
	entries   map[hook.Identity]*registryEntry
	factories map[hook.Identity]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:   make(map[hook.Identity]*registryEntry),
		factories: make(map[hook.Identity]Factory),
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, creating it on first use.
// Framework code receives its registry through Runtime instead.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Provide makes id constructible by RegisterOrGet.
func (r *Registry) Provide(id hook.Identity, factory Factory) {
	if id == "" || factory == nil {
		return
	}
	r.mu.Lock()
	r.factories[id] = factory
	r.mu.Unlock()
}

// RegisterOrGet returns the canonical instance for id, constructing it through
// the provided factory when absent. The factory runs without the lock held so
// it may itself register instances.
func (r *Registry) RegisterOrGet(id hook.Identity) (any, error) {
	r.mu.RLock()
	if e, ok := r.entries[id]; ok {
		r.mu.RUnlock()
		return e.instance, nil
	}
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIdentity, id)
	}
	instance, err := factory()
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", id, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: factory for %s returned nil", ErrUnknownIdentity, id)
	}
	return r.insert(id, instance), nil
}

// RegisterInstance stores instance under its identity unless one is already
// present, and returns whichever instance is canonical.
func (r *Registry) RegisterInstance(instance any) any {
	if instance == nil {
		return nil
	}
	return r.insert(hook.IdentityOf(instance), instance)
}

func (r *Registry) insert(id hook.Identity, instance any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.instance
	}
	r.entries[id] = &registryEntry{instance: instance, state: Unwired}
	return instance
}

// IsRegistered reports whether an instance exists for id.
func (r *Registry) IsRegistered(id hook.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// IsRegisteredInstance reports whether v is the canonical instance for its
// identity.
func (r *Registry) IsRegisteredInstance(v any) bool {
	if v == nil {
		return false
	}
	canonical, ok := r.Get(hook.IdentityOf(v))
	if !ok {
		return false
	}
	return sameInstance(canonical, v)
}

// Get returns the canonical instance for id.
func (r *Registry) Get(id hook.Identity) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.instance, true
}

// State returns the wiring state for id. Absent identities report Unwired.
func (r *Registry) State(id hook.Identity) WiringState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.state
	}
	return Unwired
}

// Len returns the number of canonical instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Identities returns registered identities in lexical order.
func (r *Registry) Identities() []hook.Identity {
	r.mu.RLock()
	out := make([]hook.Identity, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// claimWiring inserts instance if its identity is absent and moves the entry
// from Unwired to Wiring. It returns the canonical instance and whether the
// caller now owns wiring.
func (r *Registry) claimWiring(instance any) (any, bool) {
	id := hook.IdentityOf(instance)
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &registryEntry{instance: instance, state: Unwired}
		r.entries[id] = e
	}
	if e.state != Unwired {
		return e.instance, false
	}
	e.state = Wiring
	return e.instance, true
}

func (r *Registry) finishWiring(id hook.Identity, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	if err != nil {
		e.state = Unwired
		return
	}
	e.state = Wired
}

// canonicalFor resolves the canonical instance for a callable receiver.
// register controls whether an unknown receiver becomes canonical.
func (r *Registry) canonicalFor(recv any, register bool) (any, bool) {
	if register {
		return r.RegisterInstance(recv), true
	}
	return r.Get(hook.IdentityOf(recv))
}

// sameInstance compares by identity; non-comparable values are never the same.
func sameInstance(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
