package core

import (
	"fmt"

	"github.com/go-logr/logr"

	"pluginscaffold/pkg/hook"
)

// Host is the registration surface the subscriber delegates to. Actions and
// filters share one table.
type Host interface {
	AddFilter(name string, key hook.Key, fn hook.Func, priority, arity int) error
	RemoveFilter(name string, key hook.Key, priority int) bool
	HasFilter(name string, key hook.Key) (int, bool)
	AddShortcode(tag string, key hook.Key, fn hook.ShortcodeFunc) error
}

// Subscriber attaches callables to a Host, resolving method callables through
// the registry so every subscription addresses the canonical instance.
type Subscriber struct {
	registry *Registry
	host     Host
	log      logr.Logger
}

// NewSubscriber wires a subscriber to its registry and host.
func NewSubscriber(registry *Registry, host Host, log logr.Logger) *Subscriber {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Subscriber{registry: registry, host: host, log: log}
}

// Registry returns the registry used for resolution.
func (s *Subscriber) Registry() *Registry { return s.registry }

// AddAction hooks cb onto an action. It is AddFilter with the return value
// ignored at dispatch.
func (s *Subscriber) AddAction(name string, cb hook.Callable[hook.Func], opts ...hook.Option) error {
	return s.AddFilter(name, cb, opts...)
}

// RemoveAction detaches cb from an action.
func (s *Subscriber) RemoveAction(name string, cb hook.Callable[hook.Func], opts ...hook.Option) {
	s.RemoveFilter(name, cb, opts...)
}

// HasAction reports the priority cb is attached at.
func (s *Subscriber) HasAction(name string, cb hook.Callable[hook.Func]) (int, bool) {
	return s.HasFilter(name, cb)
}

// AddFilter hooks cb onto a filter. Method callables are bound to the
// canonical instance of their receiver's identity, registering the receiver
// when the identity is new.
func (s *Subscriber) AddFilter(name string, cb hook.Callable[hook.Func], opts ...hook.Option) error {
	o := hook.Apply(opts...)
	key, fn, err := s.bindFunc(cb)
	if err != nil {
		return err
	}
	s.log.V(2).Info("add filter", "hook", name, "callable", key.String(), "priority", o.Priority)
	return s.host.AddFilter(name, key, fn, o.Priority, o.Arity)
}

// RemoveFilter detaches cb. Callables whose identity was never registered are
// removed as given; removing a subscription that does not exist does nothing.
func (s *Subscriber) RemoveFilter(name string, cb hook.Callable[hook.Func], opts ...hook.Option) {
	o := hook.Apply(opts...)
	for _, key := range s.lookupKeys(cb) {
		s.host.RemoveFilter(name, key, o.Priority)
	}
}

// HasFilter reports the priority cb is attached at, resolving through the
// registry first.
func (s *Subscriber) HasFilter(name string, cb hook.Callable[hook.Func]) (int, bool) {
	for _, key := range s.lookupKeys(cb) {
		if p, ok := s.host.HasFilter(name, key); ok {
			return p, true
		}
	}
	return 0, false
}

// AddShortcode registers cb for tag using the same resolution rules as hooks.
func (s *Subscriber) AddShortcode(tag string, cb hook.Callable[hook.ShortcodeFunc]) error {
	var (
		key hook.Key
		fn  hook.ShortcodeFunc
	)
	if cb.HasReceiver() {
		canonical, _ := s.registry.canonicalFor(cb.Receiver(), true)
		bound, ok := cb.Bind(canonical)
		if !ok {
			return fmt.Errorf("%w: %s", ErrIdentityConflict, cb.Owner())
		}
		key, fn = cb.KeyFor(canonical), bound
	} else {
		key, fn = cb.Key(), cb.Func()
	}
	if fn == nil {
		return fmt.Errorf("shortcode %q: nil callback %s", tag, key)
	}
	s.log.V(2).Info("add shortcode", "tag", tag, "callable", key.String())
	return s.host.AddShortcode(tag, key, fn)
}

func (s *Subscriber) bindFunc(cb hook.Callable[hook.Func]) (hook.Key, hook.Func, error) {
	if !cb.HasReceiver() {
		if cb.Func() == nil {
			return hook.Key{}, nil, fmt.Errorf("nil callback %s", cb.Key())
		}
		return cb.Key(), cb.Func(), nil
	}
	canonical, _ := s.registry.canonicalFor(cb.Receiver(), true)
	fn, ok := cb.Bind(canonical)
	if !ok {
		return hook.Key{}, nil, fmt.Errorf("%w: %s", ErrIdentityConflict, cb.Owner())
	}
	if fn == nil {
		return hook.Key{}, nil, fmt.Errorf("nil callback %s", cb.Key())
	}
	return cb.KeyFor(canonical), fn, nil
}

// lookupKeys lists the keys a remove or has query should try, in order.
func (s *Subscriber) lookupKeys(cb hook.Callable[hook.Func]) []hook.Key {
	switch cb.Kind() {
	case hook.KindMethod:
		if canonical, ok := s.registry.canonicalFor(cb.Receiver(), false); ok {
			return []hook.Key{cb.KeyFor(canonical)}
		}
		s.log.V(1).Info("callable receiver not registered, using it as given", "identity", cb.Owner())
		return []hook.Key{cb.Key()}
	case hook.KindStatic:
		if canonical, ok := s.registry.Get(cb.Owner()); ok {
			return []hook.Key{cb.KeyFor(canonical), cb.StaticKey()}
		}
		return []hook.Key{cb.StaticKey()}
	default:
		return []hook.Key{cb.Key()}
	}
}
