package hook

import (
	"context"
	"fmt"
)

// Func is the signature shared by action and filter callbacks. For filters the
// first argument is the value being filtered and the returned value replaces
// it; actions ignore the returned value.
type Func func(ctx context.Context, args ...any) (any, error)

// ShortcodeFunc renders a shortcode occurrence.
type ShortcodeFunc func(ctx context.Context, attrs map[string]string, content, tag string) (string, error)

// Kind distinguishes the callable shapes.
type Kind int

const (
	KindFunction Kind = iota
	KindMethod
	KindStatic
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindStatic:
		return "static"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Key identifies a callable inside a host hook table. Two subscriptions with
// equal keys under the same hook and priority are the same subscription.
type Key struct {
	Function string
	Owner    Identity
	Method   string
	Instance uintptr
}

// IsZero reports whether the key identifies nothing.
func (k Key) IsZero() bool { return k == Key{} }

func (k Key) String() string {
	switch {
	case k.Function != "":
		return k.Function
	case k.Instance != 0:
		return fmt.Sprintf("%s(%#x)->%s", k.Owner, k.Instance, k.Method)
	default:
		return string(k.Owner) + "::" + k.Method
	}
}

// Callable is something that can be attached to a hook. F is Func for actions
// and filters, ShortcodeFunc for shortcodes.
type Callable[F any] struct {
	kind  Kind
	name  string
	owner Identity
	recv  any
	bind  func(any) (F, bool)
	fn    F
}

// Function wraps a free function under a stable name.
func Function[F any](name string, fn F) Callable[F] {
	return Callable[F]{kind: KindFunction, name: name, fn: fn}
}

// Method describes method on recv. bind produces the closure for whichever
// instance the subscriber decides is canonical for recv's identity.
func Method[T any, F any](recv T, method string, bind func(T) F) Callable[F] {
	return Callable[F]{
		kind:  KindMethod,
		name:  method,
		owner: IdentityOf(recv),
		recv:  recv,
		bind: func(v any) (F, bool) {
			typed, ok := v.(T)
			if !ok {
				var zero F
				return zero, false
			}
			return bind(typed), true
		},
	}
}

// Static describes a method addressed by identity only, without an instance.
func Static[F any](owner Identity, method string, fn F) Callable[F] {
	return Callable[F]{kind: KindStatic, name: method, owner: owner, fn: fn}
}

// Ref addresses owner's method for removal or lookup. It cannot be subscribed.
func Ref[F any](owner Identity, method string) Callable[F] {
	return Callable[F]{kind: KindStatic, name: method, owner: owner}
}

// Kind reports how the callable was built.
func (c Callable[F]) Kind() Kind { return c.kind }

// Name returns the function or method name.
func (c Callable[F]) Name() string { return c.name }

// Owner returns the identity of a static or referenced method's owner.
func (c Callable[F]) Owner() Identity { return c.owner }

// Receiver returns the instance a method callable was built with.
func (c Callable[F]) Receiver() any { return c.recv }

// Func returns the bound function, zero for methods and references.
func (c Callable[F]) Func() F { return c.fn }

// HasReceiver reports whether the callable is a method with a receiver.
func (c Callable[F]) HasReceiver() bool { return c.kind == KindMethod && c.recv != nil }

// Bind produces the closure for instance. It reports false when instance is not
// of the receiver's type or the callable is not a method.
func (c Callable[F]) Bind(instance any) (F, bool) {
	if c.bind == nil {
		var zero F
		return zero, false
	}
	return c.bind(instance)
}

// Key returns the key of the callable as given, using the receiver it was
// built with.
func (c Callable[F]) Key() Key {
	switch c.kind {
	case KindFunction:
		return Key{Function: c.name}
	case KindMethod:
		return c.KeyFor(c.recv)
	default:
		return Key{Owner: c.owner, Method: c.name}
	}
}

// KeyFor returns the key the callable has when bound to instance.
func (c Callable[F]) KeyFor(instance any) Key {
	return Key{Owner: c.owner, Method: c.name, Instance: addressOf(instance)}
}

// StaticKey returns the identity-only key for the owner and method.
func (c Callable[F]) StaticKey() Key {
	return Key{Owner: c.owner, Method: c.name}
}

func (c Callable[F]) String() string {
	return c.Key().String()
}
