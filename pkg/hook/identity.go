package hook

import "reflect"

// Identity is the stable tag under which a single canonical extension
// instance is kept.
type Identity string

// Identifier lets a type choose its own identity instead of the
// package-qualified type name.
type Identifier interface {
	Identity() Identity
}

// IdentityOf derives the identity of v. Pointer and value receivers of the same
// named type share one identity.
func IdentityOf(v any) Identity {
	if v == nil {
		return ""
	}
	if id, ok := v.(Identifier); ok {
		return id.Identity()
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return Identity(t.String())
	}
	return Identity(t.PkgPath() + "." + t.Name())
}

// IdentityFor returns the type-derived identity of T without needing a value.
// It does not consult Identifier.
func IdentityFor[T any]() Identity {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return Identity(t.String())
	}
	return Identity(t.PkgPath() + "." + t.Name())
}

// addressOf returns the address of a pointer-like receiver, zero otherwise.
func addressOf(v any) uintptr {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice:
		if rv.IsNil() {
			return 0
		}
		return rv.Pointer()
	default:
		return 0
	}
}
