// Package hook defines the vocabulary shared by extensions and hosts: the
// identity of an extension, the callables that can be attached to a named hook
// and the options that control a subscription.
//
// A callable is one of three shapes:
//
//	hook.Function("render_footer", fn)                  // free function, keyed by name
//	hook.Method(admin, "EnqueueStyles", (*Admin).hooks) // bound to an extension instance
//	hook.Static(identity, "Flush", fn)                  // identity + method without an instance
//
// Method callables carry a bind function instead of a ready closure. The
// subscriber resolves the canonical instance for the receiver's identity and
// binds the closure to it exactly once, at subscription time.
package hook
