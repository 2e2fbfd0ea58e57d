package hook

const (
	// DefaultPriority is used when a subscription names no priority.
	DefaultPriority = 10
	// DefaultArity is the number of arguments a callback receives by default.
	DefaultArity = 1
)

// Options control a single subscription.
type Options struct {
	Priority int
	Arity    int
}

// Option mutates Options.
type Option func(*Options)

// Priority sets the order in which the callback runs; lower runs first.
func Priority(p int) Option { return func(o *Options) { o.Priority = p } }

// Arity sets how many dispatch arguments the callback receives.
func Arity(n int) Option { return func(o *Options) { o.Arity = n } }

// Apply folds opts over the defaults.
func Apply(opts ...Option) Options {
	o := Options{Priority: DefaultPriority, Arity: DefaultArity}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
