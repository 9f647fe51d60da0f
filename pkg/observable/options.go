package observable

// Option configures an observable at construction.
type Option func(*options)

type options struct {
	name  string
	realm *Realm
	equal any
}

// WithName names the observable for errors, logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithRealm binds the observable to r instead of the default realm.
func WithRealm(r *Realm) Option {
	return func(o *options) {
		o.realm = r
	}
}

// WithEquals sets the equality function used to detect unchanged writes and
// unchanged derived values. The function's type must match the value type.
func WithEquals[T any](fn func(a, b T) bool) Option {
	return func(o *options) {
		o.equal = fn
	}
}

func buildOptions(fallback *Realm, opts []Option) options {
	o := options{realm: fallback}
	for _, opt := range opts {
		opt(&o)
	}
	if o.realm == nil {
		o.realm = DefaultRealm()
	}
	return o
}
