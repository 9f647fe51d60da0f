package observable

import "slices"

// ComputedValue is a read-only value derived from a function of other
// observables. It follows the same caching policy as DuplexingValue: no
// caching without listeners, a dirty-flag cache with listeners.
type ComputedValue[T any] struct {
	valueSupport[T]

	compute func() T
	deps    []Observable
	depSubs []Subscription

	cached T
	dirty  bool
}

// NewComputedValue creates a value computed by compute. deps are the
// observables compute reads; a change to any of them invalidates the value.
func NewComputedValue[T any](compute func() T, deps []Observable, opts ...Option) *ComputedValue[T] {
	c := &ComputedValue[T]{
		compute: compute,
		deps:    slices.Clone(deps),
		dirty:   true,
	}
	var fallback *Realm
	if len(deps) > 0 {
		fallback = deps[0].Realm()
	}
	c.valueSupport = newValueSupport[T](KindComputed, c, fallback, opts)
	c.onFirst = c.subscribeDeps
	c.onLast = c.unsubscribeDeps
	return c
}

// Get returns the computed value.
func (c *ComputedValue[T]) Get() T {
	c.checkRealm("Get")
	if c.disposed {
		var zero T
		return zero
	}
	if !c.hasListeners() {
		return c.recompute()
	}
	if c.dirty {
		c.cached = c.recompute()
		c.dirty = false
	}
	return c.cached
}

// Set always fails with ErrUnsupportedOperation (ErrDisposed once disposed).
func (c *ComputedValue[T]) Set(T) error {
	c.checkRealm("Set")
	done := c.realm.startSet(c)
	err := c.unsupportedError()
	if c.disposed {
		err = c.disposedError()
	}
	done(SetFailed, err)
	return err
}

// IsStale reports whether any dependency is stale.
func (c *ComputedValue[T]) IsStale() bool {
	c.checkRealm("IsStale")
	if c.disposed {
		return false
	}
	for _, dep := range c.deps {
		if dep.IsStale() {
			return true
		}
	}
	return false
}

// Dispose releases the value. Dependencies are not disposed.
func (c *ComputedValue[T]) Dispose() {
	c.checkRealm("Dispose")
	c.disposeValue()
}

func (c *ComputedValue[T]) recompute() T {
	c.realm.recomputed(c)
	return c.compute()
}

// depChanged fires on the clean to dirty transition only; see
// DuplexingValue.childChanged.
func (c *ComputedValue[T]) depChanged() {
	if c.disposed {
		return
	}
	wasDirty := c.dirty
	c.dirty = true
	if wasDirty || !c.hasListeners() {
		return
	}
	c.fireValueChange(NewLazyDiff(c.cached, c.Get))
}

func (c *ComputedValue[T]) subscribeDeps() {
	c.depSubs = make([]Subscription, 0, 2*len(c.deps))
	for _, dep := range c.deps {
		c.depSubs = append(c.depSubs,
			dep.AddChangeListener(ChangeFunc(func(*ChangeEvent) {
				c.depChanged()
			})),
			dep.AddStaleListener(StaleFunc(func(*StaleEvent) {
				c.fireStale()
			})),
		)
	}
	c.cached = c.recompute()
	c.dirty = false
}

func (c *ComputedValue[T]) unsubscribeDeps() {
	for _, sub := range c.depSubs {
		sub.Remove()
	}
	c.depSubs = nil
	c.dirty = true
}
