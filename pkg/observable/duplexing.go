package observable

import (
	"errors"
	"slices"
)

// DuplexingValue is a single logical value coalesced from a list of child
// values, for example the common font of several selected items.
//
// Without listeners, Get recomputes from the children on every call. With
// listeners, the value is cached and a dirty flag marks when it must be
// recomputed. Set writes the same value into every child and fires one
// consolidated change event.
type DuplexingValue[T any] struct {
	valueSupport[T]

	children []Value[T]
	coalesce func(values []T) T

	childSubs []duplexChildSub[T]

	cached      T
	cachedStale bool
	dirty       bool

	// updating is set while Set broadcasts to the children so their change
	// events do not mark the cache dirty again.
	updating bool
}

type duplexChildSub[T any] struct {
	child  Value[T]
	change Subscription
	stale  Subscription
}

// NewDuplexingValue creates a value coalescing children with coalesce.
// Panics from coalesce propagate to the caller of Get.
func NewDuplexingValue[T any](children []Value[T], coalesce func(values []T) T, opts ...Option) *DuplexingValue[T] {
	d := &DuplexingValue[T]{
		children: slices.Clone(children),
		coalesce: coalesce,
		dirty:    true,
	}
	var fallback *Realm
	if len(children) > 0 {
		fallback = children[0].Realm()
	}
	d.valueSupport = newValueSupport[T](KindDuplexing, d, fallback, opts)
	d.onFirst = d.subscribeChildren
	d.onLast = d.unsubscribeChildren
	return d
}

// NewDuplexingValueWithDefaults creates a duplexing value that yields empty
// when there are no children, the children's common value when they all
// agree, and multi when they differ.
func NewDuplexingValueWithDefaults[T any](children []Value[T], empty, multi T, opts ...Option) *DuplexingValue[T] {
	d := NewDuplexingValue[T](children, nil, opts...)
	d.coalesce = func(values []T) T {
		if len(values) == 0 {
			return empty
		}
		first := values[0]
		for _, v := range values[1:] {
			if !d.equals(first, v) {
				return multi
			}
		}
		return first
	}
	return d
}

// Get returns the coalesced value.
func (d *DuplexingValue[T]) Get() T {
	d.checkRealm("Get")
	if d.disposed {
		var zero T
		return zero
	}
	if !d.hasListeners() {
		value, _ := d.compute()
		return value
	}
	d.refresh()
	return d.cached
}

// Set writes value into every child. Every child is attempted; their errors
// are joined. Listeners receive one change event if the coalesced value
// changed.
func (d *DuplexingValue[T]) Set(value T) error {
	d.checkRealm("Set")
	done := d.realm.startSet(d)
	if d.disposed {
		err := d.disposedError()
		done(SetFailed, err)
		return err
	}

	old := d.Get()
	if err := d.propose(NewDiff(old, value)); err != nil {
		done(SetVetoed, err)
		return err
	}

	wasUpdating := d.updating
	d.updating = true
	var errs []error
	for _, child := range slices.Clone(d.children) {
		if err := child.Set(value); err != nil {
			errs = append(errs, err)
		}
	}
	d.updating = wasUpdating
	d.dirty = true

	if d.hasListeners() {
		d.refresh()
		if !d.equals(old, d.cached) {
			d.fireValueChange(NewDiff(old, d.cached))
		}
	}

	err := errors.Join(errs...)
	done(outcomeOf(err), err)
	return err
}

// IsStale reports whether any child is stale.
func (d *DuplexingValue[T]) IsStale() bool {
	d.checkRealm("IsStale")
	if d.disposed {
		return false
	}
	if !d.hasListeners() {
		return d.childrenStale()
	}
	d.refresh()
	return d.cachedStale
}

// Children returns a copy of the child list.
func (d *DuplexingValue[T]) Children() []Value[T] {
	return slices.Clone(d.children)
}

// AddChild appends child. Listeners are notified as for a child change.
func (d *DuplexingValue[T]) AddChild(child Value[T]) {
	d.checkRealm("AddChild")
	if d.disposed {
		return
	}
	d.children = append(d.children, child)
	if d.childSubs != nil {
		d.childSubs = append(d.childSubs, d.subscribeChild(child))
	}
	d.childChanged()
}

// RemoveChild removes the first occurrence of child. It reports whether the
// child was present.
func (d *DuplexingValue[T]) RemoveChild(child Value[T]) bool {
	d.checkRealm("RemoveChild")
	if d.disposed {
		return false
	}
	i := slices.Index(d.children, child)
	if i < 0 {
		return false
	}
	d.children = slices.Delete(d.children, i, i+1)
	for j, sub := range d.childSubs {
		if sub.child == child {
			sub.change.Remove()
			sub.stale.Remove()
			d.childSubs = slices.Delete(d.childSubs, j, j+1)
			break
		}
	}
	d.childChanged()
	return true
}

// Dispose releases the value. Children are not disposed.
func (d *DuplexingValue[T]) Dispose() {
	d.checkRealm("Dispose")
	d.disposeValue()
}

// compute coalesces the current child values and reports their staleness.
func (d *DuplexingValue[T]) compute() (T, bool) {
	values := make([]T, len(d.children))
	stale := false
	for i, child := range d.children {
		values[i] = child.Get()
		if child.IsStale() {
			stale = true
		}
	}
	d.realm.recomputed(d)
	return d.coalesce(values), stale
}

func (d *DuplexingValue[T]) refresh() {
	if !d.dirty {
		return
	}
	d.cached, d.cachedStale = d.compute()
	d.dirty = false
}

// childChanged marks the cache dirty. On the clean to dirty transition, and
// when listeners exist, it fires a change whose new value is only computed
// when a listener asks for it. Further child changes stay silent until the
// value is read again, so every event's old value is the last value read.
func (d *DuplexingValue[T]) childChanged() {
	if d.updating || d.disposed {
		return
	}
	wasDirty := d.dirty
	d.dirty = true
	if wasDirty || !d.hasListeners() {
		return
	}
	d.fireValueChange(NewLazyDiff(d.cached, d.Get))
}

// childStale refreshes the cached staleness without dirtying the value.
func (d *DuplexingValue[T]) childStale() {
	if d.updating || d.disposed {
		return
	}
	if !d.dirty {
		d.cachedStale = d.childrenStale()
	}
	d.fireStale()
}

func (d *DuplexingValue[T]) childrenStale() bool {
	for _, child := range d.children {
		if child.IsStale() {
			return true
		}
	}
	return false
}

func (d *DuplexingValue[T]) subscribeChild(child Value[T]) duplexChildSub[T] {
	return duplexChildSub[T]{
		child: child,
		change: child.AddValueChangeListener(ValueChangeFunc[T](func(*ValueChangeEvent[T]) {
			d.childChanged()
		})),
		stale: child.AddStaleListener(StaleFunc(func(*StaleEvent) {
			d.childStale()
		})),
	}
}

func (d *DuplexingValue[T]) subscribeChildren() {
	d.childSubs = make([]duplexChildSub[T], 0, len(d.children))
	for _, child := range d.children {
		d.childSubs = append(d.childSubs, d.subscribeChild(child))
	}
	d.dirty = true
	d.refresh()
}

func (d *DuplexingValue[T]) unsubscribeChildren() {
	for _, sub := range d.childSubs {
		sub.change.Remove()
		sub.stale.Remove()
	}
	d.childSubs = nil
	d.dirty = true
}
