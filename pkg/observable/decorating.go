package observable

import "reflect"

// DecoratingValue forwards to a decorated value and re-fires its events with
// itself as the source. It subscribes to the decorated value only while it
// has listeners of its own.
//
// Writes are first proposed to the decorator's own changing listeners, then
// forwarded, so the decorated value may veto as well.
type DecoratingValue[T any] struct {
	valueSupport[T]

	decorated        Value[T]
	disposeDecorated bool
	readOnly         bool

	upstream         []Subscription
	decoratedDispose Subscription
}

// NewDecoratingValue wraps decorated. When disposeDecorated is true,
// disposing the decorator also disposes decorated; otherwise decorated is
// shared and left alone. The decorator uses decorated's realm unless
// WithRealm is given.
func NewDecoratingValue[T any](decorated Value[T], disposeDecorated bool, opts ...Option) *DecoratingValue[T] {
	d := &DecoratingValue[T]{
		decorated:        decorated,
		disposeDecorated: disposeDecorated,
	}
	d.valueSupport = newValueSupport[T](KindDecorating, d, decorated.Realm(), opts)
	d.onFirst = d.subscribeUpstream
	d.onLast = d.unsubscribeUpstream

	d.decoratedDispose = decorated.AddDisposeListener(DisposeFunc(func(*DisposeEvent) {
		d.Dispose()
	}))
	return d
}

// ReadOnly returns a decorator over v whose Set fails with
// ErrUnsupportedOperation. Disposing it leaves v alone.
func ReadOnly[T any](v Value[T], opts ...Option) *DecoratingValue[T] {
	d := NewDecoratingValue(v, false, opts...)
	d.readOnly = true
	return d
}

// Decorated returns the wrapped value.
func (d *DecoratingValue[T]) Decorated() Value[T] {
	return d.decorated
}

// Get returns the decorated value's current value.
func (d *DecoratingValue[T]) Get() T {
	d.checkRealm("Get")
	if d.disposed {
		var zero T
		return zero
	}
	return d.decorated.Get()
}

// Set proposes value to the decorator's changing listeners and forwards it.
func (d *DecoratingValue[T]) Set(value T) error {
	d.checkRealm("Set")
	done := d.realm.startSet(d)

	switch {
	case d.disposed:
		err := d.disposedError()
		done(SetFailed, err)
		return err
	case d.readOnly:
		err := d.unsupportedError()
		done(SetFailed, err)
		return err
	}

	old := d.decorated.Get()
	if d.equals(old, value) {
		done(SetUnchanged, nil)
		return nil
	}
	if err := d.propose(NewDiff(old, value)); err != nil {
		done(SetVetoed, err)
		return err
	}
	err := d.decorated.Set(value)
	done(outcomeOf(err), err)
	return err
}

// ValueType returns the decorated value's type token.
func (d *DecoratingValue[T]) ValueType() reflect.Type {
	return d.decorated.ValueType()
}

// IsStale forwards to the decorated value.
func (d *DecoratingValue[T]) IsStale() bool {
	d.checkRealm("IsStale")
	return !d.disposed && d.decorated.IsStale()
}

// Dispose releases the decorator, and the decorated value when owned.
func (d *DecoratingValue[T]) Dispose() {
	d.checkRealm("Dispose")
	if !d.disposeValue() {
		return
	}
	d.decoratedDispose.Remove()
	if d.disposeDecorated {
		d.decorated.Dispose()
	}
}

func (d *DecoratingValue[T]) subscribeUpstream() {
	d.upstream = []Subscription{
		d.decorated.AddValueChangeListener(ValueChangeFunc[T](func(ev *ValueChangeEvent[T]) {
			d.fireValueChange(ev.Diff)
		})),
		d.decorated.AddStaleListener(StaleFunc(func(*StaleEvent) {
			d.fireStale()
		})),
	}
}

func (d *DecoratingValue[T]) unsubscribeUpstream() {
	for _, sub := range d.upstream {
		sub.Remove()
	}
	d.upstream = nil
}
