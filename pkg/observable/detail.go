package observable

import (
	"errors"
	"reflect"
)

// DetailValue follows a master value: for each master value the factory
// builds the child observable whose value DetailValue exposes. When the
// master changes, the previous child is disposed and a new one is built.
//
// The factory must return a fresh observable on each call because
// DetailValue owns and disposes it. Wrap shared observables with
// NewDecoratingValue(shared, false) to keep them alive.
type DetailValue[M, T any] struct {
	valueSupport[T]

	master    Value[M]
	factory   func(M) (Value[T], error)
	masterSub Subscription

	child     Value[T]
	childSubs []Subscription

	// err is the binding error of the last rebuild, nil while bound.
	err error
}

// NewDetailValue builds the child for master's current value. A factory
// failure is returned as an error wrapping ErrBinding. Later failures, when
// the master changes, are logged on the realm and leave the detail unbound
// until the next successful rebuild; see Err.
func NewDetailValue[M, T any](master Value[M], factory func(M) (Value[T], error), opts ...Option) (*DetailValue[M, T], error) {
	d := &DetailValue[M, T]{
		master:  master,
		factory: factory,
	}
	d.valueSupport = newValueSupport[T](KindDetail, d, master.Realm(), opts)
	d.onFirst = d.subscribeChild
	d.onLast = d.unsubscribeChild

	child, err := buildChild(factory, master.Get())
	if err != nil {
		return nil, newErrorCause(CodeBinding, ErrBinding, err, master)
	}
	d.child = child

	d.masterSub = master.AddValueChangeListener(ValueChangeFunc[M](func(ev *ValueChangeEvent[M]) {
		d.rebuild(ev.Diff.NewValue())
	}))
	return d, nil
}

// Err returns the error of the last failed rebuild, or nil while bound.
func (d *DetailValue[M, T]) Err() error {
	return d.err
}

// Child returns the current child observable, or nil while unbound.
func (d *DetailValue[M, T]) Child() Value[T] {
	return d.child
}

// Get returns the child's value, or the zero value while unbound.
func (d *DetailValue[M, T]) Get() T {
	d.checkRealm("Get")
	if d.disposed || d.child == nil {
		var zero T
		return zero
	}
	return d.child.Get()
}

// Set proposes value to the detail's changing listeners and writes it into
// the child. While unbound it returns the binding error.
func (d *DetailValue[M, T]) Set(value T) error {
	d.checkRealm("Set")
	done := d.realm.startSet(d)

	switch {
	case d.disposed:
		err := d.disposedError()
		done(SetFailed, err)
		return err
	case d.child == nil:
		done(SetFailed, d.err)
		return d.err
	}

	old := d.child.Get()
	if d.equals(old, value) {
		done(SetUnchanged, nil)
		return nil
	}
	if err := d.propose(NewDiff(old, value)); err != nil {
		done(SetVetoed, err)
		return err
	}
	err := d.child.Set(value)
	done(outcomeOf(err), err)
	return err
}

// ValueType returns the type token of T.
func (d *DetailValue[M, T]) ValueType() reflect.Type {
	return d.valueType
}

// IsStale reports whether the master or the child is stale.
func (d *DetailValue[M, T]) IsStale() bool {
	d.checkRealm("IsStale")
	if d.disposed {
		return false
	}
	if d.master.IsStale() {
		return true
	}
	return d.child != nil && d.child.IsStale()
}

// Dispose releases the detail and the current child. The master is left alone.
func (d *DetailValue[M, T]) Dispose() {
	d.checkRealm("Dispose")
	if !d.disposeValue() {
		return
	}
	d.masterSub.Remove()
	if d.child != nil {
		d.child.Dispose()
		d.child = nil
	}
}

func (d *DetailValue[M, T]) rebuild(masterValue M) {
	if d.disposed {
		return
	}
	old := d.Get()
	subscribed := d.hasListeners()
	if subscribed {
		d.unsubscribeChild()
	}
	if d.child != nil {
		d.child.Dispose()
		d.child = nil
	}

	child, err := buildChild(d.factory, masterValue)
	if err != nil {
		d.err = newErrorCause(CodeBinding, ErrBinding, err, d)
		d.realm.Logger().Error("detail value rebuild failed",
			"observable", describe(d),
			"error", err,
		)
	} else {
		d.err = nil
		d.child = child
	}

	if subscribed {
		d.subscribeChild()
		if value := d.Get(); !d.equals(old, value) {
			d.fireValueChange(NewDiff(old, value))
		}
	}
}

func (d *DetailValue[M, T]) subscribeChild() {
	if d.child == nil {
		return
	}
	d.childSubs = []Subscription{
		d.child.AddValueChangeListener(ValueChangeFunc[T](func(ev *ValueChangeEvent[T]) {
			d.fireValueChange(ev.Diff)
		})),
		d.child.AddStaleListener(StaleFunc(func(*StaleEvent) {
			d.fireStale()
		})),
	}
}

func (d *DetailValue[M, T]) unsubscribeChild() {
	for _, sub := range d.childSubs {
		sub.Remove()
	}
	d.childSubs = nil
}

var errNoChild = errors.New("factory returned no child")

// buildChild calls factory and treats a nil child as a failure.
func buildChild[M, T any](factory func(M) (Value[T], error), value M) (Value[T], error) {
	child, err := factory(value)
	if err == nil && child == nil {
		err = errNoChild
	}
	return child, err
}
