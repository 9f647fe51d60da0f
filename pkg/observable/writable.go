package observable

// WritableValue is a mutable observable cell.
//
// Set proposes the new value to every changing listener; if none vetoes, the
// value is stored and change listeners receive the diff. Writing a value
// equal to the current one does nothing.
type WritableValue[T any] struct {
	valueSupport[T]

	value T
	stale bool
}

// NewWritableValue creates a writable value holding initial.
func NewWritableValue[T any](initial T, opts ...Option) *WritableValue[T] {
	w := &WritableValue[T]{value: initial}
	w.valueSupport = newValueSupport[T](KindWritable, w, nil, opts)
	return w
}

// Get returns the current value, or the zero value once disposed.
func (w *WritableValue[T]) Get() T {
	w.checkRealm("Get")
	if w.disposed {
		var zero T
		return zero
	}
	return w.value
}

// Set requests value as the new value. It returns an error wrapping
// ErrChangeVetoed when a changing listener vetoed, or ErrDisposed.
func (w *WritableValue[T]) Set(value T) error {
	w.checkRealm("Set")
	done := w.realm.startSet(w)

	if w.disposed {
		err := w.disposedError()
		done(SetFailed, err)
		return err
	}
	if w.equals(w.value, value) {
		done(SetUnchanged, nil)
		return nil
	}

	diff := NewDiff(w.value, value)
	if err := w.propose(diff); err != nil {
		done(SetVetoed, err)
		return err
	}

	w.value = value
	w.fireValueChange(diff)
	done(SetCommitted, nil)
	return nil
}

// Update sets the value to fn applied to the current value.
func (w *WritableValue[T]) Update(fn func(T) T) error {
	return w.Set(fn(w.Get()))
}

// IsStale reports the staleness set with SetStale.
func (w *WritableValue[T]) IsStale() bool {
	w.checkRealm("IsStale")
	return !w.disposed && w.stale
}

// SetStale marks the value stale or fresh. Becoming stale notifies stale
// listeners; becoming fresh again fires a value change with equal old and
// new values so dependents re-read.
func (w *WritableValue[T]) SetStale(stale bool) {
	w.checkRealm("SetStale")
	if w.disposed || w.stale == stale {
		return
	}
	w.stale = stale
	if stale {
		w.fireStale()
		return
	}
	w.fireValueChange(NewDiff(w.value, w.value))
}

// Dispose releases the value and its listeners.
func (w *WritableValue[T]) Dispose() {
	w.checkRealm("Dispose")
	w.disposeValue()
}
