package observable

// ConstantValue is a read-only observable that never changes.
type ConstantValue[T any] struct {
	valueSupport[T]

	value T
}

// NewConstantValue creates a constant observable.
func NewConstantValue[T any](value T, opts ...Option) *ConstantValue[T] {
	c := &ConstantValue[T]{value: value}
	c.valueSupport = newValueSupport[T](KindConstant, c, nil, opts)
	return c
}

// Get returns the constant, or the zero value once disposed.
func (c *ConstantValue[T]) Get() T {
	c.checkRealm("Get")
	if c.disposed {
		var zero T
		return zero
	}
	return c.value
}

// Set always fails with ErrUnsupportedOperation (ErrDisposed once disposed).
func (c *ConstantValue[T]) Set(T) error {
	c.checkRealm("Set")
	done := c.realm.startSet(c)
	err := c.unsupportedError()
	if c.disposed {
		err = c.disposedError()
	}
	done(SetFailed, err)
	return err
}

// IsStale is always false.
func (c *ConstantValue[T]) IsStale() bool { return false }

// Dispose releases the listeners.
func (c *ConstantValue[T]) Dispose() {
	c.disposeValue()
}
