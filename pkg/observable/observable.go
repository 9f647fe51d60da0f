package observable

import "reflect"

// Kind identifies the variant of an observable.
type Kind string

const (
	KindWritable   Kind = "writable"
	KindConstant   Kind = "constant"
	KindComputed   Kind = "computed"
	KindDuplexing  Kind = "duplexing"
	KindDecorating Kind = "decorating"
	KindDetail     Kind = "detail"
)

// Observable holds the capabilities shared by every observable, independent
// of its value type.
type Observable interface {
	ID() uint64
	Name() string
	Kind() Kind
	Realm() *Realm

	// IsStale reports whether the value is known to be out of date, for
	// example while an upstream source is still loading.
	IsStale() bool

	IsDisposed() bool

	// Dispose detaches the observable from everything it listens to and
	// clears its listeners. Calling it twice is a no-op.
	Dispose()

	AddChangeListener(l ChangeListener) Subscription
	RemoveChangeListener(l ChangeListener)
	AddStaleListener(l StaleListener) Subscription
	RemoveStaleListener(l StaleListener)
	AddDisposeListener(l DisposeListener) Subscription
	RemoveDisposeListener(l DisposeListener)
}

// Readable is a value that can be read.
type Readable[T any] interface {
	Get() T

	// ValueType is the type token of the value.
	ValueType() reflect.Type
}

// Writable is a value that accepts writes. Read-only variants return
// ErrUnsupportedOperation.
type Writable[T any] interface {
	Set(value T) error
}

// ChangeNotifying reports committed value transitions.
type ChangeNotifying[T any] interface {
	AddValueChangeListener(l ValueChangeListener[T]) Subscription
	RemoveValueChangeListener(l ValueChangeListener[T])
}

// Vetoable lets listeners reject proposed writes before they commit.
type Vetoable[T any] interface {
	AddValueChangingListener(l ValueChangingListener[T]) Subscription
	RemoveValueChangingListener(l ValueChangingListener[T])
}

// Value is the full observable value contract implemented by every variant.
type Value[T any] interface {
	Observable
	Readable[T]
	Writable[T]
	ChangeNotifying[T]
	Vetoable[T]
}

var (
	_ Value[int] = (*WritableValue[int])(nil)
	_ Value[int] = (*ConstantValue[int])(nil)
	_ Value[int] = (*DecoratingValue[int])(nil)
	_ Value[int] = (*DuplexingValue[int])(nil)
	_ Value[int] = (*ComputedValue[int])(nil)
	_ Value[int] = (*DetailValue[string, int])(nil)
)
