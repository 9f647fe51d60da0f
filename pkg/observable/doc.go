// Package observable provides observable values: mutable cells that notify
// registered listeners when they change, with vetoable writes, values derived
// from several children, and pass-through decorators.
//
// # Core Types
//
// WritableValue[T] is a mutable observable cell:
//
//	count := observable.NewWritableValue(0)
//	count.AddValueChangeListener(observable.ValueChangeFunc[int](func(ev *observable.ValueChangeEvent[int]) {
//	    fmt.Println(ev.Diff.OldValue(), "->", ev.Diff.NewValue())
//	}))
//	_ = count.Set(5) // prints "0 -> 5"
//
// Changing listeners run before a write is committed and may veto it:
//
//	count.AddValueChangingListener(observable.ValueChangingFunc[int](func(ev *observable.ValueChangingEvent[int]) {
//	    if ev.Diff.NewValue() < 0 {
//	        ev.Veto = true
//	    }
//	}))
//	err := count.Set(-1) // errors.Is(err, observable.ErrChangeVetoed)
//
// DuplexingValue[T] coalesces several child values into one logical value and
// broadcasts writes back to every child:
//
//	fonts := observable.NewDuplexingValueWithDefaults(children, "", "<multiple>")
//	fonts.Get()          // common value, "" for no children, "<multiple>" when they differ
//	_ = fonts.Set("Mono") // writes "Mono" into every child, one change event
//
// DecoratingValue[T] forwards to another value, ComputedValue[T] derives a
// read-only value from a function, and DetailValue[M, T] follows a master
// value through an explicit factory.
//
// # Listener Lifecycle
//
// Derived values subscribe to their sources lazily. The first listener
// attached to an observable runs its "first listener" hook and removing the
// last one runs its "last listener" hook; no hook runs on other transitions.
// Without listeners, derived values recompute on every Get.
//
// # Realms
//
// Observables are not safe for concurrent use. Each one belongs to a Realm,
// the single execution context in which all reads, writes and listener
// callbacks happen. DefaultRealm is always current; NewRealm creates a realm
// driven by Run on one goroutine, reachable from other goroutines through
// Exec and Sync.
//
// # Disposal
//
// Operations on a disposed observable never panic: Get returns the zero
// value, Set returns ErrDisposed, listener registration is ignored and a
// second Dispose is a no-op.
package observable
