package observable

// ChangeListener is notified when an observable changes.
type ChangeListener interface {
	HandleChange(ev *ChangeEvent)
}

// ValueChangeListener is notified after a value transition is committed.
type ValueChangeListener[T any] interface {
	HandleValueChange(ev *ValueChangeEvent[T])
}

// ValueChangingListener is consulted before a value transition is committed.
// Setting ev.Veto rejects the write.
type ValueChangingListener[T any] interface {
	HandleValueChanging(ev *ValueChangingEvent[T])
}

// StaleListener is notified when an observable becomes stale.
type StaleListener interface {
	HandleStale(ev *StaleEvent)
}

// DisposeListener is notified when an observable is disposed.
type DisposeListener interface {
	HandleDispose(ev *DisposeEvent)
}

// ChangeFunc adapts a function to ChangeListener.
// Function listeners cannot be removed by reference; use the Subscription
// returned when adding them.
type ChangeFunc func(ev *ChangeEvent)

// HandleChange implements ChangeListener.
func (f ChangeFunc) HandleChange(ev *ChangeEvent) { f(ev) }

// ValueChangeFunc adapts a function to ValueChangeListener.
type ValueChangeFunc[T any] func(ev *ValueChangeEvent[T])

// HandleValueChange implements ValueChangeListener.
func (f ValueChangeFunc[T]) HandleValueChange(ev *ValueChangeEvent[T]) { f(ev) }

// ValueChangingFunc adapts a function to ValueChangingListener.
type ValueChangingFunc[T any] func(ev *ValueChangingEvent[T])

// HandleValueChanging implements ValueChangingListener.
func (f ValueChangingFunc[T]) HandleValueChanging(ev *ValueChangingEvent[T]) { f(ev) }

// StaleFunc adapts a function to StaleListener.
type StaleFunc func(ev *StaleEvent)

// HandleStale implements StaleListener.
func (f StaleFunc) HandleStale(ev *StaleEvent) { f(ev) }

// DisposeFunc adapts a function to DisposeListener.
type DisposeFunc func(ev *DisposeEvent)

// HandleDispose implements DisposeListener.
func (f DisposeFunc) HandleDispose(ev *DisposeEvent) { f(ev) }

// Subscription detaches a listener. Remove is idempotent.
type Subscription interface {
	Remove()
}

type subscription struct {
	remove func()
}

func newSubscription(remove func()) *subscription {
	return &subscription{remove: remove}
}

// Remove detaches the listener. Calls after the first are no-ops.
func (s *subscription) Remove() {
	if s.remove == nil {
		return
	}
	remove := s.remove
	s.remove = nil
	remove()
}

// inertSubscription is handed out when a listener is not registered.
var inertSubscription Subscription = &subscription{}
