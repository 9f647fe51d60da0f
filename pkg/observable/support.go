package observable

import "reflect"

// support holds the state shared by all observables: identity, realm,
// untyped listeners, and the listener count driving the first/last hooks.
type support struct {
	id    uint64
	name  string
	kind  Kind
	realm *Realm
	self  Observable

	change  listenerList[ChangeListener]
	stale   listenerList[StaleListener]
	dispose listenerList[DisposeListener]

	// listeners counts change, value-change, value-changing and stale
	// listeners. Dispose listeners are not counted.
	listeners int

	// onFirst runs on the 0→1 transition of listeners, onLast on 1→0.
	onFirst func()
	onLast  func()

	disposed bool
}

func newSupport(kind Kind, self Observable, o options) support {
	return support{
		id:    nextID(),
		name:  o.name,
		kind:  kind,
		realm: o.realm,
		self:  self,
	}
}

// ID returns the unique identifier of the observable.
func (s *support) ID() uint64 { return s.id }

// Name returns the name given with WithName.
func (s *support) Name() string { return s.name }

// Kind returns the observable variant.
func (s *support) Kind() Kind { return s.kind }

// Realm returns the realm the observable belongs to.
func (s *support) Realm() *Realm { return s.realm }

// IsDisposed reports whether Dispose has been called.
func (s *support) IsDisposed() bool { return s.disposed }

// AddChangeListener registers l for untyped change notifications.
func (s *support) AddChangeListener(l ChangeListener) Subscription {
	return addListener(s, &s.change, l, true, "AddChangeListener")
}

// RemoveChangeListener removes l by reference.
func (s *support) RemoveChangeListener(l ChangeListener) {
	removeListener(s, &s.change, l, true, "RemoveChangeListener")
}

// AddStaleListener registers l for stale notifications.
func (s *support) AddStaleListener(l StaleListener) Subscription {
	return addListener(s, &s.stale, l, true, "AddStaleListener")
}

// RemoveStaleListener removes l by reference.
func (s *support) RemoveStaleListener(l StaleListener) {
	removeListener(s, &s.stale, l, true, "RemoveStaleListener")
}

// AddDisposeListener registers l for the dispose notification.
func (s *support) AddDisposeListener(l DisposeListener) Subscription {
	return addListener(s, &s.dispose, l, false, "AddDisposeListener")
}

// RemoveDisposeListener removes l by reference.
func (s *support) RemoveDisposeListener(l DisposeListener) {
	removeListener(s, &s.dispose, l, false, "RemoveDisposeListener")
}

func (s *support) hasListeners() bool {
	return s.listeners > 0
}

func (s *support) checkRealm(op string) {
	s.realm.checkAccess(s.self, op)
}

func (s *support) acquire() {
	s.listeners++
	if s.listeners == 1 {
		s.realm.subscribed(s.self)
		if s.onFirst != nil {
			s.onFirst()
		}
	}
}

func (s *support) release() {
	s.listeners--
	if s.listeners == 0 {
		if s.onLast != nil {
			s.onLast()
		}
		s.realm.unsubscribed(s.self)
	}
}

func (s *support) fireChange() {
	ev := &ChangeEvent{Source: s.self}
	for _, l := range s.change.snapshot() {
		if s.disposed {
			return
		}
		l.HandleChange(ev)
	}
}

func (s *support) fireStale() {
	ev := &StaleEvent{Source: s.self}
	for _, l := range s.stale.snapshot() {
		if s.disposed {
			return
		}
		l.HandleStale(ev)
	}
}

// disposeSupport marks the observable disposed, notifies dispose listeners,
// runs the last-listener hook if listeners were attached and clears every
// listener list. It reports false if the observable was already disposed.
func (s *support) disposeSupport() bool {
	if s.disposed {
		return false
	}
	s.disposed = true

	ev := &DisposeEvent{Source: s.self}
	for _, l := range s.dispose.snapshot() {
		l.HandleDispose(ev)
	}

	hadListeners := s.listeners > 0
	s.listeners = 0
	s.change.clear()
	s.stale.clear()
	s.dispose.clear()

	if hadListeners {
		if s.onLast != nil {
			s.onLast()
		}
		s.realm.unsubscribed(s.self)
	}
	s.realm.disposed(s.self)
	return true
}

func (s *support) disposedError() error {
	return newError(CodeDisposed, ErrDisposed, s.self)
}

func (s *support) unsupportedError() error {
	return newError(CodeUnsupportedOperation, ErrUnsupportedOperation, s.self)
}

func addListener[L any](s *support, list *listenerList[L], l L, counted bool, op string) Subscription {
	s.checkRealm(op)
	if s.disposed || any(l) == nil {
		return inertSubscription
	}
	id, added := list.add(l)
	if added && counted {
		s.acquire()
	}
	return newSubscription(func() {
		if list.removeID(id) && counted {
			s.release()
		}
	})
}

func removeListener[L any](s *support, list *listenerList[L], l L, counted bool, op string) {
	s.checkRealm(op)
	if s.disposed {
		return
	}
	if list.remove(l) && counted {
		s.release()
	}
}

// valueSupport extends support with the typed listener lists and equality
// shared by all Value[T] variants.
type valueSupport[T any] struct {
	support

	valueChange   listenerList[ValueChangeListener[T]]
	valueChanging listenerList[ValueChangingListener[T]]

	valueType reflect.Type
	equal     func(a, b T) bool
}

func newValueSupport[T any](kind Kind, self Observable, fallback *Realm, opts []Option) valueSupport[T] {
	o := buildOptions(fallback, opts)
	v := valueSupport[T]{
		support:   newSupport(kind, self, o),
		valueType: reflect.TypeOf((*T)(nil)).Elem(),
	}
	if o.equal != nil {
		fn, ok := o.equal.(func(a, b T) bool)
		if !ok {
			panic("observable: WithEquals function does not match value type " + v.valueType.String())
		}
		v.equal = fn
	}
	return v
}

// ValueType returns the type token of T.
func (v *valueSupport[T]) ValueType() reflect.Type {
	return v.valueType
}

// AddValueChangeListener registers l for committed value transitions.
func (v *valueSupport[T]) AddValueChangeListener(l ValueChangeListener[T]) Subscription {
	return addListener(&v.support, &v.valueChange, l, true, "AddValueChangeListener")
}

// RemoveValueChangeListener removes l by reference.
func (v *valueSupport[T]) RemoveValueChangeListener(l ValueChangeListener[T]) {
	removeListener(&v.support, &v.valueChange, l, true, "RemoveValueChangeListener")
}

// AddValueChangingListener registers l to be consulted before writes commit.
func (v *valueSupport[T]) AddValueChangingListener(l ValueChangingListener[T]) Subscription {
	return addListener(&v.support, &v.valueChanging, l, true, "AddValueChangingListener")
}

// RemoveValueChangingListener removes l by reference.
func (v *valueSupport[T]) RemoveValueChangingListener(l ValueChangingListener[T]) {
	removeListener(&v.support, &v.valueChanging, l, true, "RemoveValueChangingListener")
}

func (v *valueSupport[T]) equals(a, b T) bool {
	if v.equal != nil {
		return v.equal(a, b)
	}
	return defaultEquals(a, b)
}

// fireValueChange notifies value-change listeners and then untyped change
// listeners.
func (v *valueSupport[T]) fireValueChange(diff *ValueDiff[T]) {
	ev := &ValueChangeEvent[T]{Source: v.self, Diff: diff}
	for _, l := range v.valueChange.snapshot() {
		if v.disposed {
			return
		}
		l.HandleValueChange(ev)
	}
	v.fireChange()
}

// propose runs every changing listener for diff and returns a vetoed error
// if any of them set Veto. All listeners run even after a veto.
func (v *valueSupport[T]) propose(diff *ValueDiff[T]) error {
	listeners := v.valueChanging.snapshot()
	if len(listeners) == 0 {
		return nil
	}
	ev := &ValueChangingEvent[T]{Source: v.self, Diff: diff}
	for _, l := range listeners {
		l.HandleValueChanging(ev)
	}
	if ev.Veto {
		return newError(CodeChangeVetoed, ErrChangeVetoed, v.self).
			WithDetailf("%s: %v -> %v", describe(v.self), diff.OldValue(), diff.NewValue())
	}
	return nil
}

func (v *valueSupport[T]) disposeValue() bool {
	if !v.disposeSupport() {
		return false
	}
	v.valueChange.clear()
	v.valueChanging.clear()
	return true
}
