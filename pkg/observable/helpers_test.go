package observable

import "sync"

// changeRecorder records value change events.
type changeRecorder[T any] struct {
	events []*ValueChangeEvent[T]
}

func (r *changeRecorder[T]) HandleValueChange(ev *ValueChangeEvent[T]) {
	r.events = append(r.events, ev)
}

func (r *changeRecorder[T]) count() int {
	return len(r.events)
}

func (r *changeRecorder[T]) last() *ValueChangeEvent[T] {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

// vetoer vetoes every proposal when veto is set.
type vetoer[T any] struct {
	veto  bool
	calls int
	seen  []*ValueDiff[T]
}

func (v *vetoer[T]) HandleValueChanging(ev *ValueChangingEvent[T]) {
	v.calls++
	v.seen = append(v.seen, ev.Diff)
	if v.veto {
		ev.Veto = true
	}
}

// testMonitor records monitor callbacks.
type testMonitor struct {
	mu           sync.Mutex
	outcomes     []SetOutcome
	recomputes   int
	subscribed   int
	unsubscribed int
	disposed     int
}

func (m *testMonitor) SetStarted(Observable) func(SetOutcome, error) {
	return func(outcome SetOutcome, _ error) {
		m.mu.Lock()
		m.outcomes = append(m.outcomes, outcome)
		m.mu.Unlock()
	}
}

func (m *testMonitor) Recomputed(Observable) {
	m.mu.Lock()
	m.recomputes++
	m.mu.Unlock()
}

func (m *testMonitor) Subscribed(Observable) {
	m.mu.Lock()
	m.subscribed++
	m.mu.Unlock()
}

func (m *testMonitor) Unsubscribed(Observable) {
	m.mu.Lock()
	m.unsubscribed++
	m.mu.Unlock()
}

func (m *testMonitor) Disposed(Observable) {
	m.mu.Lock()
	m.disposed++
	m.mu.Unlock()
}

func newChildren(values ...string) []Value[string] {
	children := make([]Value[string], len(values))
	for i, v := range values {
		children[i] = NewWritableValue(v)
	}
	return children
}
