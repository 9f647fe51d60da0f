package observable

import (
	"fmt"
	"sync"
)

// ValueDiff describes a single transition of an observable value.
// A diff is never mutated once built.
type ValueDiff[T any] struct {
	oldValue T
	newValue T

	// compute produces newValue on first access for lazy diffs.
	compute func() T
	once    sync.Once
}

// NewDiff returns a diff from oldValue to newValue.
func NewDiff[T any](oldValue, newValue T) *ValueDiff[T] {
	return &ValueDiff[T]{oldValue: oldValue, newValue: newValue}
}

// NewLazyDiff returns a diff whose new value is computed by compute the
// first time NewValue is called and remembered afterwards.
func NewLazyDiff[T any](oldValue T, compute func() T) *ValueDiff[T] {
	return &ValueDiff[T]{oldValue: oldValue, compute: compute}
}

// OldValue returns the value before the transition.
func (d *ValueDiff[T]) OldValue() T {
	return d.oldValue
}

// NewValue returns the value after the transition.
func (d *ValueDiff[T]) NewValue() T {
	d.once.Do(func() {
		if d.compute != nil {
			d.newValue = d.compute()
		}
	})
	return d.newValue
}

func (d *ValueDiff[T]) String() string {
	return fmt.Sprintf("ValueDiff{old: %v, new: %v}", d.oldValue, d.NewValue())
}

// ChangeEvent reports that an observable changed, without describing how.
type ChangeEvent struct {
	Source Observable
}

// ValueChangeEvent reports a committed value transition.
type ValueChangeEvent[T any] struct {
	Source Observable
	Diff   *ValueDiff[T]
}

// ValueChangingEvent proposes a value transition before it is committed.
// Listeners set Veto to reject it.
type ValueChangingEvent[T any] struct {
	Source Observable
	Diff   *ValueDiff[T]
	Veto   bool
}

// StaleEvent reports that an observable became stale.
type StaleEvent struct {
	Source Observable
}

// DisposeEvent reports that an observable is being disposed.
type DisposeEvent struct {
	Source Observable
}
