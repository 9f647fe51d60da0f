package server

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/vango-dev/observe/pkg/observable"
)

// Change is a single value transition as sent to watchers.
type Change struct {
	Name  string `json:"name"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
	Stale bool   `json:"stale"`
}

// Binding is a named observable with its value type erased. All methods
// except Name, Type and Observable must be called on the observable's realm.
type Binding interface {
	Name() string
	Type() reflect.Type
	Observable() observable.Observable

	// Get returns the current value.
	Get() any

	// Set writes value. A value of the wrong dynamic type fails with an
	// error wrapping observable.ErrTypeMismatch.
	Set(value any) error

	// Decode parses raw as the value type and writes it.
	Decode(raw json.RawMessage) error

	// Watch calls fn for every change and staleness transition.
	Watch(fn func(Change)) observable.Subscription
}

type binding[T any] struct {
	name string
	v    observable.Value[T]
}

func (b *binding[T]) Name() string                      { return b.name }
func (b *binding[T]) Type() reflect.Type                { return b.v.ValueType() }
func (b *binding[T]) Observable() observable.Observable { return b.v }
func (b *binding[T]) Get() any                          { return b.v.Get() }

func (b *binding[T]) Set(value any) error {
	typed, ok := value.(T)
	if !ok {
		return observable.NewTypeMismatchError(b.v, b.v.ValueType(), value)
	}
	return b.v.Set(typed)
}

func (b *binding[T]) Decode(raw json.RawMessage) error {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return observable.NewTypeMismatchError(b.v, b.v.ValueType(), json.RawMessage(raw))
	}
	return b.v.Set(value)
}

func (b *binding[T]) Watch(fn func(Change)) observable.Subscription {
	change := b.v.AddValueChangeListener(observable.ValueChangeFunc[T](func(ev *observable.ValueChangeEvent[T]) {
		fn(Change{
			Name:  b.name,
			Old:   ev.Diff.OldValue(),
			New:   ev.Diff.NewValue(),
			Stale: b.v.IsStale(),
		})
	}))
	stale := b.v.AddStaleListener(observable.StaleFunc(func(*observable.StaleEvent) {
		current := b.v.Get()
		fn(Change{Name: b.name, Old: current, New: current, Stale: true})
	}))
	return subscriptions{change, stale}
}

type subscriptions []observable.Subscription

func (s subscriptions) Remove() {
	for _, sub := range s {
		sub.Remove()
	}
}

// Registry maps names to bindings. All bound observables must belong to the
// registry's realm.
type Registry struct {
	realm *observable.Realm

	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewRegistry creates an empty registry for observables of realm.
func NewRegistry(realm *observable.Realm) *Registry {
	return &Registry{
		realm:    realm,
		bindings: make(map[string]Binding),
	}
}

// Register binds v under name. It fails if the name is taken or v belongs to
// another realm.
func Register[T any](r *Registry, name string, v observable.Value[T]) error {
	if v.Realm() != r.realm {
		return fmt.Errorf("register %q: observable belongs to realm %q, registry to %q",
			name, v.Realm().Name(), r.realm.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[name]; ok {
		return fmt.Errorf("register %q: name already registered", name)
	}
	r.bindings[name] = &binding[T]{name: name, v: v}
	return nil
}

// Realm returns the registry's realm.
func (r *Registry) Realm() *observable.Realm {
	return r.realm
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the binding registered under name.
func (r *Registry) Lookup(name string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[name]
	return b, ok
}

// Unregister removes name from the registry. The observable is not disposed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[name]; !ok {
		return false
	}
	delete(r.bindings, name)
	return true
}
