package observable

import (
	"errors"
	"strings"
	"testing"
)

const multiple = "<multiple>"

func TestDuplexingValueCoalesce(t *testing.T) {
	tests := []struct {
		name     string
		children []string
		want     string
	}{
		{name: "no children", children: nil, want: ""},
		{name: "single child", children: []string{"Mono"}, want: "Mono"},
		{name: "all equal", children: []string{"Mono", "Mono", "Mono"}, want: "Mono"},
		{name: "differ", children: []string{"Mono", "Sans"}, want: multiple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDuplexingValueWithDefaults(newChildren(tt.children...), "", multiple)
			if got := d.Get(); got != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDuplexingValueUncachedWithoutListeners(t *testing.T) {
	children := newChildren("a", "a")
	computes := 0
	d := NewDuplexingValue(children, func(values []string) string {
		computes++
		return strings.Join(values, ",")
	})

	_ = children[1].Set("b")
	if got := d.Get(); got != "a,b" {
		t.Errorf("first Get = %q", got)
	}
	if got := d.Get(); got != "a,b" {
		t.Errorf("second Get = %q", got)
	}
	_ = children[0].Set("c")
	if got := d.Get(); got != "c,b" {
		t.Errorf("Get after external mutation = %q", got)
	}
	if computes != 3 {
		t.Errorf("expected a recompute per Get without listeners, got %d", computes)
	}
}

func TestDuplexingValueCachedWithListeners(t *testing.T) {
	children := newChildren("a", "a")
	computes := 0
	d := NewDuplexingValue(children, func(values []string) string {
		computes++
		return strings.Join(values, ",")
	})
	rec := &changeRecorder[string]{}
	d.AddValueChangeListener(rec)

	base := computes
	_ = d.Get()
	_ = d.Get()
	if computes != base {
		t.Errorf("cached reads recomputed %d times", computes-base)
	}

	_ = children[0].Set("x")
	if rec.count() != 1 {
		t.Fatalf("child change should notify once, got %d", rec.count())
	}
	if computes != base {
		t.Error("notification should not compute the new value eagerly")
	}

	ev := rec.last()
	if ev.Diff.OldValue() != "a,a" {
		t.Errorf("old value = %q", ev.Diff.OldValue())
	}
	if ev.Diff.NewValue() != "x,a" {
		t.Errorf("new value = %q", ev.Diff.NewValue())
	}
	if computes != base+1 {
		t.Errorf("lazy new value should compute once, got %d", computes-base)
	}
	_ = ev.Diff.NewValue()
	_ = d.Get()
	if computes != base+1 {
		t.Errorf("value should stay cached, got %d recomputes", computes-base)
	}
}

func TestDuplexingValueBroadcastWrite(t *testing.T) {
	children := newChildren("Mono", "Sans", "Serif")
	d := NewDuplexingValueWithDefaults(children, "", multiple)
	rec := &changeRecorder[string]{}
	d.AddValueChangeListener(rec)

	if err := d.Set("Mono"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	for i, child := range children {
		if child.Get() != "Mono" {
			t.Errorf("child %d = %q", i, child.Get())
		}
	}
	if rec.count() != 1 {
		t.Fatalf("expected one consolidated notification, got %d", rec.count())
	}
	if ev := rec.last(); ev.Diff.OldValue() != multiple || ev.Diff.NewValue() != "Mono" {
		t.Errorf("diff = %v", ev.Diff)
	}
	if d.Get() != "Mono" {
		t.Errorf("Get() = %q", d.Get())
	}
}

func TestDuplexingValueSetWithoutListeners(t *testing.T) {
	children := newChildren("a", "b")
	d := NewDuplexingValueWithDefaults(children, "", multiple)
	if err := d.Set("z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d.Get() != "z" {
		t.Errorf("Get() = %q", d.Get())
	}
}

func TestDuplexingValueSetJoinsChildErrors(t *testing.T) {
	ok := NewWritableValue("a")
	locked := NewWritableValue("a")
	locked.AddValueChangingListener(&vetoer[string]{veto: true})
	readOnly := NewConstantValue("a")

	d := NewDuplexingValueWithDefaults([]Value[string]{ok, locked, readOnly}, "", multiple)
	err := d.Set("b")
	if !errors.Is(err, ErrChangeVetoed) || !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected joined veto and unsupported errors, got %v", err)
	}
	if ok.Get() != "b" {
		t.Error("every child should be attempted")
	}
}

func TestDuplexingValueOwnVeto(t *testing.T) {
	children := newChildren("a", "a")
	d := NewDuplexingValueWithDefaults(children, "", multiple)
	d.AddValueChangingListener(ValueChangingFunc[string](func(ev *ValueChangingEvent[string]) {
		ev.Veto = ev.Diff.NewValue() == "forbidden"
	}))

	if err := d.Set("forbidden"); !errors.Is(err, ErrChangeVetoed) {
		t.Fatalf("expected veto, got %v", err)
	}
	if children[0].Get() != "a" {
		t.Error("vetoed write reached the children")
	}
}

func TestDuplexingValueSubscribesLazily(t *testing.T) {
	children := newChildren("a")
	child := children[0].(*WritableValue[string])
	d := NewDuplexingValueWithDefaults(children, "", multiple)

	if child.hasListeners() {
		t.Fatal("child subscribed before the duplexing value had listeners")
	}
	sub := d.AddValueChangeListener(&changeRecorder[string]{})
	if !child.hasListeners() {
		t.Fatal("first listener should subscribe the children")
	}
	sub.Remove()
	if child.hasListeners() {
		t.Fatal("last listener removal should unsubscribe the children")
	}
}

func TestDuplexingValueMembership(t *testing.T) {
	d := NewDuplexingValueWithDefaults(newChildren("a"), "", multiple)
	rec := &changeRecorder[string]{}
	d.AddValueChangeListener(rec)

	extra := NewWritableValue("b")
	d.AddChild(extra)
	if rec.count() != 1 || d.Get() != multiple {
		t.Fatalf("after AddChild: notifications=%d value=%q", rec.count(), d.Get())
	}
	if !extra.hasListeners() {
		t.Error("added child should be subscribed")
	}

	_ = extra.Set("a")
	if rec.count() != 2 || d.Get() != "a" {
		t.Fatalf("after child change: notifications=%d value=%q", rec.count(), d.Get())
	}

	if !d.RemoveChild(extra) {
		t.Fatal("RemoveChild should report the child")
	}
	if extra.hasListeners() {
		t.Error("removed child should be unsubscribed")
	}
	if d.RemoveChild(extra) {
		t.Error("second RemoveChild should report false")
	}
	if len(d.Children()) != 1 {
		t.Errorf("Children() = %d", len(d.Children()))
	}
}

func TestDuplexingValueStaleness(t *testing.T) {
	a := NewWritableValue("x")
	b := NewWritableValue("x")
	d := NewDuplexingValueWithDefaults([]Value[string]{a, b}, "", multiple)

	b.SetStale(true)
	if !d.IsStale() {
		t.Error("stale child should make the value stale without listeners")
	}

	staleEvents := 0
	d.AddStaleListener(StaleFunc(func(*StaleEvent) { staleEvents++ }))
	if !d.IsStale() {
		t.Error("stale child should make the cached value stale")
	}

	b.SetStale(false)
	if d.IsStale() {
		t.Error("value should be fresh again")
	}
	a.SetStale(true)
	if staleEvents != 1 || !d.IsStale() {
		t.Errorf("staleEvents=%d stale=%v", staleEvents, d.IsStale())
	}
}

func TestDuplexingValueDisposeKeepsChildren(t *testing.T) {
	children := newChildren("a")
	d := NewDuplexingValueWithDefaults(children, "", multiple)
	d.AddValueChangeListener(&changeRecorder[string]{})

	d.Dispose()
	if children[0].IsDisposed() {
		t.Error("children are not owned by the duplexing value")
	}
	if children[0].(*WritableValue[string]).hasListeners() {
		t.Error("dispose should unsubscribe from children")
	}
	if err := d.Set("b"); !errors.Is(err, ErrDisposed) {
		t.Errorf("Set after dispose: %v", err)
	}
}

func TestDuplexingValueOldValuesWithoutReadingNew(t *testing.T) {
	children := newChildren("a", "a")
	d := NewDuplexingValueWithDefaults(children, "", multiple)

	var olds []string
	d.AddValueChangeListener(ValueChangeFunc[string](func(ev *ValueChangeEvent[string]) {
		olds = append(olds, ev.Diff.OldValue())
	}))

	_ = children[0].Set("b")
	_ = children[1].Set("b")
	_ = children[0].Set("c")
	if len(olds) != 1 || olds[0] != "a" {
		t.Fatalf("unread changes should fire once, olds = %q", olds)
	}

	if got := d.Get(); got != multiple {
		t.Fatalf("Get() = %q", got)
	}
	_ = children[1].Set("c")
	if len(olds) != 2 || olds[1] != multiple {
		t.Errorf("old value after a read = %q, want %q", olds, multiple)
	}
}
