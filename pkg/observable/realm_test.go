package observable

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func startRealm(t *testing.T, opts ...RealmOption) *Realm {
	t.Helper()
	r := NewRealm(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		r.Close()
		<-done
	})
	return r
}

func TestParseRealmCheckMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RealmCheckMode
		wantErr bool
	}{
		{in: "", want: RealmCheckOff},
		{in: "off", want: RealmCheckOff},
		{in: "warn", want: RealmCheckWarn},
		{in: "panic", want: RealmCheckPanic},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRealmCheckMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !tt.wantErr && tt.in != "" && got.String() != tt.in {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}

func TestInlineRealm(t *testing.T) {
	r := NewInlineRealm(WithRealmName("ui"))
	if !r.IsCurrent() {
		t.Error("inline realm should be current everywhere")
	}
	if r.Name() != "ui" || r.ID() == "" {
		t.Errorf("name=%q id=%q", r.Name(), r.ID())
	}

	ran := false
	r.Exec(func() { ran = true })
	if !ran {
		t.Error("Exec should run immediately")
	}
	if err := r.Run(context.Background()); err == nil {
		t.Error("Run should fail on an inline realm")
	}
}

func TestRealmSyncRunsOnRealmGoroutine(t *testing.T) {
	r := startRealm(t)
	if r.IsCurrent() {
		t.Fatal("test goroutine should not be current")
	}

	var inside bool
	if err := r.Sync(context.Background(), func() { inside = r.IsCurrent() }); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !inside {
		t.Error("Sync should run the function on the realm goroutine")
	}
}

func TestRealmExecOrdering(t *testing.T) {
	r := startRealm(t)
	var order []string
	err := r.Sync(context.Background(), func() {
		r.Exec(func() { order = append(order, "nested") })
		order = append(order, "outer")
	})
	if err != nil {
		t.Fatal(err)
	}
	// Nested work runs after the current task; a second Sync observes it.
	if err := r.Sync(context.Background(), func() {}); err != nil {
		t.Fatal(err)
	}
	var got string
	_ = r.Sync(context.Background(), func() { got = strings.Join(order, ",") })
	if got != "outer,nested" {
		t.Errorf("order = %q", got)
	}
}

func TestRealmSyncRecoversPanic(t *testing.T) {
	r := startRealm(t)
	err := r.Sync(context.Background(), func() { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if err := r.Sync(context.Background(), func() {}); err != nil {
		t.Errorf("realm should keep running after a panic: %v", err)
	}
}

func TestRealmSyncAfterClose(t *testing.T) {
	r := NewRealm()
	r.Close()
	r.Close()
	err := r.Sync(context.Background(), func() {})
	if !errors.Is(err, ErrRealmClosed) {
		t.Errorf("expected ErrRealmClosed, got %v", err)
	}
}

func TestRealmSyncContextCancelled(t *testing.T) {
	r := NewRealm(WithQueueSize(1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// Nothing runs the realm, so the task is never executed.
	err := r.Sync(ctx, func() {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRealmRunTwice(t *testing.T) {
	r := startRealm(t)
	var err error
	_ = r.Sync(context.Background(), func() {
		err = r.Run(context.Background())
	})
	if err == nil {
		t.Error("second Run should fail")
	}
}

func TestRealmCheckPanic(t *testing.T) {
	r := startRealm(t, WithRealmCheck(RealmCheckPanic))
	var v *WritableValue[int]
	if err := r.Sync(context.Background(), func() {
		v = NewWritableValue(1, WithRealm(r))
	}); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			rec := recover()
			err, ok := rec.(error)
			if !ok || !errors.Is(err, ErrWrongRealm) {
				t.Errorf("expected ErrWrongRealm panic, got %v", rec)
			}
		}()
		v.Get()
	}()

	var got int
	if err := r.Sync(context.Background(), func() { got = v.Get() }); err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("Get in realm = %d", got)
	}
}

func TestRealmCheckOffAllowsAccess(t *testing.T) {
	r := NewRealm()
	v := NewWritableValue(1, WithRealm(r))
	if v.Get() != 1 {
		t.Error("unchecked realm should allow access")
	}
	if v.Realm() != r {
		t.Error("WithRealm not applied")
	}
}

func TestSetDefaultRealm(t *testing.T) {
	r := NewInlineRealm(WithRealmName("custom"))
	prev := SetDefaultRealm(r)
	defer SetDefaultRealm(prev)

	v := NewWritableValue(0)
	if v.Realm() != r {
		t.Error("new observables should use the default realm")
	}
}

func TestRealmMonitor(t *testing.T) {
	m := &testMonitor{}
	r := NewInlineRealm(WithMonitor(m))
	if r.Monitor() != Monitor(m) {
		t.Fatal("Monitor() should return the installed monitor")
	}

	v := NewWritableValue(1, WithRealm(r))
	v.AddValueChangingListener(ValueChangingFunc[int](func(ev *ValueChangingEvent[int]) {
		ev.Veto = ev.Diff.NewValue() < 0
	}))
	_ = v.Set(2)
	_ = v.Set(2)
	_ = v.Set(-1)
	v.Dispose()
	_ = v.Set(3)

	want := []SetOutcome{SetCommitted, SetUnchanged, SetVetoed, SetFailed}
	if len(m.outcomes) != len(want) {
		t.Fatalf("outcomes = %v", m.outcomes)
	}
	for i := range want {
		if m.outcomes[i] != want[i] {
			t.Errorf("outcome %d = %v, want %v", i, m.outcomes[i], want[i])
		}
	}
	if m.subscribed != 1 || m.unsubscribed != 1 || m.disposed != 1 {
		t.Errorf("subscribed=%d unsubscribed=%d disposed=%d", m.subscribed, m.unsubscribed, m.disposed)
	}
}

func TestRealmMonitorRecomputes(t *testing.T) {
	m := &testMonitor{}
	r := NewInlineRealm(WithMonitor(m))
	children := []Value[string]{
		NewWritableValue("a", WithRealm(r)),
		NewWritableValue("a", WithRealm(r)),
	}
	d := NewDuplexingValueWithDefaults(children, "", "*")

	d.Get()
	d.Get()
	if m.recomputes != 2 {
		t.Errorf("recomputes without listeners = %d", m.recomputes)
	}

	d.AddValueChangeListener(&changeRecorder[string]{})
	d.Get()
	d.Get()
	if m.recomputes != 3 {
		t.Errorf("recomputes with listeners = %d", m.recomputes)
	}
}
