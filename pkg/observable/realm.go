package observable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// RealmCheckMode controls what happens when an observable is used from a
// goroutine that is not running its realm.
type RealmCheckMode int

const (
	// RealmCheckOff performs no check.
	RealmCheckOff RealmCheckMode = iota

	// RealmCheckWarn logs a warning and lets the access proceed.
	RealmCheckWarn

	// RealmCheckPanic panics with an error wrapping ErrWrongRealm.
	RealmCheckPanic
)

// String returns the configuration name of the mode.
func (m RealmCheckMode) String() string {
	switch m {
	case RealmCheckOff:
		return "off"
	case RealmCheckWarn:
		return "warn"
	case RealmCheckPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// ParseRealmCheckMode parses "off", "warn" or "panic".
func ParseRealmCheckMode(s string) (RealmCheckMode, error) {
	switch s {
	case "", "off":
		return RealmCheckOff, nil
	case "warn":
		return RealmCheckWarn, nil
	case "panic":
		return RealmCheckPanic, nil
	default:
		return RealmCheckOff, fmt.Errorf("unknown realm check mode %q", s)
	}
}

// DefaultQueueSize is the task queue capacity of realms created by NewRealm.
const DefaultQueueSize = 256

// Realm is the single-threaded execution context of a family of observables.
// All reads, writes and listener callbacks of its observables happen in the
// realm; observables themselves do no locking.
//
// An inline realm (DefaultRealm, NewInlineRealm) is current on every
// goroutine and runs Exec'd work immediately. A loop realm (NewRealm) is
// current only on the goroutine executing Run.
type Realm struct {
	id      string
	name    string
	logger  *slog.Logger
	monitor Monitor
	check   RealmCheckMode
	inline  bool

	queue     chan func()
	gid       atomic.Uint64
	closed    chan struct{}
	closeOnce sync.Once

	// pending holds work Exec'd from the realm goroutine itself; it is only
	// touched by that goroutine.
	pending []func()
}

// RealmOption configures a Realm.
type RealmOption func(*Realm)

// WithRealmName names the realm for logs.
func WithRealmName(name string) RealmOption {
	return func(r *Realm) {
		r.name = name
	}
}

// WithRealmLogger sets the realm logger.
func WithRealmLogger(logger *slog.Logger) RealmOption {
	return func(r *Realm) {
		r.logger = logger
	}
}

// WithMonitor installs an instrumentation monitor for the realm's observables.
func WithMonitor(m Monitor) RealmOption {
	return func(r *Realm) {
		r.monitor = m
	}
}

// WithRealmCheck sets the realm check mode.
func WithRealmCheck(mode RealmCheckMode) RealmOption {
	return func(r *Realm) {
		r.check = mode
	}
}

// WithQueueSize sets the task queue capacity of a loop realm.
func WithQueueSize(n int) RealmOption {
	return func(r *Realm) {
		if n > 0 {
			r.queue = make(chan func(), n)
		}
	}
}

func newRealm(inline bool, opts []RealmOption) *Realm {
	r := &Realm{
		id:     uuid.NewString(),
		inline: inline,
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.name == "" {
		r.name = r.id[:8]
	}
	if !inline && r.queue == nil {
		r.queue = make(chan func(), DefaultQueueSize)
	}
	return r
}

// NewRealm creates a loop realm. It becomes current on the goroutine that
// calls Run.
func NewRealm(opts ...RealmOption) *Realm {
	return newRealm(false, opts)
}

// NewInlineRealm creates a realm that is current everywhere and runs Exec'd
// work immediately.
func NewInlineRealm(opts ...RealmOption) *Realm {
	return newRealm(true, opts)
}

var defaultRealm atomic.Pointer[Realm]

func init() {
	defaultRealm.Store(NewInlineRealm(WithRealmName("default")))
}

// DefaultRealm returns the realm used by observables created without WithRealm.
func DefaultRealm() *Realm {
	return defaultRealm.Load()
}

// SetDefaultRealm replaces the default realm and returns the previous one.
// Observables keep the realm they were created with.
func SetDefaultRealm(r *Realm) *Realm {
	if r == nil {
		r = NewInlineRealm(WithRealmName("default"))
	}
	return defaultRealm.Swap(r)
}

// ID returns the realm's unique identifier.
func (r *Realm) ID() string {
	return r.id
}

// Name returns the realm's name.
func (r *Realm) Name() string {
	return r.name
}

// Logger returns the realm logger.
func (r *Realm) Logger() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default().With("component", "realm", "realm", r.name)
}

// Monitor returns the realm's monitor, or nil.
func (r *Realm) Monitor() Monitor {
	return r.monitor
}

// IsCurrent reports whether the calling goroutine may use the realm's
// observables.
func (r *Realm) IsCurrent() bool {
	if r.inline {
		return true
	}
	gid := r.gid.Load()
	return gid != 0 && gid == getGoroutineID()
}

// Exec schedules fn to run in the realm. Inline realms run it immediately.
// Work scheduled from inside a loop realm runs after the current task.
func (r *Realm) Exec(fn func()) {
	if r.inline {
		r.runTask(fn)
		return
	}
	if r.IsCurrent() {
		r.pending = append(r.pending, fn)
		return
	}
	select {
	case r.queue <- fn:
	case <-r.closed:
		r.Logger().Warn("realm closed, dropping task")
	}
}

// Sync runs fn in the realm and waits for it to finish. A panic in fn is
// returned as an error.
func (r *Realm) Sync(ctx context.Context, fn func()) error {
	if r.IsCurrent() {
		return r.call(fn)
	}

	done := make(chan error, 1)
	task := func() { done <- r.call(fn) }

	select {
	case r.queue <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closed:
		return newError(CodeRealmClosed, ErrRealmClosed, nil).WithDetail(r.name)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closed:
		return newError(CodeRealmClosed, ErrRealmClosed, nil).WithDetail(r.name)
	}
}

// Run binds the realm to the calling goroutine and executes queued work
// until ctx is done or Close is called. It returns nil after Close.
func (r *Realm) Run(ctx context.Context) error {
	if r.inline {
		return fmt.Errorf("realm %q: inline realms do not run a loop", r.name)
	}
	if !r.gid.CompareAndSwap(0, getGoroutineID()) {
		return fmt.Errorf("realm %q: already running", r.name)
	}
	defer r.gid.Store(0)

	logger := r.Logger()
	logger.Debug("realm started")
	defer logger.Debug("realm stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.closed:
			return nil
		case fn := <-r.queue:
			r.runTask(fn)
			for len(r.pending) > 0 {
				next := r.pending[0]
				r.pending = r.pending[1:]
				r.runTask(next)
			}
		}
	}
}

// Close stops Run and rejects further Sync calls. It is safe to call twice.
func (r *Realm) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})
}

// runTask runs fn, logging and swallowing a panic.
func (r *Realm) runTask(fn func()) {
	if err := r.call(fn); err != nil {
		r.Logger().Error("realm task failed", "error", err)
	}
}

func (r *Realm) call(fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("realm %q: task panicked: %w", r.name, e)
				return
			}
			err = fmt.Errorf("realm %q: task panicked: %v", r.name, rec)
		}
	}()
	fn()
	return nil
}

// checkAccess applies the realm check mode to an access of o.
func (r *Realm) checkAccess(o Observable, op string) {
	if r.check == RealmCheckOff || r.IsCurrent() {
		return
	}
	if r.check == RealmCheckPanic {
		panic(newError(CodeWrongRealm, ErrWrongRealm, o).
			WithDetailf("%s on %s outside realm %q", op, describe(o), r.name))
	}
	r.Logger().Warn("observable accessed outside its realm",
		"op", op,
		"observable", describe(o),
	)
}

func (r *Realm) startSet(o Observable) func(SetOutcome, error) {
	if r.monitor == nil {
		return noopSetDone
	}
	if done := r.monitor.SetStarted(o); done != nil {
		return done
	}
	return noopSetDone
}

func (r *Realm) recomputed(o Observable) {
	if r.monitor != nil {
		r.monitor.Recomputed(o)
	}
}

func (r *Realm) subscribed(o Observable) {
	if r.monitor != nil {
		r.monitor.Subscribed(o)
	}
}

func (r *Realm) unsubscribed(o Observable) {
	if r.monitor != nil {
		r.monitor.Unsubscribed(o)
	}
}

func (r *Realm) disposed(o Observable) {
	if r.monitor != nil {
		r.monitor.Disposed(o)
	}
}
