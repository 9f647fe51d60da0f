package monitor

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/observe/pkg/observable"
)

// Default tracer name for observe.
const defaultTracerName = "github.com/vango-dev/observe"

// SetSpanName is the name of the span recorded for each write.
const SetSpanName = "observable.Set"

// OTelConfig configures the OpenTelemetry monitor.
type OTelConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// TracerProvider provides the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// Filter determines which observables are traced.
	// If nil, all writes are traced.
	Filter func(o observable.Observable) bool
}

// OTelOption configures the OpenTelemetry monitor.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithFilter sets a filter function for traced observables.
func WithFilter(filter func(o observable.Observable) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// TracingMonitor records a span per write. Recomputations and disposals that
// happen while a write is in progress are added to its span as events.
// Writes nest per realm, so one monitor can be shared by several realms.
type TracingMonitor struct {
	tracer trace.Tracer
	filter func(o observable.Observable) bool

	mu     sync.Mutex
	active map[*observable.Realm][]*activeSpan
}

type activeSpan struct {
	span trace.Span
}

// OpenTelemetry creates a monitor that traces every observable write.
//
// The monitor:
//   - Creates an observable.Set span with the observable's id, name and kind
//   - Records the outcome as an attribute
//   - Records errors and sets span status
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main() before creating realms.
func OpenTelemetry(opts ...OTelOption) *TracingMonitor {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	return &TracingMonitor{
		tracer: config.TracerProvider.Tracer(config.TracerName),
		filter: config.Filter,
		active: make(map[*observable.Realm][]*activeSpan),
	}
}

func observableAttributes(o observable.Observable) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int64("observable.id", int64(o.ID())),
		attribute.String("observable.kind", string(o.Kind())),
	}
	if name := o.Name(); name != "" {
		attrs = append(attrs, attribute.String("observable.name", name))
	}
	if r := o.Realm(); r != nil {
		attrs = append(attrs, attribute.String("observable.realm", r.Name()))
	}
	return attrs
}

// SetStarted implements observable.Monitor.
func (t *TracingMonitor) SetStarted(o observable.Observable) func(observable.SetOutcome, error) {
	if t.filter != nil && !t.filter(o) {
		return nil
	}

	realm := o.Realm()
	parent := context.Background()
	t.mu.Lock()
	if stack := t.active[realm]; len(stack) > 0 {
		parent = trace.ContextWithSpan(parent, stack[len(stack)-1].span)
	}
	t.mu.Unlock()

	_, span := t.tracer.Start(parent, SetSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(observableAttributes(o)...),
	)
	entry := t.push(realm, span)

	return func(outcome observable.SetOutcome, err error) {
		t.pop(realm, entry)
		span.SetAttributes(attribute.String("observable.outcome", outcome.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// Recomputed implements observable.Monitor.
func (t *TracingMonitor) Recomputed(o observable.Observable) {
	t.event("observable.recomputed", o)
}

// Subscribed implements observable.Monitor.
func (t *TracingMonitor) Subscribed(observable.Observable) {}

// Unsubscribed implements observable.Monitor.
func (t *TracingMonitor) Unsubscribed(observable.Observable) {}

// Disposed implements observable.Monitor.
func (t *TracingMonitor) Disposed(o observable.Observable) {
	t.event("observable.disposed", o)
}

func (t *TracingMonitor) event(name string, o observable.Observable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stack := t.active[o.Realm()]; len(stack) > 0 {
		stack[len(stack)-1].span.AddEvent(name, trace.WithAttributes(observableAttributes(o)...))
	}
}

func (t *TracingMonitor) push(realm *observable.Realm, span trace.Span) *activeSpan {
	entry := &activeSpan{span: span}
	t.mu.Lock()
	t.active[realm] = append(t.active[realm], entry)
	t.mu.Unlock()
	return entry
}

func (t *TracingMonitor) pop(realm *observable.Realm, entry *activeSpan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stack := t.active[realm]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == entry {
			stack = append(stack[:i], stack[i+1:]...)
			break
		}
	}
	if len(stack) == 0 {
		delete(t.active, realm)
		return
	}
	t.active[realm] = stack
}
