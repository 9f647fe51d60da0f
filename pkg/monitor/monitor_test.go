package monitor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/observe/pkg/observable"
)

func metricValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("metric Write() error: %v", err)
	}
	switch {
	case m.Counter != nil:
		return m.GetCounter().GetValue()
	case m.Gauge != nil:
		return m.GetGauge().GetValue()
	}
	t.Fatal("expected a counter or gauge metric")
	return 0
}

func TestPrometheusMonitor_RecordsWrites(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := Prometheus(WithRegistry(reg), WithNamespace("test"))
	realm := observable.NewInlineRealm(observable.WithMonitor(p))

	v := observable.NewWritableValue(1, observable.WithRealm(realm))
	v.AddValueChangingListener(observable.ValueChangingFunc[int](func(ev *observable.ValueChangingEvent[int]) {
		ev.Veto = ev.Diff.NewValue() < 0
	}))
	_ = v.Set(2)
	_ = v.Set(3)
	_ = v.Set(3)
	_ = v.Set(-1)

	if got := metricValue(t, p.m.setsTotal.WithLabelValues("writable", "committed")); got != 2 {
		t.Errorf("committed = %v, want 2", got)
	}
	if got := metricValue(t, p.m.setsTotal.WithLabelValues("writable", "unchanged")); got != 1 {
		t.Errorf("unchanged = %v, want 1", got)
	}
	if got := metricValue(t, p.m.setsTotal.WithLabelValues("writable", "vetoed")); got != 1 {
		t.Errorf("vetoed = %v, want 1", got)
	}
	if got := metricValue(t, p.m.subscribed.WithLabelValues("writable")); got != 1 {
		t.Errorf("subscribed = %v, want 1", got)
	}

	v.Dispose()
	if got := metricValue(t, p.m.subscribed.WithLabelValues("writable")); got != 0 {
		t.Errorf("subscribed after dispose = %v, want 0", got)
	}
	if got := metricValue(t, p.m.disposalsTotal.WithLabelValues("writable")); got != 1 {
		t.Errorf("disposals = %v, want 1", got)
	}
}

func TestPrometheusMonitor_RecordsRecomputes(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := Prometheus(WithRegistry(reg))
	realm := observable.NewInlineRealm(observable.WithMonitor(p))

	children := []observable.Value[string]{
		observable.NewWritableValue("a", observable.WithRealm(realm)),
		observable.NewWritableValue("b", observable.WithRealm(realm)),
	}
	d := observable.NewDuplexingValueWithDefaults(children, "", "*")
	d.Get()
	d.Get()

	if got := metricValue(t, p.m.recomputesTotal.WithLabelValues("duplexing")); got != 2 {
		t.Errorf("recomputes = %v, want 2", got)
	}
}

func TestPrometheus_SameRegistryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := Prometheus(WithRegistry(reg))
	b := Prometheus(WithRegistry(reg))
	if a.m != b.m {
		t.Error("expected collectors to be shared per registry")
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := Prometheus(WithRegistry(reg), WithNamespace("handler"))
	p.Recomputed(observable.NewConstantValue(1))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "handler_recomputes_total") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

// recordingProvider records spans started by its tracer.
type recordingProvider struct {
	noop.TracerProvider
	spans []*recordedSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{p: p}
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, attrs: cfg.Attributes(), parent: trace.SpanFromContext(ctx)}
	t.p.spans = append(t.p.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordedSpan struct {
	noop.Span
	name   string
	attrs  []attribute.KeyValue
	events []string
	errs   []error
	status codes.Code
	ended  bool
	parent trace.Span
}

func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }
func (s *recordedSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.events = append(s.events, name)
}
func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}
func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }
func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.attrs = append(s.attrs, kv...)
}

func (s *recordedSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOpenTelemetry_SpanPerWrite(t *testing.T) {
	tp := &recordingProvider{}
	realm := observable.NewInlineRealm(observable.WithMonitor(OpenTelemetry(WithTracerProvider(tp))))

	v := observable.NewWritableValue("a", observable.WithRealm(realm), observable.WithName("title"))
	if err := v.Set("b"); err != nil {
		t.Fatal(err)
	}

	if len(tp.spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(tp.spans))
	}
	span := tp.spans[0]
	if span.name != SetSpanName || !span.ended {
		t.Errorf("span name=%q ended=%v", span.name, span.ended)
	}
	if name, ok := span.attr("observable.name"); !ok || name.AsString() != "title" {
		t.Errorf("observable.name = %v", name)
	}
	if outcome, ok := span.attr("observable.outcome"); !ok || outcome.AsString() != "committed" {
		t.Errorf("observable.outcome = %v", outcome)
	}
	if span.status != codes.Ok {
		t.Errorf("status = %v, want Ok", span.status)
	}
}

func TestOpenTelemetry_NestsPerRealm(t *testing.T) {
	tp := &recordingProvider{}
	m := OpenTelemetry(WithTracerProvider(tp))
	left := observable.NewInlineRealm(observable.WithMonitor(m))
	right := observable.NewInlineRealm(observable.WithMonitor(m))

	a := observable.NewWritableValue(1, observable.WithRealm(left), observable.WithName("a"))
	b := observable.NewWritableValue(1, observable.WithRealm(right), observable.WithName("b"))
	c := observable.NewWritableValue(1, observable.WithRealm(left), observable.WithName("c"))
	a.AddValueChangeListener(observable.ValueChangeFunc[int](func(ev *observable.ValueChangeEvent[int]) {
		_ = b.Set(ev.Diff.NewValue())
		_ = c.Set(ev.Diff.NewValue())
	}))

	if err := a.Set(2); err != nil {
		t.Fatal(err)
	}
	if len(tp.spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(tp.spans))
	}
	outer, other, same := tp.spans[0], tp.spans[1], tp.spans[2]
	if other.parent == trace.Span(outer) {
		t.Error("a write in another realm should not be parented under this realm's span")
	}
	if same.parent != trace.Span(outer) {
		t.Error("a nested write in the same realm should be parented under the outer span")
	}
	if len(m.active) != 0 {
		t.Errorf("active span stacks left behind: %d", len(m.active))
	}
}

func TestOpenTelemetry_RecordsErrorsAndNesting(t *testing.T) {
	tp := &recordingProvider{}
	realm := observable.NewInlineRealm(observable.WithMonitor(OpenTelemetry(WithTracerProvider(tp))))

	children := []observable.Value[int]{
		observable.NewWritableValue(1, observable.WithRealm(realm)),
		observable.NewConstantValue(1, observable.WithRealm(realm)),
	}
	d := observable.NewDuplexingValueWithDefaults(children, 0, -1)
	err := d.Set(2)
	if !errors.Is(err, observable.ErrUnsupportedOperation) {
		t.Fatalf("expected unsupported child error, got %v", err)
	}

	// duplexing Set, then one span per child write
	if len(tp.spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(tp.spans))
	}
	outer := tp.spans[0]
	for _, child := range tp.spans[1:] {
		if child.parent != trace.Span(outer) {
			t.Error("child writes should be nested under the broadcast span")
		}
	}
	if outer.status != codes.Error || len(outer.errs) != 1 {
		t.Errorf("outer status=%v errs=%d", outer.status, len(outer.errs))
	}
	if len(outer.events) == 0 || outer.events[0] != "observable.recomputed" {
		t.Errorf("outer events = %v", outer.events)
	}
}

func TestOpenTelemetry_Filter(t *testing.T) {
	tp := &recordingProvider{}
	m := OpenTelemetry(
		WithTracerProvider(tp),
		WithFilter(func(o observable.Observable) bool { return o.Name() != "" }),
	)
	realm := observable.NewInlineRealm(observable.WithMonitor(m))

	_ = observable.NewWritableValue(1, observable.WithRealm(realm)).Set(2)
	_ = observable.NewWritableValue(1, observable.WithRealm(realm), observable.WithName("kept")).Set(2)
	if len(tp.spans) != 1 {
		t.Errorf("expected only the named write to be traced, got %d spans", len(tp.spans))
	}
}

type countingMonitor struct {
	sets, recomputes, subscribed, unsubscribed, disposed int
}

func (c *countingMonitor) SetStarted(observable.Observable) func(observable.SetOutcome, error) {
	return func(observable.SetOutcome, error) { c.sets++ }
}
func (c *countingMonitor) Recomputed(observable.Observable)   { c.recomputes++ }
func (c *countingMonitor) Subscribed(observable.Observable)   { c.subscribed++ }
func (c *countingMonitor) Unsubscribed(observable.Observable) { c.unsubscribed++ }
func (c *countingMonitor) Disposed(observable.Observable)     { c.disposed++ }

func TestChain(t *testing.T) {
	a, b := &countingMonitor{}, &countingMonitor{}
	realm := observable.NewInlineRealm(observable.WithMonitor(Chain(a, nil, b)))

	v := observable.NewWritableValue(1, observable.WithRealm(realm))
	sub := v.AddChangeListener(observable.ChangeFunc(func(*observable.ChangeEvent) {}))
	_ = v.Set(2)
	sub.Remove()
	v.Dispose()

	for name, m := range map[string]*countingMonitor{"a": a, "b": b} {
		if m.sets != 1 || m.subscribed != 1 || m.unsubscribed != 1 || m.disposed != 1 {
			t.Errorf("%s = %+v", name, *m)
		}
	}

	if Chain(a) != observable.Monitor(a) {
		t.Error("single monitor chain should return the monitor itself")
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	realm := observable.NewInlineRealm(observable.WithMonitor(Log(logger)))

	v := observable.NewWritableValue(1, observable.WithRealm(realm), observable.WithName("size"))
	v.AddValueChangingListener(observable.ValueChangingFunc[int](func(ev *observable.ValueChangingEvent[int]) {
		ev.Veto = true
	}))
	_ = v.Set(2)

	out := buf.String()
	if !strings.Contains(out, "set rejected") || !strings.Contains(out, "outcome=vetoed") || !strings.Contains(out, "name=size") {
		t.Errorf("log output = %q", out)
	}
}
