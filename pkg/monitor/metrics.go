package monitor

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/observe/pkg/observable"
)

// MetricsConfig configures the Prometheus monitor.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "observe").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for write duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus monitor.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "observe",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus collectors of one registry.
type metrics struct {
	setsTotal       *prometheus.CounterVec
	setDuration     *prometheus.HistogramVec
	recomputesTotal *prometheus.CounterVec
	disposalsTotal  *prometheus.CounterVec
	subscribed      *prometheus.GaugeVec
}

// registered caches metrics per registry so repeated Prometheus calls do not
// register the same collectors twice.
var (
	registeredMu sync.Mutex
	registered   = map[prometheus.Registerer]*metrics{}
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		setsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sets_total",
			Help:        "Total number of observable writes by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "outcome"}),

		setDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "set_duration_seconds",
			Help:        "Observable write duration in seconds, including listener dispatch",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		recomputesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total number of derived value recomputations",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		disposalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "disposals_total",
			Help:        "Total number of disposed observables",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		subscribed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribed_observables",
			Help:        "Number of observables that currently have listeners",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// PrometheusMonitor records observable activity as Prometheus metrics.
type PrometheusMonitor struct {
	m *metrics
}

// Prometheus creates a monitor that collects Prometheus metrics.
//
// Metrics collected:
//   - observe_sets_total: Counter of writes by kind and outcome
//   - observe_set_duration_seconds: Histogram of write duration by kind
//   - observe_recomputes_total: Counter of derived value recomputations
//   - observe_disposals_total: Counter of disposed observables
//   - observe_subscribed_observables: Gauge of observables with listeners
//
// Example:
//
//	realm := observable.NewRealm(
//	    observable.WithMonitor(monitor.Prometheus(
//	        monitor.WithNamespace("myapp"),
//	    )),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *PrometheusMonitor {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	registeredMu.Lock()
	m, ok := registered[config.Registry]
	if !ok {
		m = initMetrics(config)
		registered[config.Registry] = m
	}
	registeredMu.Unlock()

	return &PrometheusMonitor{m: m}
}

// SetStarted implements observable.Monitor.
func (p *PrometheusMonitor) SetStarted(o observable.Observable) func(observable.SetOutcome, error) {
	kind := string(o.Kind())
	start := time.Now()
	return func(outcome observable.SetOutcome, _ error) {
		p.m.setDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		p.m.setsTotal.WithLabelValues(kind, outcome.String()).Inc()
	}
}

// Recomputed implements observable.Monitor.
func (p *PrometheusMonitor) Recomputed(o observable.Observable) {
	p.m.recomputesTotal.WithLabelValues(string(o.Kind())).Inc()
}

// Subscribed implements observable.Monitor.
func (p *PrometheusMonitor) Subscribed(o observable.Observable) {
	p.m.subscribed.WithLabelValues(string(o.Kind())).Inc()
}

// Unsubscribed implements observable.Monitor.
func (p *PrometheusMonitor) Unsubscribed(o observable.Observable) {
	p.m.subscribed.WithLabelValues(string(o.Kind())).Dec()
}

// Disposed implements observable.Monitor.
func (p *PrometheusMonitor) Disposed(o observable.Observable) {
	p.m.disposalsTotal.WithLabelValues(string(o.Kind())).Inc()
}

// Handler returns an HTTP handler exposing the metrics of g. A nil g uses
// the default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
