// Package monitor provides observable.Monitor implementations for
// production realms.
//
// This package includes:
//   - Prometheus metrics for writes, recomputations, subscriptions and disposals
//   - OpenTelemetry tracing with one span per write
//   - Structured logging of rejected writes
//
// Monitors are installed per realm:
//
//	realm := observable.NewRealm(
//	    observable.WithMonitor(monitor.Chain(
//	        monitor.Prometheus(monitor.WithNamespace("myapp")),
//	        monitor.OpenTelemetry(),
//	        monitor.Log(logger),
//	    )),
//	)
//
// # Prometheus Metrics
//
//   - observe_sets_total{kind,outcome}: Total writes by outcome
//   - observe_set_duration_seconds{kind}: Write duration histogram
//   - observe_recomputes_total{kind}: Derived value recomputations
//   - observe_disposals_total{kind}: Disposed observables
//   - observe_subscribed_observables{kind}: Observables with listeners
//
// Expose them with Handler:
//
//	http.Handle("/metrics", monitor.Handler(nil))
package monitor
