package monitor

import (
	"log/slog"

	"github.com/vango-dev/observe/pkg/observable"
)

// Chain returns a monitor that forwards every callback to each of ms in
// order. Nil monitors are skipped.
func Chain(ms ...observable.Monitor) observable.Monitor {
	var c chain
	for _, m := range ms {
		if m != nil {
			c = append(c, m)
		}
	}
	if len(c) == 1 {
		return c[0]
	}
	return c
}

type chain []observable.Monitor

func (c chain) SetStarted(o observable.Observable) func(observable.SetOutcome, error) {
	dones := make([]func(observable.SetOutcome, error), 0, len(c))
	for _, m := range c {
		if done := m.SetStarted(o); done != nil {
			dones = append(dones, done)
		}
	}
	return func(outcome observable.SetOutcome, err error) {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](outcome, err)
		}
	}
}

func (c chain) Recomputed(o observable.Observable) {
	for _, m := range c {
		m.Recomputed(o)
	}
}

func (c chain) Subscribed(o observable.Observable) {
	for _, m := range c {
		m.Subscribed(o)
	}
}

func (c chain) Unsubscribed(o observable.Observable) {
	for _, m := range c {
		m.Unsubscribed(o)
	}
}

func (c chain) Disposed(o observable.Observable) {
	for _, m := range c {
		m.Disposed(o)
	}
}

// Log returns a monitor that logs vetoed and failed writes at warn level and
// every other callback at debug level.
func Log(logger *slog.Logger) observable.Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return logMonitor{logger: logger.With("component", "observable")}
}

type logMonitor struct {
	logger *slog.Logger
}

func (l logMonitor) SetStarted(o observable.Observable) func(observable.SetOutcome, error) {
	return func(outcome observable.SetOutcome, err error) {
		attrs := []any{"id", o.ID(), "kind", o.Kind(), "name", o.Name(), "outcome", outcome.String()}
		switch outcome {
		case observable.SetVetoed, observable.SetFailed:
			l.logger.Warn("set rejected", append(attrs, "error", err)...)
		default:
			l.logger.Debug("set", attrs...)
		}
	}
}

func (l logMonitor) Recomputed(o observable.Observable) {
	l.logger.Debug("recomputed", "id", o.ID(), "kind", o.Kind(), "name", o.Name())
}

func (l logMonitor) Subscribed(o observable.Observable) {
	l.logger.Debug("subscribed", "id", o.ID(), "kind", o.Kind(), "name", o.Name())
}

func (l logMonitor) Unsubscribed(o observable.Observable) {
	l.logger.Debug("unsubscribed", "id", o.ID(), "kind", o.Kind(), "name", o.Name())
}

func (l logMonitor) Disposed(o observable.Observable) {
	l.logger.Debug("disposed", "id", o.ID(), "kind", o.Kind(), "name", o.Name())
}
