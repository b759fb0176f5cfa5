// Package prom provides a Prometheus-backed scope.Observer.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cancelkit/cancelscope/scope"
)

// Metrics is a scope.Observer that reports through Prometheus client_golang
// metrics. Register it with a prometheus.Registerer once and attach it to
// every Scope that should contribute to it.
type Metrics struct {
	scopesEntered prometheus.Counter
	scopesExited  prometheus.Counter
	cancelledBy   *prometheus.CounterVec
	cancelledDur  prometheus.Histogram
	triggerPanics prometheus.Counter
}

// New returns a Metrics observer with freshly constructed metrics, not yet
// registered with any registry.
func New() *Metrics {
	return &Metrics{
		scopesEntered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cancelscope",
			Name:      "scopes_entered_total",
			Help:      "Total number of Scope.Enter calls that succeeded.",
		}),
		scopesExited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cancelscope",
			Name:      "scopes_exited_total",
			Help:      "Total number of Scope.Exit calls.",
		}),
		cancelledBy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cancelscope",
			Name:      "scope_cancel_reasons_total",
			Help:      "Total number of recorded CancelReasons, labeled by kind.",
		}, []string{"kind"}),
		cancelledDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cancelscope",
			Name:      "scope_cancelled_duration_seconds",
			Help:      "Time a cancelled scope spent between Enter and Exit.",
			Buckets:   prometheus.DefBuckets,
		}),
		triggerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cancelscope",
			Name:      "trigger_panics_total",
			Help:      "Total number of Trigger callback panics recovered by the dispatcher.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.scopesEntered.Describe(ch)
	m.scopesExited.Describe(ch)
	m.cancelledBy.Describe(ch)
	m.cancelledDur.Describe(ch)
	m.triggerPanics.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.scopesEntered.Collect(ch)
	m.scopesExited.Collect(ch)
	m.cancelledBy.Collect(ch)
	m.cancelledDur.Collect(ch)
	m.triggerPanics.Collect(ch)
}

// ScopeEntered records scope entry.
func (m *Metrics) ScopeEntered(context.Context) {
	m.scopesEntered.Inc()
}

// ScopeExited records scope exit, and — if the scope was cancelled — the
// elapsed duration and a per-Kind count of every recorded CancelReason.
func (m *Metrics) ScopeExited(_ context.Context, cancelled bool, reasons []scope.CancelReason, dur time.Duration) {
	m.scopesExited.Inc()
	if !cancelled {
		return
	}
	m.cancelledDur.Observe(dur.Seconds())
	for _, r := range reasons {
		m.cancelledBy.WithLabelValues(r.Kind().String()).Inc()
	}
}

// TriggerFired is a no-op: the eventual CancelReason is already accounted
// for by ScopeExited, and recording every individual firing as well would
// double count scopes with more than one Trigger.
func (m *Metrics) TriggerFired(context.Context, scope.CancelReason) {}

// TriggerPanic records a Trigger callback panic recovered by the dispatcher.
func (m *Metrics) TriggerPanic(context.Context, any) {
	m.triggerPanics.Inc()
}

var (
	_ prometheus.Collector = (*Metrics)(nil)
	_ scope.Observer       = (*Metrics)(nil)
)
