// Package telemetry provides observability via Prometheus metrics, matching
// the registration shape of the prior system's telemetry package trimmed
// down to what the Dispatcher and Account Pool actually emit (SPEC_FULL §2A,
// §4.E, §4.F) — no token, cost, cache, routing, or tenant metrics, since this
// gateway doesn't compute any of those (Non-goals, §1).
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus instrument this gateway registers.
type Metrics struct {
	DispatchDuration *prometheus.HistogramVec
	DispatchTotal    *prometheus.CounterVec
	PoolAccountState *prometheus.GaugeVec
	TranslateTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway's metrics against registry. A
// nil registry registers against the default Prometheus registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_dispatch_duration_seconds",
				Help:    "Upstream dispatch duration in seconds, excluding translation.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		DispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_dispatch_total",
				Help: "Total dispatches by outcome.",
			},
			[]string{"outcome"},
		),
		PoolAccountState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_pool_account_status",
				Help: "Current status of each pool account (1 = in this status).",
			},
			[]string{"account_id", "status"},
		),
		TranslateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_translate_total",
				Help: "Total translations by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveDispatchDuration implements dispatch.Metrics.
func (m *Metrics) ObserveDispatchDuration(outcome string, seconds float64) {
	m.DispatchDuration.WithLabelValues(outcome).Observe(seconds)
}

// IncDispatchTotal implements dispatch.Metrics.
func (m *Metrics) IncDispatchTotal(outcome string) {
	m.DispatchTotal.WithLabelValues(outcome).Inc()
}

// allAccountStatuses lists every status label SetAccountStatus clears on a
// transition, so stale series don't linger at 1 after a status change.
var allAccountStatuses = []string{"active", "cooldown", "invalid", "disabled"}

// SetAccountStatus mirrors one pool status transition into the gauge
// vector. The pool invokes this via its status hook while still holding
// its lock (SPEC_FULL §4.E), so concurrent transitions on one account can
// never reorder the gauge relative to the transition that produced it.
func (m *Metrics) SetAccountStatus(accountID, status string) {
	for _, s := range allAccountStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.PoolAccountState.WithLabelValues(accountID, s).Set(v)
	}
}

// IncTranslateTotal records one translation outcome.
func (m *Metrics) IncTranslateTotal(outcome string) {
	m.TranslateTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
