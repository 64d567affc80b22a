// Package metrics holds the prometheus collectors of the UI runtime.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync event labels.
const (
	SyncPush      = "push"
	SyncPull      = "pull"
	SyncAbsorbed  = "absorbed"
	SyncCorrected = "corrected"
	SyncHydrated  = "hydrated"
	SyncDiscarded = "discarded"
)

// Metrics groups the runtime collectors.
type Metrics struct {
	renders        prometheus.Counter
	renderFailures prometheus.Counter
	swaps          *prometheus.CounterVec
	services       prometheus.Gauge
	sync           *prometheus.CounterVec
}

// New registers the runtime collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		renders: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tealens",
			Name:      "renders_total",
			Help:      "Frames handed to the renderer.",
		}),
		renderFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tealens",
			Name:      "render_failures_total",
			Help:      "Frames whose view or patch step failed.",
		}),
		swaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tealens",
			Name:      "swaps_total",
			Help:      "Hot-swap attempts by result.",
		}, []string{"result"}),
		services: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "tealens",
			Name:      "live_services",
			Help:      "Services started and not yet torn down.",
		}),
		sync: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tealens",
			Name:      "sync_events_total",
			Help:      "External-sync connector events.",
		}, []string{"connector", "event"}),
	}
}

// Render records one render attempt.
func (m *Metrics) Render(err error) {
	if m == nil {
		return
	}
	m.renders.Inc()
	if err != nil {
		m.renderFailures.Inc()
	}
}

// Swap records a hot-swap outcome.
func (m *Metrics) Swap(result string) {
	if m == nil {
		return
	}
	m.swaps.WithLabelValues(result).Inc()
}

// ServicesStarted adjusts the live service gauge.
func (m *Metrics) ServicesStarted(n int) {
	if m == nil {
		return
	}
	m.services.Add(float64(n))
}

// Sync records a connector event.
func (m *Metrics) Sync(connector, event string) {
	if m == nil {
		return
	}
	m.sync.WithLabelValues(connector, event).Inc()
}
