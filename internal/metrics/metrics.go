// Package metrics exposes render counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "temple"

// Metrics groups the collectors updated by the render service.
type Metrics struct {
	registry   *prometheus.Registry
	renders    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	candidates prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render invocations by command and outcome.",
		}, []string{"command", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Wall time of render invocations.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"command"}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "template_candidates",
			Help:      "Templates offered by the last candidate listing.",
		}),
	}
	m.registry.MustRegister(m.renders, m.duration, m.candidates)
	return m
}

// ObserveRender records one finished invocation.
func (m *Metrics) ObserveRender(command, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(command, status).Inc()
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// SetCandidates records the size of the candidate pool.
func (m *Metrics) SetCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
