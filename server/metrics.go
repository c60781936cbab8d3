package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a dedicated
// registry so tests can run multiple servers without collisions.
type Metrics struct {
	registry *prometheus.Registry

	analysesTotal    prometheus.Counter
	analysisDuration prometheus.Histogram
	verdictsTotal    *prometheus.CounterVec
	chatTurnsTotal   *prometheus.CounterVec
	modelFailures    prometheus.Counter
}

// NewMetrics creates and registers the server's collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		analysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reqalign",
			Name:      "analyses_total",
			Help:      "Completed coverage analyses.",
		}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reqalign",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of the analysis pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqalign",
			Name:      "verdicts_total",
			Help:      "Coverage verdicts by kind.",
		}, []string{"verdict"}),
		chatTurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqalign",
			Name:      "chat_turns_total",
			Help:      "Chat turns by outcome.",
		}, []string{"outcome"}),
		modelFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reqalign",
			Name:      "model_failures_total",
			Help:      "Model calls that ended in a fallback reply.",
		}),
	}

	registry.MustRegister(
		m.analysesTotal,
		m.analysisDuration,
		m.verdictsTotal,
		m.chatTurnsTotal,
		m.modelFailures,
	)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
