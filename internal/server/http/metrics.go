package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ekisa-team/infero/predictor"
)

const namespace = "infero"

// Metrics holds the prediction collectors exposed on /metrics.
type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	ready       prometheus.Gauge
}

// NewMetrics creates a registry with process, runtime and prediction collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by route and outcome.",
		}, []string{"route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_time_seconds",
			Help:      "Wall time spent in the predictor.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"route"}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 once every worker finished setup.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.predictions,
		m.duration,
		m.ready,
	)

	return m
}

// ObservePrediction records one prediction. An empty kind is a success.
func (m *Metrics) ObservePrediction(route string, kind predictor.Kind, elapsed float64) {
	if m == nil {
		return
	}

	if kind != "" {
		m.predictions.WithLabelValues(route, string(kind)).Inc()
		return
	}

	m.predictions.WithLabelValues(route, "ok").Inc()
	m.duration.WithLabelValues(route).Observe(elapsed)
}

// SetReady records readiness.
func (m *Metrics) SetReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ready.Set(1)
	} else {
		m.ready.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
