// Package metrics exposes Prometheus collectors for HTTP traffic and for the
// AccuLynx sync pipeline. Label sets are kept to bounded enums (route
// patterns, sync statuses, outcomes) so cardinality stays fixed.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service reports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	syncAttempts  *prometheus.CounterVec
	photoUploads  *prometheus.CounterVec
	retryOutcomes *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	webhookEvents *prometheus.CounterVec
	crmLatency    *prometheus.HistogramVec
}

// New creates collectors on a private registry, including Go runtime and
// process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_inflight",
				Help: "Current number of in-flight HTTP requests.",
			},
		),
		syncAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acculynx_sync_attempts_total",
				Help: "Order sync attempts by trigger and resulting sync status.",
			},
			[]string{"trigger", "sync_status"},
		),
		photoUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acculynx_photo_uploads_total",
				Help: "Individual photo uploads by result.",
			},
			[]string{"result"},
		),
		retryOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acculynx_retry_outcomes_total",
				Help: "Per-order retry sweep outcomes.",
			},
			[]string{"outcome"},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "acculynx_retry_sweep_duration_seconds",
				Help:    "Duration of retry sweeps in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 240},
			},
		),
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acculynx_webhook_events_total",
				Help: "Inbound AccuLynx webhooks by result.",
			},
			[]string{"result"},
		),
		crmLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acculynx_request_duration_seconds",
				Help:    "Duration of outbound AccuLynx calls by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpLatency, m.httpInflight,
		m.syncAttempts, m.photoUploads, m.retryOutcomes, m.sweepDuration,
		m.webhookEvents, m.crmLatency,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SyncAttempt(trigger, syncStatus string) {
	if m == nil {
		return
	}
	m.syncAttempts.WithLabelValues(trigger, syncStatus).Inc()
}

func (m *Metrics) PhotoUpload(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.photoUploads.WithLabelValues(result).Inc()
}

func (m *Metrics) RetryOutcome(outcome string) {
	if m == nil {
		return
	}
	m.retryOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SweepDuration(seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(seconds)
}

func (m *Metrics) WebhookEvent(result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) CRMRequest(op string, seconds float64) {
	if m == nil {
		return
	}
	m.crmLatency.WithLabelValues(op).Observe(seconds)
}
