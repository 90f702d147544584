package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes recorded by the stores.
const (
	OutcomeOK    = "ok"
	OutcomeNoop  = "noop"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors of the app on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	storeOps        *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketapp",
			Name:      "store_operations_total",
			Help:      "Session and ticket store operations by outcome.",
		}, []string{"store", "operation", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketapp",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ticketapp",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketapp",
			Name:      "http_errors_total",
			Help:      "HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
	}
	m.registry.MustRegister(m.storeOps, m.requests, m.requestDuration, m.requestErrors)
	return m
}

// RecordStoreOp counts one store operation.
func (m *Metrics) RecordStoreOp(store, op, outcome string) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(store, op, outcome).Inc()
}

// RecordRequest counts one handled HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(path, method, code).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
