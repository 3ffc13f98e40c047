// Package metrics provides Prometheus metrics for ragdesk.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for ragdesk.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ingestion metrics
	IngestDocumentsTotal *prometheus.CounterVec
	IngestChunksTotal    prometheus.Counter

	// Retrieval metrics
	RetrievalTotal *prometheus.CounterVec
	VectorDegraded prometheus.Gauge

	// Conversation metrics
	ChatTurnsTotal       *prometheus.CounterVec
	PersistFailuresTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates all metrics and registers them with reg.
// A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.IngestDocumentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragdesk_ingest_documents_total",
			Help: "Total number of ingested documents by final status",
		},
		[]string{"status"},
	)

	m.IngestChunksTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ragdesk_ingest_chunks_total",
			Help: "Total number of chunks written to the vector index",
		},
	)

	m.RetrievalTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragdesk_retrieval_total",
			Help: "Total number of retrievals by outcome",
		},
		[]string{"status"},
	)

	m.VectorDegraded = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "ragdesk_vector_degraded",
			Help: "1 when the configured vector backend was unreachable and the in-memory index is in use",
		},
	)

	m.ChatTurnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragdesk_chat_turns_total",
			Help: "Total number of completed chat turns by session state",
		},
		[]string{"state"},
	)

	m.PersistFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ragdesk_persist_failures_total",
			Help: "Total number of chat turns whose answer could not be saved",
		},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragdesk_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route"},
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordIngest records a finished ingestion.
func (m *Metrics) RecordIngest(status string, chunks int) {
	if m == nil {
		return
	}
	m.IngestDocumentsTotal.WithLabelValues(status).Inc()
	if chunks > 0 {
		m.IngestChunksTotal.Add(float64(chunks))
	}
}

// RecordRetrieval records a retrieval outcome.
func (m *Metrics) RecordRetrieval(status string) {
	if m == nil {
		return
	}
	m.RetrievalTotal.WithLabelValues(status).Inc()
}

// SetDegraded records whether the vector index runs in degraded mode.
func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.VectorDegraded.Set(1)
	} else {
		m.VectorDegraded.Set(0)
	}
}

// RecordChatTurn records a completed turn.
func (m *Metrics) RecordChatTurn(state string) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(state).Inc()
}

// RecordPersistFailure records a turn that could not be saved.
func (m *Metrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.PersistFailuresTotal.Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
