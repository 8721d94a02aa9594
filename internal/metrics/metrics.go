// Package metrics exposes pubrt's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pubrt"

// Rejection reasons for RecordRejected.
const (
	ReasonInvalidBody = "invalid_body"
	ReasonNotObject   = "not_object"
	ReasonTooLarge    = "too_large"
)

// Metrics holds every collector the server updates.
type Metrics struct {
	registry *prometheus.Registry

	recordsIngested prometheus.Counter
	recordsRejected *prometheus.CounterVec
	streamsActive   prometheus.Gauge
	streamsOpened   prometheus.Counter
	eventsDelivered prometheus.Counter

	batchCommit   prometheus.Histogram
	readBytes     prometheus.Counter
	readDurations prometheus.Histogram
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Records accepted and appended to the buffer",
		}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rejected_total",
			Help:      "Ingest requests rejected before append",
		}, []string{"reason"}),
		streamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions_active",
			Help:      "Stream sessions currently open",
		}),
		streamsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions_total",
			Help:      "Stream sessions opened since start",
		}),
		eventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Events written to stream sessions",
		}),
		batchCommit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_commit_seconds",
			Help:      "Pebble batch commit latency",
			Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_bytes_total",
			Help:      "Bytes read from Pebble",
		}),
		readDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "read_seconds",
			Help:      "Pebble point read latency",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.recordsIngested,
		m.recordsRejected,
		m.streamsActive,
		m.streamsOpened,
		m.eventsDelivered,
		m.batchCommit,
		m.readBytes,
		m.readDurations,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackBufferLength exports length() as the buffer size gauge.
func (m *Metrics) TrackBufferLength(length func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "buffer",
		Name:      "records",
		Help:      "Records currently held in the buffer",
	}, func() float64 { return float64(length()) }))
}

func (m *Metrics) RecordIngested() { m.recordsIngested.Inc() }

func (m *Metrics) RecordRejected(reason string) { m.recordsRejected.WithLabelValues(reason).Inc() }

// StreamOpened counts a new session and returns the matching close func.
func (m *Metrics) StreamOpened() (closed func()) {
	m.streamsOpened.Inc()
	m.streamsActive.Inc()
	return m.streamsActive.Dec
}

func (m *Metrics) EventDelivered() { m.eventsDelivered.Inc() }

// ObserveRead implements pebblestore.MetricsHook.
func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.readDurations.Observe(elapsed.Seconds())
	m.readBytes.Add(float64(bytes))
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, _ int, _ int) {
	m.batchCommit.Observe(elapsed.Seconds())
}
