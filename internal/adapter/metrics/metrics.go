// Package metrics exposes server instrumentation as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its own registry so tests and embedded servers never collide
// on the default global one.
type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal      *prometheus.CounterVec
	CommandErrors      prometheus.Counter
	ConnectionsTotal   prometheus.Counter
	ConnectionsActive  prometheus.Gauge
	PublishedTotal     prometheus.Counter
	NotificationsTotal prometheus.Counter
	ExpirationsTotal   prometheus.Counter
	SnapshotSaves      prometheus.Counter
	SnapshotFailures   prometheus.Counter
	SnapshotDuration   prometheus.Histogram
}

// New builds the collector set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imdb_commands_total",
			Help: "Requests handled, by action",
		}, []string{"action"}),
		CommandErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "imdb_command_errors_total",
			Help: "Requests answered with an error reply",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "imdb_connections_total",
			Help: "Client connections accepted",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "imdb_connections_active",
			Help: "Client connections currently open",
		}),
		PublishedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "imdb_published_total",
			Help: "Client publish and broadcast operations",
		}),
		NotificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "imdb_update_notifications_total",
			Help: "Automatic mutation notifications published on the updates channel",
		}),
		ExpirationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "imdb_key_expirations_total",
			Help: "Keys removed by TTL expiry",
		}),
		SnapshotSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "imdb_snapshot_saves_total",
			Help: "Snapshot save attempts",
		}),
		SnapshotFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "imdb_snapshot_failures_total",
			Help: "Snapshot saves that returned an error",
		}),
		SnapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "imdb_snapshot_duration_seconds",
			Help:    "Time spent serializing and writing a snapshot",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RegisterKeysGauge exposes the live key count, polled at scrape time.
func (m *Metrics) RegisterKeysGauge(count func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "imdb_keys",
		Help: "Keys currently stored",
	}, count))
}

// RegisterDroppedSubscribersCounter exposes the bus's eviction count,
// polled at scrape time.
func (m *Metrics) RegisterDroppedSubscribersCounter(count func() float64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "imdb_dropped_subscribers_total",
		Help: "Subscribers evicted after failed deliveries",
	}, count))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
