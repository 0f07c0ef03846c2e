// Package observability exposes warroom's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the process's instruments on a private registry so
// multiple instances (tests, mainly) never collide.
type Metrics struct {
	registry *prometheus.Registry

	EventsPublished   prometheus.Counter
	EventsDropped     prometheus.Counter
	ConnectionsActive prometheus.Gauge
	MessagesReceived  prometheus.Counter
	MessagesDropped   prometheus.Counter
	AutosaveRuns      prometheus.Counter
}

// New creates and registers the full instrument set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warroom_bus_events_published_total",
			Help: "Events published onto the bus.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warroom_bus_events_dropped_total",
			Help: "Events shed from slow subscriber buffers.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warroom_gateway_connections_active",
			Help: "Currently open gateway connections.",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warroom_gateway_messages_received_total",
			Help: "Inbound gateway messages successfully decoded.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warroom_gateway_messages_dropped_total",
			Help: "Inbound gateway messages dropped as unknown or malformed.",
		}),
		AutosaveRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warroom_autosave_runs_total",
			Help: "Completed autosave ticks.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EventsPublished,
		m.EventsDropped,
		m.ConnectionsActive,
		m.MessagesReceived,
		m.MessagesDropped,
		m.AutosaveRuns,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
