package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the control plane's Prometheus collectors on an isolated
// registry, so they never collide with the default global registry.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal          *prometheus.CounterVec
	RequestDurationSeconds *prometheus.HistogramVec
	WSClientsActive        prometheus.Gauge
}

// NewMetrics builds a Metrics instance with every collector registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shard_node_control_requests_total",
			Help: "Total control-plane HTTP requests.",
		}, []string{"method", "path", "status"}),
		RequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shard_node_control_request_duration_seconds",
			Help:    "Control-plane HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		WSClientsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shard_node_control_ws_clients_active",
			Help: "Currently connected /telemetry/ws clients.",
		}),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDurationSeconds, m.WSClientsActive)
	return m
}
