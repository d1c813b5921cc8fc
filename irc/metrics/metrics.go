// Package metrics exposes Prometheus counters/gauges for the IRC server,
// re-expressing the teacher's hand-rolled, mutex-guarded ServerStats as
// prometheus.Collector-backed instruments (which are internally
// synchronized, so nothing here needs its own lock either).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters the admin HTTP surface exposes at /metrics.
type Metrics struct {
	Connections      prometheus.Counter
	ActiveConnection prometheus.Gauge
	Channels         prometheus.Gauge
	MessagesRelayed  prometheus.Counter
	Disconnects      prometheus.Counter
}

// New creates and registers the server's metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ircd_connections_total",
			Help: "Total accepted TCP connections.",
		}),
		ActiveConnection: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ircd_active_connections",
			Help: "Currently connected clients.",
		}),
		Channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ircd_channels",
			Help: "Currently existing channels.",
		}),
		MessagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ircd_messages_relayed_total",
			Help: "Total PRIVMSG/NOTICE messages relayed.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ircd_disconnects_total",
			Help: "Total client disconnections.",
		}),
	}

	reg.MustRegister(m.Connections, m.ActiveConnection, m.Channels, m.MessagesRelayed, m.Disconnects)
	return m
}
