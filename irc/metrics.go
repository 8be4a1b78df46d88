package irc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the per-server Prometheus metric set. Each Server carries
// its own registry so tests can run several servers in one process.
type Metrics struct {
	Registry *prometheus.Registry

	connections   prometheus.Counter
	registrations prometheus.Counter
	linesIn       prometheus.Counter
	linesOut      prometheus.Counter
	messages      *prometheus.CounterVec
}

// NewMetrics creates a metric set on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		connections: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_connections_total",
			Help: "Total accepted client connections",
		}),
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_registrations_total",
			Help: "Total completed client registrations",
		}),
		linesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_lines_in_total",
			Help: "Total protocol lines read from clients",
		}),
		linesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_lines_out_total",
			Help: "Total protocol lines written to clients",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircd_messages_total",
			Help: "Total relayed messages by command",
		}, []string{"command"}),
	}
}
