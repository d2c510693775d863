// internal/server/metrics.go
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codies",
		Name:      "rooms",
		Help:      "Number of live rooms.",
	})

	metricClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "codies",
		Name:      "clients",
		Help:      "Number of connected clients.",
	})

	metricReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codies",
		Name:      "received_total",
		Help:      "Total number of received commands.",
	})

	metricSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codies",
		Name:      "sent_total",
		Help:      "Total number of sent state messages.",
	})

	metricStale = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codies",
		Name:      "stale_total",
		Help:      "Total number of commands rejected for carrying a stale version.",
	})

	metricHandleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codies",
		Name:      "handle_error_total",
		Help:      "Total number of malformed commands.",
	})
)
