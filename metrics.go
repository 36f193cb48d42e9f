package hyperate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus collectors for one Client.
type metrics struct {
	received       *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	sent           *prometheus.CounterVec
	connects       prometheus.Counter
	disconnects    prometheus.Counter
	reconnects     prometheus.Counter
	joinedChannels prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &metrics{
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound messages by packet kind",
		}, []string{"kind"}),

		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped by the classifier",
		}, []string{"reason"}),

		sent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages by event",
		}, []string{"event"}),

		connects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Successful connections",
		}),

		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Connections closed or lost",
		}),

		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Completed Reconnect calls",
		}),

		joinedChannels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "joined_channels",
			Help:      "Channels currently joined on the open connection",
		}),
	}
}
