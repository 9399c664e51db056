package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_live_connections",
			Help: "Current number of live websocket connections",
		},
	)

	notificationsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_notifications_delivered_total",
			Help: "Notifications delivered over a live connection",
		},
	)

	notificationsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_notifications_persisted_total",
			Help: "Notifications stored for offline recipients",
		},
	)

	notificationsDrained = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_notifications_drained_total",
			Help: "Stored notifications replayed on reconnect",
		},
	)
)
