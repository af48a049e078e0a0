package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neonbeat_sse_events_total",
		Help: "Events published, by stream.",
	}, []string{"stream"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neonbeat_sse_dropped_subscribers_total",
		Help: "Subscribers dropped for falling behind, by stream.",
	}, []string{"stream"})
)
