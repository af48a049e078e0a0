package persist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neonbeat_store_writes_total",
		Help: "Documents written to the store, by entity kind.",
	}, []string{"entity"})

	conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neonbeat_store_conflicts_total",
		Help: "Optimistic-concurrency conflicts observed, by entity kind.",
	}, []string{"entity"})
)
