package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleplanner_syncd_batches_total",
			Help: "Batches received, by result",
		},
		[]string{"result"},
	)

	batchOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleplanner_syncd_operations_total",
			Help: "Operations in accepted batches, by whether they replaced the stored record",
		},
		[]string{"outcome"},
	)
)
