package datasync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roleplanner_sync_queue_depth",
			Help: "Number of writes waiting to be pushed to the sync receiver",
		},
	)

	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleplanner_sync_batches_total",
			Help: "Batch push attempts by result",
		},
		[]string{"result"},
	)

	operationsPushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roleplanner_sync_operations_pushed_total",
			Help: "Writes accepted by the sync receiver",
		},
	)

	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roleplanner_cache_evictions_total",
			Help: "Expired cache entries removed, by trigger",
		},
		[]string{"trigger"},
	)
)
