package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bucketOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "crm",
	Subsystem: "storage",
	Name:      "operations_total",
	Help:      "Bucket operations by operation and result.",
}, []string{"op", "result"})

func observe(op Op, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	bucketOps.WithLabelValues(string(op), result).Inc()
}
