package references

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeResolved string = "resolved"
	outcomeAbsent   string = "absent"
	outcomeFailed   string = "failed"
)

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "inventory",
		Name:      "reference_lookups_total",
		Help:      "Number of reference lookups issued against the storage service, by collection and outcome.",
	},
	[]string{"collection", "outcome"},
)

var batches = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "inventory",
		Name:      "reference_batch_lookups",
		Help:      "Number of distinct lookups needed to resolve one batch of items.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	},
)
