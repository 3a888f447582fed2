// Package metrics exposes Prometheus counters for the allocation core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DepositsProcessed counts committed deposit fan-outs.
	DepositsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bucketeer",
		Name:      "deposits_processed_total",
		Help:      "Number of deposits successfully fanned out across buckets.",
	})

	// Redistributions counts committed money-bucket redistributions.
	Redistributions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bucketeer",
		Name:      "redistributions_total",
		Help:      "Number of redistributions from the money bucket into buckets.",
	})

	// Reorders counts committed priority reorders.
	Reorders = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bucketeer",
		Name:      "reorders_total",
		Help:      "Number of atomic bucket priority reorders.",
	})

	// Transfers counts committed withdrawals and bucket-to-bucket transfers.
	Transfers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bucketeer",
		Name:      "transfers_total",
		Help:      "Number of withdrawals and transfers between buckets.",
	})

	// TransactionRollbacks counts units of work aborted by the storage layer.
	TransactionRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bucketeer",
		Name:      "transaction_rollbacks_total",
		Help:      "Number of multi-row units of work rolled back.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
