package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(claimRetriesTotal, claimBatchSize) }

var claimRetriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "claim_retries_total",
		Help: "Count of claim attempts that failed at the transport level.",
	},
)

var claimBatchSize = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "claim_batch_size",
		Help:    "Distribution of claimed batch sizes per poll cycle.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	},
)

func IncClaimRetry() {
	claimRetriesTotal.Inc()
}

func ObserveClaimBatch(n int) {
	claimBatchSize.Observe(float64(n))
}
