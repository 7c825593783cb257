package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(summaryJobsProcessedTotal, jobDurationMs) }

var summaryJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "summary_jobs_processed_total",
		Help: "Total number of summary jobs processed, labeled by outcome.",
	},
	[]string{"status"}, // 'sent', 'failed'
)

var jobDurationMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "summary_job_duration_ms",
		Help:    "Per-job pipeline duration distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"status"},
)

func IncJob(status string) {
	summaryJobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveJobDuration(status string, ms float64) {
	jobDurationMs.WithLabelValues(norm(status)).Observe(ms)
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
