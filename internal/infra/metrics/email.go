package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(emailSendsTotal, emailSendLatencyMs) }

var emailSendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "email_sends_total",
		Help: "Total email send attempts, labeled by outcome.",
	},
	[]string{"status"}, // 'sent', 'failed'
)

var emailSendLatencyMs = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "email_send_latency_ms",
		Help:    "Email provider call latency distribution in milliseconds.",
		Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	},
)

func IncEmailSend(status string) {
	emailSendsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveEmailSendLatency(ms float64) {
	emailSendLatencyMs.Observe(ms)
}
