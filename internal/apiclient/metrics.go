package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_api_requests_total",
			Help: "Total number of billing API calls made by the console.",
		},
		[]string{"operation", "code"},
	)
	apiRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_api_request_duration_seconds",
			Help:    "Billing API call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func observeAPICall(operation, code string, dur time.Duration) {
	apiRequestsTotal.WithLabelValues(operation, code).Inc()
	apiRequestDurationSeconds.WithLabelValues(operation).Observe(dur.Seconds())
}
