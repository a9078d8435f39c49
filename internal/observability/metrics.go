package observability

import "github.com/prometheus/client_golang/prometheus"

// Chat requests block on model inference, so request latency runs far past
// the default bucket ceiling. The upper buckets track the 120s write timeout.
var httpDurationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridepulse_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ridepulse_http_request_duration_seconds",
			Help:    "HTTP request latency by route, including inference time on chat requests.",
			Buckets: httpDurationBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds)
}
