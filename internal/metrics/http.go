package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myle",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "API requests by operation and status code",
	}, []string{"operation", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "myle",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API request latency by operation, streams excluded",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// HTTPHandler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest counts a finished API request. A zero duration skips the latency histogram.
func ObserveRequest(operation string, status int, d time.Duration) {
	httpRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	if d > 0 {
		httpDuration.WithLabelValues(operation).Observe(d.Seconds())
	}
}
