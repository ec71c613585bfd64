package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Update check result labels.
const (
	CheckAvailable    = "available"
	CheckNotAvailable = "not_available"
	CheckFailed       = "failed"
)

var (
	updateChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myle",
		Subsystem: "updater",
		Name:      "checks_total",
		Help:      "Update checks by result",
	}, []string{"result"})

	updateRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "myle",
		Subsystem: "updater",
		Name:      "retries_total",
		Help:      "Automatic update download retries",
	})
)

// RecordUpdateCheck counts a finished update check.
func RecordUpdateCheck(result string) {
	updateChecks.WithLabelValues(result).Inc()
}

// RecordUpdateRetry counts one scheduled download retry.
func RecordUpdateRetry() {
	updateRetries.Inc()
}
