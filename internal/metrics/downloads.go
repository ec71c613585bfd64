// Package metrics provides Prometheus metrics for the download engine and updater.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Download outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

var (
	downloadsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "myle",
		Subsystem: "downloads",
		Name:      "active",
		Help:      "Number of downloads currently in flight",
	})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myle",
		Subsystem: "downloads",
		Name:      "total",
		Help:      "Finished downloads by outcome",
	}, []string{"status"})

	downloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "myle",
		Subsystem: "downloads",
		Name:      "bytes_total",
		Help:      "Bytes written to disk by the download engine",
	})

	// Local cache for the status endpoint.
	snapshot   DownloadSnapshot
	snapshotMu sync.RWMutex
)

// DownloadSnapshot holds current download counters.
type DownloadSnapshot struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
	Bytes     int64 `json:"bytes"`
}

// DownloadStarted records a job entering the active set.
func DownloadStarted() {
	downloadsActive.Inc()
	snapshotMu.Lock()
	snapshot.Active++
	snapshotMu.Unlock()
}

// DownloadFinished records a job leaving the active set with the given outcome.
func DownloadFinished(outcome string) {
	downloadsActive.Dec()
	downloadsTotal.WithLabelValues(outcome).Inc()

	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	snapshot.Active--
	switch outcome {
	case OutcomeCompleted:
		snapshot.Completed++
	case OutcomeError:
		snapshot.Failed++
	case OutcomeCancelled:
		snapshot.Cancelled++
	}
}

// AddDownloadedBytes adds n to the bytes counter.
func AddDownloadedBytes(n int) {
	if n <= 0 {
		return
	}
	downloadBytes.Add(float64(n))
	snapshotMu.Lock()
	snapshot.Bytes += int64(n)
	snapshotMu.Unlock()
}

// Downloads returns a copy of the current download counters.
func Downloads() DownloadSnapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}
