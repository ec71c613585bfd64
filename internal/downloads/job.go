package downloads

import (
	"context"
	"sync"

	"github.com/myle-app/myle/internal/events"
)

type job struct {
	id         string
	url        string
	hint       string
	onProgress func(received, total int64)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	started  bool
	paused   bool
	resumeCh chan struct{}
	finalURL string
	path     string
	total    int64
	received int64
}

func (j *job) tempPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.path == "" {
		return ""
	}
	return j.path + partSuffix
}

// waitIfPaused blocks while the job is paused. The transport holds the unread body,
// so nothing is buffered in the meantime.
func (j *job) waitIfPaused(ctx context.Context) error {
	j.mu.Lock()
	if !j.paused {
		j.mu.Unlock()
		return nil
	}
	ch := j.resumeCh
	j.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *job) info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobInfo{
		ID:       j.id,
		URL:      j.finalURL,
		Path:     j.path,
		Total:    j.total,
		Received: j.received,
		Paused:   j.paused,
	}
}

func percentOf(received, total int64) *int {
	if total <= 0 {
		return nil
	}
	p := int(received * 100 / total)
	return &p
}

func (j *job) progressEvent() events.DownloadEvent {
	return events.DownloadEvent{
		ID:       j.id,
		Status:   events.DownloadProgress,
		Total:    j.total,
		Received: j.received,
		Percent:  percentOf(j.received, j.total),
	}
}
