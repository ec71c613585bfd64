package logging

import (
	"sync"
	"time"
)

// LogEntry represents a single log line stored in the ring buffer.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent entries. Sequence numbers start at 1 and
// entry n lives in slot (n-1) mod capacity.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	seq     uint64
}

// NewRingBuffer creates a ring buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, max(size, 1))}
}

// Write stamps entry with the next sequence number, stores it over the oldest
// entry when full, and returns the stamped entry.
func (rb *RingBuffer) Write(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.slot(rb.seq)] = entry
	return entry
}

// ReadAll returns the retained entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Since(0)
}

// Since returns the retained entries with a sequence number above seq, oldest first.
func (rb *RingBuffer) Since(seq uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	first := rb.oldest()
	if seq >= first {
		first = seq + 1
	}
	if first > rb.seq {
		return nil
	}

	out := make([]LogEntry, 0, rb.seq-first+1)
	for n := first; n <= rb.seq; n++ {
		out = append(out, rb.entries[rb.slot(n)])
	}
	return out
}

// Count returns the number of retained entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return int(min(rb.seq, uint64(len(rb.entries))))
}

// oldest is the sequence number of the oldest retained entry, 1 when empty.
func (rb *RingBuffer) oldest() uint64 {
	size := uint64(len(rb.entries))
	if rb.seq < size {
		return 1
	}
	return rb.seq - size + 1
}

func (rb *RingBuffer) slot(seq uint64) uint64 {
	return (seq - 1) % uint64(len(rb.entries))
}
