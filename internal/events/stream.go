package events

import (
	"sync"
	"sync/atomic"
)

// Stream merges several event types into one buffered channel, for handlers that
// forward events from a select loop. When the buffer is full, progress samples and
// log lines are dropped and counted. Every other event waits for room until the
// stream is closed, so a reader always sees a download's terminal event.
type Stream struct {
	ch      chan Event
	done    chan struct{}
	once    sync.Once
	unsubs  []func()
	dropped atomic.Uint64
}

// NewStream creates a stream buffering up to size events.
func NewStream(size int) *Stream {
	return &Stream{ch: make(chan Event, size), done: make(chan struct{})}
}

// Follow adds events of type T from b to s. Call it before the stream is read.
func Follow[T Event](s *Stream, b *Bus) {
	s.unsubs = append(s.unsubs, On(b, func(e T) { s.deliver(e) }))
}

func (s *Stream) deliver(e Event) {
	if Droppable(e) {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
		return
	}
	select {
	case s.ch <- e:
	case <-s.done:
		s.dropped.Add(1)
	}
}

// Droppable reports whether e may be lost to a slow reader: download progress,
// which the next sample supersedes, and log lines, which resume by sequence.
func Droppable(e Event) bool {
	switch ev := e.(type) {
	case DownloadEvent:
		return ev.Status == DownloadProgress
	case LogEntryEvent:
		return true
	}
	return false
}

// Events returns the merged channel.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events were lost to a full buffer or a closed stream.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// Close ends every subscription and releases handlers waiting for room.
// Buffered events stay readable.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.done)
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.unsubs = nil
	})
}
