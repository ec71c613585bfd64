package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/logging"
)

// LogStreamInput selects where a log stream resumes.
type LogStreamInput struct {
	LastEventID string `header:"Last-Event-ID" doc:"Sequence number of the last entry the client saw"`
	Since       uint64 `query:"since" doc:"Replay only entries after this sequence number"`
}

// resumeFrom returns the sequence number the client already has, 0 for a full replay.
func (in *LogStreamInput) resumeFrom() uint64 {
	if seq, err := strconv.ParseUint(in.LastEventID, 10, 64); err == nil {
		return seq
	}
	return in.Since
}

// registerLogRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Replays buffered entries after the given sequence number, then streams new ones. Each message ID is the entry's sequence number.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *LogStreamInput, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost.
		stream := events.NewStream(100)
		events.Follow[events.LogEntryEvent](stream, s.eventBus)
		defer stream.Close()

		last := input.resumeFrom()
		forward := func(entry events.LogEntryEvent) error {
			if entry.Seq != 0 && entry.Seq <= last {
				return nil
			}
			last = max(last, entry.Seq)
			return send(sse.Message{ID: int(entry.Seq), Data: entry})
		}

		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Since(last) {
				if err := forward(LogEvent(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-stream.Events():
				entry, ok := event.(events.LogEntryEvent)
				if !ok {
					continue
				}
				if err := forward(entry); err != nil {
					return
				}
			}
		}
	})
}

// LogEvent converts a buffered log entry to its SSE payload.
func LogEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
