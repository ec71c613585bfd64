package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/myle-app/myle/internal/events"
)

// ConnectedEvent is the first message on every event stream.
type ConnectedEvent struct {
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Connection time"`
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of download-event, update-status and app-ready messages",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":      ConnectedEvent{},
		"download-event": events.DownloadEvent{},
		"update-status":  events.UpdateStatusEvent{},
		"app-ready":      events.AppReadyEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Progress samples beyond the buffer are dropped; lifecycle events wait
		stream := events.NewStream(256)
		events.Follow[events.DownloadEvent](stream, s.eventBus)
		events.Follow[events.UpdateStatusEvent](stream, s.eventBus)
		events.Follow[events.AppReadyEvent](stream, s.eventBus)
		defer func() {
			stream.Close()
			if dropped := stream.Dropped(); dropped > 0 {
				s.logger.Warn("Event stream client fell behind", "dropped", dropped)
			}
		}()

		if err := send.Data(ConnectedEvent{Timestamp: time.Now().Format(time.RFC3339)}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-stream.Events():
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
