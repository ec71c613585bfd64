package api

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/metrics"
)

// HTTPLoggingMiddleware logs each request once it completes and records it in the
// request metrics. The level follows the outcome: errors at error and warn,
// preflights and event streams at debug.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)
	elapsed := time.Since(start)

	method, u, status := ctx.Method(), ctx.URL(), ctx.Status()
	operation := "unmatched"
	if op := ctx.Operation(); op != nil && op.OperationID != "" {
		operation = op.OperationID
	}

	stream := isStreamPath(u.Path)
	if stream {
		metrics.ObserveRequest(operation, status, 0)
	} else {
		metrics.ObserveRequest(operation, status, elapsed)
	}

	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("method", method),
		slog.String("path", u.Path),
		slog.String("operation", operation),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
		slog.String("remote_addr", ctx.RemoteAddr()),
	)
	if u.RawQuery != "" {
		attrs = append(attrs, slog.String("query", safeQuery(u.RawQuery)))
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	case method == "OPTIONS", stream:
		level = slog.LevelDebug
	}
	logging.GetLogger("http").LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

// safeQuery masks the auth parameter, which carries base64 credentials.
func safeQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "(unparsable)"
	}
	if values.Has("auth") {
		values.Set("auth", "redacted")
	}
	return values.Encode()
}

// isStreamPath reports SSE routes, which log once per connection rather than per request.
func isStreamPath(path string) bool {
	return path == "/api/events" || strings.HasPrefix(path, "/api/logs/")
}
