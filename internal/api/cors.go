package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig holds CORS configuration. An AllowOrigins entry of "*" allows any origin;
// otherwise the request Origin is echoed back only when it is listed.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig allows the renderer, served from file:// or a dev server, to call the API.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept", "Origin", "Last-Event-ID"},
		MaxAge:       86400,
	}
}

// ParseOrigins splits a comma-separated origin list. Empty input means any origin.
func ParseOrigins(list string) []string {
	var origins []string
	for _, origin := range strings.Split(list, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, strings.TrimSuffix(origin, "/"))
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// corsHeaders computes the response headers for a request from origin.
type corsHeaders struct {
	anyOrigin bool
	origins   []string
	methods   string
	headers   string
	maxAge    string
}

func newCORSHeaders(config CORSConfig) corsHeaders {
	return corsHeaders{
		anyOrigin: len(config.AllowOrigins) == 0 || slices.Contains(config.AllowOrigins, "*"),
		origins:   config.AllowOrigins,
		methods:   strings.Join(config.AllowMethods, ", "),
		headers:   strings.Join(config.AllowHeaders, ", "),
		maxAge:    strconv.Itoa(config.MaxAge),
	}
}

// apply writes the CORS headers through set. Disallowed origins get none, which
// makes the browser reject the response.
func (c corsHeaders) apply(origin string, set func(key, value string)) {
	switch {
	case c.anyOrigin:
		set("Access-Control-Allow-Origin", "*")
	case origin != "" && slices.Contains(c.origins, origin):
		set("Access-Control-Allow-Origin", origin)
		set("Vary", "Origin")
	default:
		return
	}
	set("Access-Control-Allow-Methods", c.methods)
	set("Access-Control-Allow-Headers", c.headers)
	set("Access-Control-Max-Age", c.maxAge)
}

// NewCORSMiddleware creates CORS middleware with the given configuration
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	cors := newCORSHeaders(config)
	return func(ctx huma.Context, next func(huma.Context)) {
		cors.apply(ctx.Header("Origin"), ctx.SetHeader)
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests on the mux, since huma middleware only
// runs for registered operations.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	cors := newCORSHeaders(config)
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		cors.apply(r.Header.Get("Origin"), w.Header().Set)
		w.WriteHeader(http.StatusNoContent)
	})
}
