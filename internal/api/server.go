// Package api exposes the download engine, the updater and the archive tools over
// HTTP with huma, plus a server-sent event stream that carries their events.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/myle-app/myle/internal/api/models"
	"github.com/myle-app/myle/internal/archive"
	"github.com/myle-app/myle/internal/downloads"
	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/logging"
	"github.com/myle-app/myle/internal/sparkle"
	"github.com/myle-app/myle/internal/updater"
	"github.com/myle-app/myle/internal/version"
)

// DownloadService is the part of the download engine the API drives.
type DownloadService interface {
	Start(id, rawURL, dest string) error
	Pause(id string)
	Resume(id string)
	Cancel(id string)
	IsActive(id string) bool
	List() []downloads.JobInfo
}

// ArchiveExtractor extracts a downloaded archive.
type ArchiveExtractor interface {
	Extract(ctx context.Context, filePath, password, destDir string) (archive.Result, error)
}

// SparkleResolver decides whether the Sparkle archive must be fetched.
type SparkleResolver interface {
	Ensure(ctx context.Context) sparkle.Plan
}

const shutdownTimeout = 5 * time.Second

// Server represents the Huma v2 API server
type Server struct {
	api      huma.API
	mux      *http.ServeMux
	options  *Options
	eventBus *events.Bus
	logger   *slog.Logger

	// baseCtx parents every request context; Stop cancels it to end event streams.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu         sync.Mutex
	httpServer *http.Server
}

// Options wires the services behind the API.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	AllowOrigins      []string // CORS origins, empty allows any
	EventBus          *events.Bus
	Downloads         DownloadService
	Updater           updater.Service
	Archives          ArchiveExtractor
	Sparkle           SparkleResolver
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if len(opts.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("Myle API", version.Version)
	config.Info.Description = "Download engine and self-update service for Make Your Life Easier"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	bus := opts.EventBus
	if bus == nil {
		bus = events.New()
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	server := &Server{
		api:        api,
		mux:        mux,
		options:    opts,
		eventBus:   bus,
		logger:     logging.GetLogger("api"),
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus scrapes without credentials
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start listens on addr and serves until Stop, after which it returns http.ErrServerClosed.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves the API on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	addr := ln.Addr().String()
	// No write timeout: download-update answers when the download is done
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}

	s.mu.Lock()
	if s.baseCtx.Err() != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return http.ErrServerClosed
	}
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("API server listening", "addr", addr, "docs", "http://"+addr+"/docs")
	return srv.Serve(ln)
}

// Stop ends open event streams, then waits briefly for in-flight requests
// before closing the remaining connections.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.cancelBase()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("Stopping API server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("Graceful shutdown timed out, closing connections", "error", err)
		return srv.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}
		if s.options.Downloads != nil {
			resp.Body.ActiveDownloads = len(s.options.Downloads.List())
		}
		if s.options.Updater != nil {
			resp.Body.UpdatePhase = string(s.options.Updater.GetState().Phase)
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				BuildID:   versionInfo.BuildID,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})

	s.registerDownloadRoutes()
	s.registerUpdateRoutes()
	s.registerToolRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
