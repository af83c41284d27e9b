// Package api provides the HTTP API server and handlers for the figure catalog
// and the interactive viewers.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/katalogpart/katalog-server/internal/ratelimit"
	"github.com/katalogpart/katalog-server/internal/sse"
	"github.com/katalogpart/katalog-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	validator *validation.Validator
	stream    *sse.Handler
	router    *chi.Mux
	api       huma.API
	opts      Options
	logger    *slog.Logger

	eventLimiter  *ratelimit.KeyedRateLimiter
	streamLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	if opts.EventsPerSec <= 0 {
		opts.EventsPerSec = 60
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		services:      services,
		validator:     opts.Validator,
		router:        chi.NewRouter(),
		opts:          opts,
		logger:        logger,
		eventLimiter:  ratelimit.New(opts.EventsPerSec, int(opts.EventsPerSec)),
		streamLimiter: ratelimit.New(1, 5),
	}
	s.stream = sse.NewHandler(services.SSE, s.resolveViewer, logger)

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Katalog API", opts.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mostly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops the rate limiter sweepers.
func (s *Server) Close() {
	s.eventLimiter.Stop()
	s.streamLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	// CORS for the embedded client and any configured front ends.
	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.registerHealthRoutes()

	// API v1.
	s.registerFigureRoutes()
	s.registerCatalogRoutes()
	s.registerViewerRoutes()

	// Streaming and the web client bypass huma: neither is JSON.
	s.router.With(RateLimitMiddleware(s.streamLimiter, s.logger)).
		Get("/api/v1/viewers/{id}/stream", s.stream.ServeHTTP)
	s.router.Get("/", s.handleWebClient)
	s.router.Get("/static/*", s.handleStatic)
}

// resolveViewer maps a stream request to a live viewer.
func (s *Server) resolveViewer(r *http.Request) (string, bool) {
	viewerID := chi.URLParam(r, "id")
	return viewerID, viewerID != "" && s.services.Viewers.Exists(viewerID)
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
