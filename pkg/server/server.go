// Package server exposes the pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz              liveness probe
//	POST /runs                 body is the trace text; renders into <base>/<run-id>/
//	GET  /runs/{id}            run manifest
//	GET  /runs/{id}/*          output file of a run, e.g. /runs/{id}/0_0.png
//
// POST /runs accepts the query parameters format, delimiter and marker,
// which override the server defaults for that run.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tracegraph/pkg/pipeline"
)

// DefaultMaxTraceBytes bounds the size of an uploaded trace.
const DefaultMaxTraceBytes = 32 << 20

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	baseDir  string
	defaults pipeline.Options
	logger   *log.Logger
	maxBytes int64
}

// New creates a server writing runs below baseDir. defaults supplies the
// renderer, compositor and other settings shared by every run; its
// TargetDir and RunID are replaced per run.
func New(baseDir string, defaults pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		baseDir:  baseDir,
		defaults: defaults,
		logger:   logger,
		maxBytes: DefaultMaxTraceBytes,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/{runID}", s.handleGetRun)
		r.Get("/{runID}/*", s.handleGetFile)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs incoming requests.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
