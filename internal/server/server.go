// Package server exposes template validation and rendering over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/promptctl/internal/format"
	"github.com/opencode-ai/promptctl/internal/models"
	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/templates"
)

// Route names key rate limits, including server.rate_limits in config.
const (
	routeHealth         = "health"
	routeListTemplates  = "list"
	routeGetTemplate    = "get"
	routeValidate       = "validate"
	routeRender         = "render"
	routeValidateInline = "validate_inline"
	routeLimits         = "limits"
	routeQuality        = "quality"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Catalog is the template source the server reads from.
type Catalog interface {
	List() ([]*prompt.Definition, []*templates.LoadError, error)
	Load(name string) (*prompt.Definition, error)
	Search(query string, tags []string) ([]*prompt.Definition, error)
}

// Recorder stores successful renders.
type Recorder interface {
	Record(ctx context.Context, res *format.Result, formatName string) (*models.RenderRecord, error)
}

// Server handles the HTTP API.
type Server struct {
	catalog       Catalog
	recorder      Recorder
	limiter       *RateLimiter
	logger        zerolog.Logger
	version       string
	startedAt     time.Time
	defaultFormat string
	renderOpts    []prompt.Option
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithVersion sets the version reported by /healthz.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRecorder records every successful render.
func WithRecorder(recorder Recorder) ServerOption {
	return func(s *Server) {
		s.recorder = recorder
	}
}

// WithRateLimiter applies per-route limits.
func WithRateLimiter(limiter *RateLimiter) ServerOption {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// WithDefaultFormat sets the format used when a render request names none.
func WithDefaultFormat(name string) ServerOption {
	return func(s *Server) {
		if name != "" {
			s.defaultFormat = name
		}
	}
}

// WithRenderOptions passes coercion options to every render.
func WithRenderOptions(opts ...prompt.Option) ServerOption {
	return func(s *Server) {
		s.renderOpts = append(s.renderOpts, opts...)
	}
}

// NewServer creates a server backed by catalog.
func NewServer(catalog Catalog, opts ...ServerOption) *Server {
	s := &Server{
		catalog:       catalog,
		logger:        zerolog.Nop(),
		version:       "dev",
		startedAt:     time.Now(),
		defaultFormat: format.Raw,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet).Name(routeHealth)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet).Name(routeListTemplates)
	v1.HandleFunc("/templates/{name}", s.handleGetTemplate).Methods(http.MethodGet).Name(routeGetTemplate)
	v1.HandleFunc("/templates/{name}/validate", s.handleValidate).Methods(http.MethodPost).Name(routeValidate)
	v1.HandleFunc("/templates/{name}/render", s.handleRender).Methods(http.MethodPost).Name(routeRender)
	v1.HandleFunc("/templates/{name}/quality", s.handleQuality).Methods(http.MethodGet).Name(routeQuality)
	v1.HandleFunc("/validate", s.handleValidateInline).Methods(http.MethodPost).Name(routeValidateInline)
	v1.HandleFunc("/limits", s.handleLimits).Methods(http.MethodGet).Name(routeLimits)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "no such endpoint", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed", nil)
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sr.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
