package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/docdex/docdex/health"
	"github.com/docdex/docdex/ingestion"
	"github.com/docdex/docdex/retention"
	"github.com/docdex/docdex/search"
)

// maxUploadBytes bounds the accepted request body for uploads.
const maxUploadBytes = 64 << 20 // 64 MiB

var (
	// ErrPipelineRequired is returned when a server is created without an ingestion pipeline.
	ErrPipelineRequired = errors.New("ingestion pipeline is required")

	// ErrEngineRequired is returned when a server is created without a query engine.
	ErrEngineRequired = errors.New("query engine is required")

	// ErrPurgerRequired is returned when a server is created without a purger.
	ErrPurgerRequired = errors.New("purger is required")

	// ErrHealthRequired is returned when a server is created without a health aggregator.
	ErrHealthRequired = errors.New("health aggregator is required")
)

// Server exposes the document API over HTTP.
type Server struct {
	pipeline *ingestion.Pipeline
	engine   *search.Engine
	purger   *retention.Purger
	health   *health.Aggregator
	logger   *slog.Logger
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer creates the HTTP server over the given components.
func NewServer(
	pipeline *ingestion.Pipeline,
	engine *search.Engine,
	purger *retention.Purger,
	aggregator *health.Aggregator,
	opts ...Option,
) (*Server, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if purger == nil {
		return nil, ErrPurgerRequired
	}
	if aggregator == nil {
		return nil, ErrHealthRequired
	}

	s := &Server{
		pipeline: pipeline,
		engine:   engine,
		purger:   purger,
		health:   aggregator,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/upload", s.handleUpload)
	mux.HandleFunc("GET /documents/{id}/status", s.handleStatus)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDelete)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /health", s.handleHealth)
	s.mux = mux

	return s, nil
}

// Handler returns the server's root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}
