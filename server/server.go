// Package server exposes the analysis and chat subsystems over HTTP. It
// owns routing, request decoding, and error mapping; all domain logic
// lives in the analysis and chat packages.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/c360studio/reqalign/analysis"
	"github.com/c360studio/reqalign/chat"
	"github.com/c360studio/reqalign/events"
	"github.com/c360studio/reqalign/ingest"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// Server wires the HTTP surface to the core subsystems.
type Server struct {
	threshold    float64
	feedback     *analysis.FeedbackGenerator
	orchestrator *chat.Orchestrator
	requirements *ingest.Library
	design       *ingest.Library
	publisher    *events.Publisher
	metrics      *Metrics
	logger       *slog.Logger
}

// Options configures a Server. Orchestrator is required; everything else
// degrades gracefully when absent.
type Options struct {
	// Threshold is the default similarity threshold applied to analysis
	// requests that do not carry one. Zero means analysis.DefaultThreshold.
	Threshold float64

	// Feedback generates LLM feedback for /api/analyze/feedback. Nil
	// disables the endpoint (501).
	Feedback *analysis.FeedbackGenerator

	// Orchestrator drives /api/chat.
	Orchestrator *chat.Orchestrator

	// Requirements and Design are optional watched document libraries
	// backing /api/library and /api/analyze/library.
	Requirements *ingest.Library
	Design       *ingest.Library

	// Publisher optionally emits analysis-completed events. Nil is a
	// no-op.
	Publisher *events.Publisher

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = analysis.DefaultThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		threshold:    threshold,
		feedback:     opts.Feedback,
		orchestrator: opts.Orchestrator,
		requirements: opts.Requirements,
		design:       opts.Design,
		publisher:    opts.Publisher,
		metrics:      NewMetrics(),
		logger:       logger,
	}
}

// RegisterHTTPHandlers registers all handlers under the given prefix
// (e.g. "api"). Health and metrics are registered at the root.
//
//	POST <prefix>/analyze
//	POST <prefix>/analyze/feedback
//	POST <prefix>/analyze/library
//	POST <prefix>/upload/requirements
//	POST <prefix>/upload/design
//	POST <prefix>/chat
//	GET  <prefix>/chat/conversations
//	GET  <prefix>/chat/{id}/history
//	GET  <prefix>/library
//	GET  /healthz
//	GET  /metrics
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	// Normalise: ensure leading slash and trailing slash.
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"analyze", s.handleAnalyze)
	mux.HandleFunc(prefix+"analyze/feedback", s.handleFeedback)
	mux.HandleFunc(prefix+"analyze/library", s.handleAnalyzeLibrary)
	mux.HandleFunc(prefix+"upload/requirements", s.uploadHandler("requirements"))
	mux.HandleFunc(prefix+"upload/design", s.uploadHandler("design"))
	mux.HandleFunc(prefix+"chat", s.handleChat)
	mux.HandleFunc(prefix+"chat/", s.handleChatSubtree(prefix+"chat/"))
	mux.HandleFunc(prefix+"library", s.handleLibrary)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
}

// decodeJSON reads and decodes a size-capped JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", "error", err)
	}
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidInput):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		s.logger.Error("Request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
