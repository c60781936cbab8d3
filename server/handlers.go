package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/reqalign/analysis"
	"github.com/c360studio/reqalign/chat"
	"github.com/c360studio/reqalign/ingest"
)

// ----------------------------------------------------------------------------
// POST /api/analyze
// ----------------------------------------------------------------------------

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req analysis.Request
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}

	result, err := s.analyze(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// analyze runs the pipeline with the server's default threshold and
// records metrics and events.
func (s *Server) analyze(req analysis.Request) (*analysis.Result, error) {
	if req.Threshold == 0 {
		req.Threshold = s.threshold
	}

	start := time.Now()
	result, err := analysis.Analyze(req)
	if err != nil {
		return nil, err
	}

	s.metrics.analysesTotal.Inc()
	s.metrics.analysisDuration.Observe(time.Since(start).Seconds())
	for _, mr := range result.Results {
		s.metrics.verdictsTotal.WithLabelValues(mr.Coverage.String()).Inc()
	}

	s.publisher.AnalysisCompleted(result, req.Threshold)
	return result, nil
}

// ----------------------------------------------------------------------------
// POST /api/analyze/feedback
// ----------------------------------------------------------------------------

// feedbackResponse pairs the deterministic analysis with the model's
// narrative.
type feedbackResponse struct {
	Results  []analysis.MatchResult `json:"results"`
	Summary  analysis.Summary       `json:"summary"`
	Feedback string                 `json:"llm_feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.feedback == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorBody{Error: "feedback generation is not configured"})
		return
	}

	var req analysis.Request
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}

	result, err := s.analyze(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	feedback, err := s.feedback.Generate(r.Context(), req, result)
	if err != nil {
		// The analysis is already computed; model failure loses only the
		// narrative.
		s.metrics.modelFailures.Inc()
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "model unavailable: " + err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, feedbackResponse{
		Results:  result.Results,
		Summary:  result.Summary,
		Feedback: feedback,
	})
}

// ----------------------------------------------------------------------------
// POST /api/analyze/library
// ----------------------------------------------------------------------------

// handleAnalyzeLibrary analyzes the watched document corpus instead of an
// uploaded statement list.
func (s *Server) handleAnalyzeLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.requirements == nil || s.design == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorBody{Error: "document watching is not configured"})
		return
	}

	var body struct {
		Threshold float64 `json:"threshold,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
			return
		}
	}

	result, err := s.analyze(analysis.Request{
		Requirements: s.requirements.Statements(),
		Design:       s.design.Statements(),
		Threshold:    body.Threshold,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// ----------------------------------------------------------------------------
// POST /api/upload/{requirements,design}
// ----------------------------------------------------------------------------

// uploadResponse echoes the parsed statement list back to the caller.
type uploadResponse struct {
	Items    []string `json:"items"`
	Count    int      `json:"count"`
	Filename string   `json:"filename,omitempty"`
}

// uploadHandler parses an uploaded document body into statements. The
// optional ?filename= query selects HTML extraction for .html/.htm.
func (s *Server) uploadHandler(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "read body: " + err.Error()})
			return
		}

		filename := r.URL.Query().Get("filename")
		items := parseUpload(filename, content)

		s.logger.Debug("Parsed uploaded document",
			"kind", kind,
			"filename", filename,
			"statements", len(items))

		s.writeJSON(w, http.StatusOK, uploadResponse{
			Items:    items,
			Count:    len(items),
			Filename: filename,
		})
	}
}

func parseUpload(filename string, content []byte) []string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		if doc, err := ingest.ExtractHTML(content, nil); err == nil {
			return doc.Statements
		}
	}
	return ingest.Statements(content)
}

// ----------------------------------------------------------------------------
// POST /api/chat
// ----------------------------------------------------------------------------

// chatRequest is one incoming chat turn.
type chatRequest struct {
	Message        string           `json:"message"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Analysis       *analysis.Result `json:"analysis,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "message is required"})
		return
	}

	result, err := s.orchestrator.Turn(r.Context(), chat.TurnRequest{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Analysis:       req.Analysis,
	})
	if err != nil {
		s.metrics.chatTurnsTotal.WithLabelValues("error").Inc()
		s.writeError(w, err)
		return
	}

	if result.Fallback {
		s.metrics.chatTurnsTotal.WithLabelValues("fallback").Inc()
		s.metrics.modelFailures.Inc()
	} else {
		s.metrics.chatTurnsTotal.WithLabelValues("ok").Inc()
	}

	s.writeJSON(w, http.StatusOK, result)
}

// ----------------------------------------------------------------------------
// GET /api/chat/conversations
// GET /api/chat/{id}/history
// ----------------------------------------------------------------------------

// historyResponse is the history fetch shape.
type historyResponse struct {
	ConversationID string         `json:"conversation_id"`
	Messages       []chat.Message `json:"messages"`
}

// handleChatSubtree routes the chat/ subtree: the conversations listing
// and per-conversation history.
func (s *Server) handleChatSubtree(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, prefix)

		if rest == "conversations" {
			s.writeJSON(w, http.StatusOK, map[string]any{
				"conversations": s.orchestrator.Sessions(),
			})
			return
		}

		if id, ok := strings.CutSuffix(rest, "/history"); ok && id != "" && !strings.Contains(id, "/") {
			messages, err := s.orchestrator.History(id)
			if err != nil {
				s.writeError(w, fmt.Errorf("conversation %s: %w", id, err))
				return
			}
			s.writeJSON(w, http.StatusOK, historyResponse{
				ConversationID: id,
				Messages:       messages,
			})
			return
		}

		http.NotFound(w, r)
	}
}

// ----------------------------------------------------------------------------
// GET /api/library
// ----------------------------------------------------------------------------

// libraryStatus describes one watched document library.
type libraryStatus struct {
	Dir        string   `json:"dir"`
	Documents  int      `json:"documents"`
	Statements []string `json:"statements"`
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.requirements == nil || s.design == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorBody{Error: "document watching is not configured"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]libraryStatus{
		"requirements": {
			Dir:        s.requirements.Root(),
			Documents:  s.requirements.DocumentCount(),
			Statements: s.requirements.Statements(),
		},
		"design": {
			Dir:        s.design.Root(),
			Documents:  s.design.DocumentCount(),
			Statements: s.design.Statements(),
		},
	})
}

// ----------------------------------------------------------------------------
// GET /healthz
// ----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
