package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/reqalign/analysis"
	"github.com/c360studio/reqalign/chat"
	"github.com/c360studio/reqalign/ingest"
	"github.com/c360studio/reqalign/llm"
	"github.com/c360studio/reqalign/llm/testutil"
)

func newTestServer(t *testing.T, mock *testutil.MockCompleter, opts Options) *httptest.Server {
	t.Helper()

	if mock == nil {
		mock = &testutil.MockCompleter{}
	}
	if opts.Orchestrator == nil {
		opts.Orchestrator = chat.NewOrchestrator(chat.NewMemoryStore(), mock, chat.Config{}, nil)
	}
	if opts.Feedback == nil {
		opts.Feedback = analysis.NewFeedbackGenerator(mock, nil)
	}

	mux := http.NewServeMux()
	New(opts).RegisterHTTPHandlers("api", mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	resp := postJSON(t, ts.URL+"/api/analyze", analysis.Request{
		Requirements: []string{"orders persist across restarts", "completely unrelated astronomy trivia"},
		Design:       []string{"orders persist across restarts"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[analysis.Result](t, resp)
	require.Len(t, result.Results, 2)
	assert.Equal(t, analysis.VerdictPresent, result.Results[0].Coverage)
	assert.Equal(t, analysis.VerdictMissing, result.Results[1].Coverage)
	assert.Equal(t, 2, result.Summary.TotalRequirements)
}

func TestAnalyzeEndpoint_BadInput(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	t.Run("invalid JSON", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader("{nope"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown field", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/analyze", "application/json",
			strings.NewReader(`{"requirements":["a"],"design":["b"],"bogus":1}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty lists", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/analyze", analysis.Request{Requirements: []string{"a"}})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/analyze")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestFeedbackEndpoint(t *testing.T) {
	mock := &testutil.MockCompleter{Responses: []*llm.Response{
		{Content: "Coverage is thin around auditing.", Model: "test-model"},
	}}
	ts := newTestServer(t, mock, Options{})

	resp := postJSON(t, ts.URL+"/api/analyze/feedback", analysis.Request{
		Requirements: []string{"audit log records changes"},
		Design:       []string{"orders persist"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]json.RawMessage](t, resp)
	assert.Contains(t, body, "results")
	assert.Contains(t, body, "summary")
	assert.Contains(t, string(body["llm_feedback"]), "Coverage is thin")
}

func TestFeedbackEndpoint_ModelUnavailable(t *testing.T) {
	mock := &testutil.MockCompleter{Err: errors.New("all endpoints failed")}
	ts := newTestServer(t, mock, Options{})

	resp := postJSON(t, ts.URL+"/api/analyze/feedback", analysis.Request{
		Requirements: []string{"a requirement"},
		Design:       []string{"a design"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "model unavailable")
}

func TestChatEndpoint_RoundTrip(t *testing.T) {
	mock := &testutil.MockCompleter{Responses: []*llm.Response{
		{Content: "hello from the assistant"},
		{Content: "second answer"},
	}}
	ts := newTestServer(t, mock, Options{})

	resp := postJSON(t, ts.URL+"/api/chat", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeBody[chat.TurnResult](t, resp)
	assert.NotEmpty(t, first.ConversationID)
	assert.Equal(t, "hello from the assistant", first.Reply)

	// Same conversation id continues the session.
	resp = postJSON(t, ts.URL+"/api/chat", map[string]any{
		"message":         "and again",
		"conversation_id": first.ConversationID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody[chat.TurnResult](t, resp)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// History endpoint returns all four messages.
	histResp, err := http.Get(ts.URL + "/api/chat/" + first.ConversationID + "/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	hist := decodeBody[historyResponse](t, histResp)
	assert.Equal(t, first.ConversationID, hist.ConversationID)
	assert.Len(t, hist.Messages, 4)

	// Conversations listing shows the session.
	listResp, err := http.Get(ts.URL + "/api/chat/conversations")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	list := decodeBody[map[string][]chat.SessionSummary](t, listResp)
	require.Len(t, list["conversations"], 1)
	assert.Equal(t, 4, list["conversations"][0].MessageCount)
}

func TestChatEndpoint_Fallback(t *testing.T) {
	mock := &testutil.MockCompleter{Err: errors.New("model down")}
	ts := newTestServer(t, mock, Options{})

	resp := postJSON(t, ts.URL+"/api/chat", map[string]any{"message": "anyone home?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[chat.TurnResult](t, resp)
	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.Reply)
}

func TestChatEndpoint_Errors(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	t.Run("empty message", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/chat", map[string]any{"message": "  "})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/chat", map[string]any{
			"message":         "hi",
			"conversation_id": "no-such-session",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown history id", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/chat/no-such-session/history")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unrouted subtree path", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/chat/just-an-id")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUploadEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	t.Run("json document", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/upload/requirements", "application/json",
			strings.NewReader(`["first requirement", "second requirement"]`))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[uploadResponse](t, resp)
		assert.Equal(t, 2, body.Count)
		assert.Equal(t, []string{"first requirement", "second requirement"}, body.Items)
	})

	t.Run("html document via filename hint", func(t *testing.T) {
		page := `<html><head><title>T</title></head><body><p>Extracted requirement text.</p></body></html>`
		resp, err := http.Post(ts.URL+"/api/upload/design?filename=spec.html", "text/html",
			strings.NewReader(page))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[uploadResponse](t, resp)
		assert.Equal(t, "spec.html", body.Filename)
		require.NotEmpty(t, body.Items)
		assert.Contains(t, strings.Join(body.Items, "\n"), "Extracted requirement text")
	})
}

func TestLibraryEndpoints(t *testing.T) {
	reqDir := t.TempDir()
	designDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(reqDir, "reqs.md"), []byte("orders persist across restarts\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(designDir, "design.md"), []byte("orders persist across restarts\n"), 0644))

	requirements := ingest.NewLibrary(reqDir, []string{"**/*.md"})
	design := ingest.NewLibrary(designDir, []string{"**/*.md"})
	require.NoError(t, requirements.Scan())
	require.NoError(t, design.Scan())

	ts := newTestServer(t, nil, Options{Requirements: requirements, Design: design})

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/library")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[map[string]libraryStatus](t, resp)
		assert.Equal(t, 1, body["requirements"].Documents)
		assert.Equal(t, 1, body["design"].Documents)
	})

	t.Run("analyze library", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/analyze/library", "application/json", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody[analysis.Result](t, resp)
		require.Len(t, result.Results, 1)
		assert.Equal(t, analysis.VerdictPresent, result.Results[0].Coverage)
	})
}

func TestLibraryEndpoints_Unconfigured(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	resp, err := http.Get(ts.URL + "/api/library")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/api/analyze/library", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp2.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil, Options{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Drive one analysis so counters move.
	analyzeResp := postJSON(t, ts.URL+"/api/analyze", analysis.Request{
		Requirements: []string{"a thing happens"},
		Design:       []string{"a thing happens"},
	})
	analyzeResp.Body.Close()

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "reqalign_analyses_total 1")
}
