package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFixtures_BaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "mock-chat.txt", "The design covers most requirements.")
	writeFixture(t, dir, "mock-feedback.txt", "Two requirements lack design support.")

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	if len(fixtures) != 2 {
		t.Fatalf("expected 2 models, got %d", len(fixtures))
	}
	for model, seq := range fixtures {
		if len(seq) != 1 {
			t.Errorf("model %q: expected 1 fixture, got %d", model, len(seq))
		}
	}
}

func TestLoadFixtures_Sequential(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "mock-chat.1.txt", "first reply")
	writeFixture(t, dir, "mock-chat.2.txt", "second reply")
	writeFixture(t, dir, "mock-chat.txt", "repeating reply")
	writeFixture(t, dir, "mock-feedback.txt", "coverage looks healthy")

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	seq := fixtures["mock-chat"]
	if len(seq) != 3 {
		t.Fatalf("mock-chat: expected 3 fixtures, got %d", len(seq))
	}
	if seq[0] != "first reply" || seq[1] != "second reply" || seq[2] != "repeating reply" {
		t.Errorf("wrong fixture order: %v", seq)
	}

	if len(fixtures["mock-feedback"]) != 1 {
		t.Fatalf("mock-feedback: expected 1 fixture, got %d", len(fixtures["mock-feedback"]))
	}
}

func TestLoadFixtures_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	if _, err := loadFixtures(dir); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestSequentialFixtureSelection(t *testing.T) {
	fixtures := map[string][]string{
		"mock-chat": {"first reply", "second reply"},
	}

	s := newServer(fixtures)

	if resp := doCompletion(t, s, "mock-chat"); !strings.Contains(resp, "first reply") {
		t.Errorf("call 1: expected first reply, got: %s", resp)
	}
	if resp := doCompletion(t, s, "mock-chat"); !strings.Contains(resp, "second reply") {
		t.Errorf("call 2: expected second reply, got: %s", resp)
	}
	// Beyond the sequence the last fixture repeats.
	if resp := doCompletion(t, s, "mock-chat"); !strings.Contains(resp, "second reply") {
		t.Errorf("call 3: expected second reply (repeat), got: %s", resp)
	}
}

func TestModelPrefixFallback(t *testing.T) {
	fixtures := map[string][]string{
		"chat": {"stripped prefix reply"},
	}
	s := newServer(fixtures)

	if resp := doCompletion(t, s, "mock-chat"); !strings.Contains(resp, "stripped prefix reply") {
		t.Errorf("expected mock- prefix stripped, got: %s", resp)
	}
}

func TestUnknownModelReturns404(t *testing.T) {
	s := newServer(map[string][]string{"mock-chat": {"hello"}})

	body := `{"model":"unknown","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleChatCompletions(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRequestCapture(t *testing.T) {
	s := newServer(map[string][]string{"mock-chat": {"hello"}})

	doCompletion(t, s, "mock-chat")
	doCompletion(t, s, "mock-chat")

	req := httptest.NewRequest(http.MethodGet, "/requests?model=mock-chat", nil)
	rec := httptest.NewRecorder()
	s.handleRequests(rec, req)

	var payload struct {
		RequestsByModel map[string][]capturedRequest `json:"requests_by_model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}

	captured := payload.RequestsByModel["mock-chat"]
	if len(captured) != 2 {
		t.Fatalf("expected 2 captured requests, got %d", len(captured))
	}
	if captured[0].CallIndex != 1 || captured[1].CallIndex != 2 {
		t.Errorf("call indices wrong: %d, %d", captured[0].CallIndex, captured[1].CallIndex)
	}
}

func TestStats(t *testing.T) {
	s := newServer(map[string][]string{"mock-chat": {"hello"}})

	doCompletion(t, s, "mock-chat")
	doCompletion(t, s, "mock-chat")
	doCompletion(t, s, "mock-chat")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.handleStats(rec, req)

	var payload struct {
		TotalCalls   int            `json:"total_calls"`
		CallsByModel map[string]int `json:"calls_by_model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.TotalCalls != 3 {
		t.Errorf("expected 3 total calls, got %d", payload.TotalCalls)
	}
	if payload.CallsByModel["mock-chat"] != 3 {
		t.Errorf("expected 3 calls for mock-chat, got %d", payload.CallsByModel["mock-chat"])
	}
}

// doCompletion performs one chat completion and returns the assistant
// content.
func doCompletion(t *testing.T, s *server, model string) string {
	t.Helper()

	body := `{"model":"` + model + `","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleChatCompletions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("completion returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	return resp.Choices[0].Message.Content
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
}
