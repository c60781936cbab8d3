package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/reqalign/analysis"
	"github.com/c360studio/reqalign/llm"
	"github.com/c360studio/reqalign/model"
)

// DefaultHistoryWindow is the number of recent exchanges (user+assistant
// pairs) included in the outgoing prompt. Truncation affects only what is
// sent to the model; the store keeps the complete history.
const DefaultHistoryWindow = 10

// fallbackReply is returned when the model call fails. It is surfaced to
// the caller marked as a fallback and never appended to the session, so
// history distinguishes what the assistant actually said from call
// failures.
const fallbackReply = "The assistant is temporarily unavailable. Your message was saved; please try again shortly."

// Completer is the single operation the orchestrator needs from the model
// client.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config holds orchestrator tuning knobs.
type Config struct {
	// HistoryWindow is the number of recent exchanges sent to the model.
	// Zero means DefaultHistoryWindow.
	HistoryWindow int

	// Temperature for chat completions. nil uses the endpoint default.
	Temperature *float64

	// MaxTokens bounds the reply length. Zero means endpoint default.
	MaxTokens int
}

// Orchestrator drives one conversation turn: resolve the session, compose
// the prompt from preamble + optional analysis context + bounded history +
// the new message, invoke the model, and record the exchange.
type Orchestrator struct {
	store  Store
	client Completer
	cfg    Config
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given store and model
// client.
func NewOrchestrator(store Store, client Completer, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, client: client, cfg: cfg, logger: logger}
}

// TurnRequest is one incoming user turn.
type TurnRequest struct {
	// ConversationID is empty for a new session. An unknown id fails with
	// ErrNotFound rather than silently starting a fresh session.
	ConversationID string

	// Message is the new user message.
	Message string

	// Analysis optionally carries the latest analysis result to ground
	// the model's answer. It is injected into the prompt, not stored.
	Analysis *analysis.Result
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	// ConversationID identifies the session, generated when the request
	// carried none.
	ConversationID string `json:"conversation_id"`

	// Reply is the assistant's reply, or the fallback notice when the
	// model was unavailable.
	Reply string `json:"response"`

	// Fallback is true when Reply is a synthetic notice rather than a
	// real assistant turn.
	Fallback bool `json:"fallback,omitempty"`
}

// Turn executes one conversation turn. The model call is the only
// blocking step. On model failure the user message is still recorded (it
// happened), the session history grows by exactly one message, and the
// returned reply is a clearly marked fallback.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	id := req.ConversationID
	var history []Message
	if id == "" {
		id = o.store.Create()
	} else {
		var err error
		history, err = o.store.Get(id)
		if err != nil {
			return nil, fmt.Errorf("resolve conversation %s: %w", id, err)
		}
	}

	userMsg := Message{
		Role:      RoleUser,
		Content:   req.Message,
		Timestamp: time.Now().UTC(),
	}

	prompt := o.composePrompt(history, req.Analysis, req.Message)

	resp, err := o.client.Complete(ctx, llm.Request{
		Capability:  model.CapabilityChat.String(),
		Messages:    prompt,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	})
	if err != nil {
		o.logger.Warn("Model call failed, recording user turn only",
			"conversation_id", id,
			"error", err)

		// The user message is durable even when the reply is not.
		if _, appendErr := o.store.Append(id, userMsg); appendErr != nil {
			return nil, fmt.Errorf("record user message: %w", appendErr)
		}
		return &TurnResult{ConversationID: id, Reply: fallbackReply, Fallback: true}, nil
	}

	assistantMsg := Message{
		Role:      RoleAssistant,
		Content:   resp.Content,
		Timestamp: time.Now().UTC(),
	}

	// One Append call for both halves keeps the exchange atomic with
	// respect to concurrent turns on the same session.
	if _, err := o.store.Append(id, userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("record exchange: %w", err)
	}

	o.logger.Debug("Chat turn completed",
		"conversation_id", id,
		"model", resp.Model,
		"request_id", resp.RequestID)

	return &TurnResult{ConversationID: id, Reply: resp.Content}, nil
}

// History returns the full stored history for a conversation.
func (o *Orchestrator) History(id string) ([]Message, error) {
	return o.store.Get(id)
}

// Sessions returns summaries of all conversations.
func (o *Orchestrator) Sessions() []SessionSummary {
	return o.store.List()
}

// composePrompt builds the outgoing message list: system preamble,
// optional analysis context, the most recent HistoryWindow exchanges, and
// the new user message.
func (o *Orchestrator) composePrompt(history []Message, result *analysis.Result, userMessage string) []llm.Message {
	msgs := []llm.Message{{Role: "system", Content: systemPrompt}}

	if result != nil {
		if block, err := json.MarshalIndent(result, "", "  "); err == nil {
			msgs = append(msgs, llm.Message{
				Role:    "system",
				Content: analysisContextHeader + "\n" + string(block),
			})
		}
	}

	for _, m := range truncateHistory(history, o.cfg.HistoryWindow) {
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}

	return append(msgs, llm.Message{Role: "user", Content: userMessage})
}

// truncateHistory keeps the most recent window exchanges (two messages per
// exchange).
func truncateHistory(history []Message, window int) []Message {
	max := window * 2
	if len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
