package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360studio/reqalign/llm"
	"github.com/c360studio/reqalign/model"
)

// maxStatementsInPrompt caps how many statements from each side are
// embedded in the feedback prompt. Oversized corpora are truncated with an
// explicit marker so the model knows the list is partial.
const maxStatementsInPrompt = 100

// feedbackMaxTokens bounds the generated feedback length.
const feedbackMaxTokens = 1024

// Completer is the single operation the feedback generator needs from the
// model client.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// FeedbackGenerator produces architect-style narrative feedback from an
// analysis result via the model client.
type FeedbackGenerator struct {
	client Completer
	logger *slog.Logger
}

// NewFeedbackGenerator creates a feedback generator over the given client.
func NewFeedbackGenerator(client Completer, logger *slog.Logger) *FeedbackGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackGenerator{client: client, logger: logger}
}

// Generate builds the feedback prompt from the request and its computed
// result and returns the model's narrative. Model failures propagate to
// the caller; the already-computed analysis result is unaffected.
func (g *FeedbackGenerator) Generate(ctx context.Context, req Request, result *Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("analysis result is required")
	}

	summary := fmt.Sprintf(
		"- Total Requirements: %d\n- Total Design Items: %d\n- Requirements Covered: %d\n- Requirements Missing: %d\n- Coverage: %.1f%%",
		result.Summary.TotalRequirements,
		result.Summary.TotalDesignItems,
		result.Summary.CoveredRequirements,
		result.Summary.MissingRequirements,
		coveragePercent(result.Summary),
	)

	reqJSON, err := marshalStatements(req.Requirements)
	if err != nil {
		return "", fmt.Errorf("marshal requirements: %w", err)
	}
	designJSON, err := marshalStatements(req.Design)
	if err != nil {
		return "", fmt.Errorf("marshal design: %w", err)
	}
	resultsJSON, err := json.MarshalIndent(result.Results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	temp := 0.7
	resp, err := g.client.Complete(ctx, llm.Request{
		Capability: model.CapabilityFeedback.String(),
		Messages: []llm.Message{
			{Role: "system", Content: feedbackSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(feedbackUserPrompt, summary, reqJSON, designJSON, resultsJSON)},
		},
		Temperature: &temp,
		MaxTokens:   feedbackMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("feedback generation failed: %w", err)
	}

	g.logger.Debug("Generated analysis feedback",
		"model", resp.Model,
		"request_id", resp.RequestID,
		"tokens", resp.Usage.TotalTokens)

	return resp.Content, nil
}

// coveragePercent returns covered/total as a percentage, 0 for an empty
// analysis.
func coveragePercent(s Summary) float64 {
	if s.TotalRequirements == 0 {
		return 0
	}
	return float64(s.CoveredRequirements) / float64(s.TotalRequirements) * 100
}

// marshalStatements renders a statement list as indented JSON, truncating
// past maxStatementsInPrompt with an explicit marker.
func marshalStatements(statements []string) (string, error) {
	if len(statements) > maxStatementsInPrompt {
		truncated := make([]string, 0, maxStatementsInPrompt+1)
		truncated = append(truncated, statements[:maxStatementsInPrompt]...)
		truncated = append(truncated, fmt.Sprintf("[%d more statements truncated]", len(statements)-maxStatementsInPrompt))
		statements = truncated
	}
	data, err := json.MarshalIndent(statements, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
