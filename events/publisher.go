// Package events publishes analysis lifecycle events to NATS for
// downstream consumers (dashboards, audit trails). Publishing is strictly
// optional: a nil publisher is a no-op, and publish failures never fail
// the request that produced the result.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/reqalign/analysis"
)

// DefaultSubject is the subject analysis events are published on.
const DefaultSubject = "reqalign.analysis.completed"

// AnalysisCompleted is the wire format of an analysis event. Full
// per-requirement results stay out of the event; consumers needing them
// call the API.
type AnalysisCompleted struct {
	EventID     string           `json:"event_id"`
	Summary     analysis.Summary `json:"summary"`
	Threshold   float64          `json:"threshold"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Publisher publishes events over a NATS connection.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials NATS and returns a publisher. An empty URL returns a nil
// publisher, which is safe to use (all methods no-op).
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("reqalign"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// AnalysisCompleted publishes a completed-analysis event. Failures are
// logged, not returned: eventing must never break the analysis path.
func (p *Publisher) AnalysisCompleted(result *analysis.Result, threshold float64) {
	if p == nil || result == nil {
		return
	}

	event := AnalysisCompleted{
		EventID:     uuid.New().String(),
		Summary:     result.Summary,
		Threshold:   threshold,
		CompletedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("Failed to marshal analysis event", "error", err)
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Warn("Failed to publish analysis event",
			"subject", p.subject,
			"error", err)
		return
	}

	p.logger.Debug("Published analysis event",
		"subject", p.subject,
		"event_id", event.EventID)
}

// Close drains the connection. Safe on a nil publisher.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", "error", err)
	}
}
