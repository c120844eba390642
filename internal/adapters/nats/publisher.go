package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/planmetric/planmetric/internal/core/domain"
)

// Subjects for drawing analysis events. WebSocket clients subscribe to
// the same hierarchy through the relay.
const (
	SubjectAnalysisCompleted = "drawing.analysis.completed"
	SubjectEstimateCreated   = "drawing.estimate.created"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the analysis event stream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "DRAWING_ANALYSES",
		Subjects:  []string{"drawing.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishAnalysisCompleted emits the assembled measurement record.
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, m *domain.Measurements) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectAnalysisCompleted, data)
	return err
}

// PublishEstimateCreated emits a finished cost estimate.
func (p *Publisher) PublishEstimateCreated(ctx context.Context, e *domain.CostEstimate) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectEstimateCreated, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
