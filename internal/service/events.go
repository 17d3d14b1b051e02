package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// StageEvent describes a single stage transition of a review session.
type StageEvent struct {
	SessionID    uint      `json:"session_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	DocumentName string    `json:"document_name,omitempty"`
	At           time.Time `json:"at"`
}

// StagePublisher relays stage transitions to interested consumers (progress
// dashboards, notification workers). Delivery is best-effort.
type StagePublisher interface {
	PublishStageChange(ctx context.Context, event StageEvent)
}

type natsStagePublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSStagePublisher builds a NATS-backed stage publisher. A nil
// connection yields a publisher that drops events.
func NewNATSStagePublisher(conn *nats.Conn, subject string, logger zerolog.Logger) StagePublisher {
	if subject == "" {
		subject = "revizor.review.stage"
	}
	return &natsStagePublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "stage_publisher").Logger(),
	}
}

func (p *natsStagePublisher) PublishStageChange(_ context.Context, event StageEvent) {
	if p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode stage event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).
			Uint("session_id", event.SessionID).
			Str("to", event.To).
			Msg("failed to publish stage event")
	}
}
