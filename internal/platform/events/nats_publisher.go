// Package events publishes listing lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/feature/listing/usecase"
)

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher sends each event as JSON on the subject "<prefix>.<event type>".
type NatsPublisher struct {
	conn   publisher
	nc     *nats.Conn
	prefix string
}

var _ usecase.EventPublisher = (*NatsPublisher)(nil)

// NewNatsPublisher connects to natsURL.
func NewNatsPublisher(natsURL, prefix string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("foodshare-backend"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("NATS connected", "url", nc.ConnectedUrlRedacted())
	return &NatsPublisher{conn: nc, nc: nc, prefix: prefix}, nil
}

func (p *NatsPublisher) subject(t entity.EventType) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

// Publish marshals ev and publishes it. NATS core publish is fire-and-forget;
// the context only short-circuits when already done.
func (p *NatsPublisher) Publish(ctx context.Context, ev entity.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.subject(ev.Type)
	if err := p.conn.Publish(subject, body); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	slog.Debug("event published", "subject", subject, "listing_id", ev.ListingID)
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
