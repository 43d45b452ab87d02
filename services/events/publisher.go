package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event types
const (
	TypeValuationCreated  = "valuation.created"
	TypeValuationFailed   = "valuation.failed"
	TypeFailoverActivated = "failover.activated"
	TypeFailoverReset     = "failover.reset"
)

// Event is a valuation lifecycle notification
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       string                 `json:"type"`
	VRM        string                 `json:"vrm,omitempty"`
	Provider   string                 `json:"provider,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event stamped with a fresh ID and the current time
func NewEvent(eventType, vrm, provider string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		VRM:        vrm,
		Provider:   provider,
		OccurredAt: time.Now().UTC(),
	}
}

// WithData attaches a data field to the event
func (e Event) WithData(key string, value interface{}) Event {
	data := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}

// Publisher delivers events to interested consumers. Publishing is best-effort
// from the caller's perspective: callers log errors and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// conn is the subset of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON events on core NATS subjects "<prefix>.<type>"
type NATSPublisher struct {
	conn   conn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher connects to NATS and returns a publisher
func NewNATSPublisher(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("vehicle-valuation"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS publisher connected", zap.String("url", nc.ConnectedUrl()), zap.String("prefix", prefix))
	return newNATSPublisher(nc, prefix, logger), nil
}

func newNATSPublisher(c conn, prefix string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: c, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish marshals the event and publishes it
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.Subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	p.logger.Debug("event published", zap.String("subject", subject), zap.String("event_id", event.ID.String()))
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NopPublisher discards events. Used when no NATS URL is configured.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }
