package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher sends raw payloads to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes dispatcher events as JSON on "<prefix>.<type>".
type NATSForwarder struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

// ConnectNATS dials the server at url.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewNATSForwarder wraps a publisher, typically a *nats.Conn.
func NewNATSForwarder(publisher Publisher, prefix string, logger *zap.Logger) *NATSForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSForwarder{publisher: publisher, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on.
func (f *NATSForwarder) Subject(eventType EventType) string {
	if f.prefix == "" {
		return string(eventType)
	}
	return f.prefix + "." + string(eventType)
}

// Register subscribes the forwarder to every known event type.
func (f *NATSForwarder) Register(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, f.Forward)
	}
}

// Forward publishes a single event.
func (f *NATSForwarder) Forward(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	subject := f.Subject(event.Type)
	f.logger.Debug("publishing event", zap.String("subject", subject), zap.String("event_id", event.ID))
	return f.publisher.Publish(subject, payload)
}
