package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the root of the order event subject hierarchy. The full
// subject is orders.status.<to>, e.g. orders.status.paid, so consumers can
// subscribe to one status or to orders.status.>.
const SubjectPrefix = "orders.status"

// NatsPublisher publishes order events to a NATS server.
type NatsPublisher struct {
	conn *nats.Conn
}

// NewNatsPublisher connects to the NATS server at url.
func NewNatsPublisher(url, name string) (*NatsPublisher, error) {
	conn, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NatsPublisher{conn: conn}, nil
}

// PublishOrderStatusChanged implements Publisher.
func (p *NatsPublisher) PublishOrderStatusChanged(ctx context.Context, evt OrderStatusChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	subject := SubjectPrefix + "." + strings.ToLower(string(evt.To))
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection, flushing buffered messages.
func (p *NatsPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
