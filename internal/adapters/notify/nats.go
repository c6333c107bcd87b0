package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/quietcam/reid/internal/domain/model"
)

const defaultNotifySubject = "notifications.person"

// NATSDispatcher publishes notification intents to a NATS subject, where
// downstream delivery adapters (push services, chat bridges) subscribe.
type NATSDispatcher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSDispatcher creates a dispatcher publishing on subject. An empty
// subject falls back to the default.
func NewNATSDispatcher(conn *nats.Conn, subject string) *NATSDispatcher {
	if subject == "" {
		subject = defaultNotifySubject
	}
	return &NATSDispatcher{conn: conn, subject: subject}
}

// Dispatch publishes the intent as JSON.
func (d *NATSDispatcher) Dispatch(ctx context.Context, intent model.Intent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode intent: %w", err)
	}
	if err := d.conn.Publish(d.subject, payload); err != nil {
		return fmt.Errorf("publish intent: %w", err)
	}
	return nil
}
