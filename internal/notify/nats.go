package notify

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSNotifier publishes messages to a subject for external subscribers
// (dashboards, chat bridges) alongside the primary sendmail/filedrop
// delivery. Failures here never fail the build; they are logged by the
// enclosing MultiNotifier.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier connects to url and returns a Notifier that publishes to
// subject. A nil *NATSNotifier with a non-nil error means the connection
// could not be established; callers should omit it from the MultiNotifier.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to nats: %w", err)
	}
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

func (n *NATSNotifier) Notify(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal message: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("notify: publish to nats: %w", err)
	}
	return nil
}

// Close releases the underlying NATS connection.
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
