package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "stayportal"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSBridge forwards bus events to NATS so other services can react to
// bookings and listing changes. Query updates stay local.
type NATSBridge struct {
	conn   publisher
	close  func()
	prefix string
	logger *slog.Logger
}

func ConnectNATS(url string, prefix string, logger *slog.Logger) (*NATSBridge, error) {
	conn, err := nats.Connect(url, nats.Name("go-stay-portal"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	bridge := newNATSBridge(conn, prefix, logger)
	bridge.close = conn.Close
	return bridge, nil
}

func newNATSBridge(conn publisher, prefix string, logger *slog.Logger) *NATSBridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSBridge{conn: conn, prefix: prefix, logger: logger}
}

// Run forwards events until ctx is done.
func (n *NATSBridge) Run(ctx context.Context, bus Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type == TypeQueryUpdated {
				continue
			}
			if err := n.Forward(e); err != nil {
				n.logger.Error("nats publish failed", "type", e.Type, "error", err)
			}
		}
	}
}

func (n *NATSBridge) Forward(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	n.logger.Debug("publishing event", "subject", n.Subject(e.Type), "id", e.ID)
	return n.conn.Publish(n.Subject(e.Type), payload)
}

func (n *NATSBridge) Subject(t Type) string {
	return n.prefix + "." + string(t)
}

func (n *NATSBridge) Close() {
	if n.close != nil {
		n.close()
	}
}
