package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber opens its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := openJetStream(conn)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeGridComputed delivers events published after the call. Every API
// instance gets every event, so the consumer is ephemeral rather than durable.
func (s *Subscriber) SubscribeGridComputed(ctx context.Context, handler func(ctx context.Context, event *domain.GridComputed) error) error {
	sub, err := s.js.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		event, err := Decode(msg.Data)
		if err != nil {
			slog.Warn("drop malformed grid event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Decode parses a grid event payload.
func Decode(data []byte) (*domain.GridComputed, error) {
	var event domain.GridComputed
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Name == "" {
		return nil, fmt.Errorf("grid event without region name")
	}
	return &event, nil
}

// Conn exposes the connection for readiness checks.
func (s *Subscriber) Conn() *nats.Conn { return s.conn }

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
