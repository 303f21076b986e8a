package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/solarmap/citygrid/internal/core/domain"
)

const (
	// StreamName holds grid completion events.
	StreamName = "REGION_GRIDS"
	// SubjectPrefix is followed by the region slug.
	SubjectPrefix = "grid.computed."
)

// Subject returns the subject an event is published on.
func Subject(event *domain.GridComputed) string {
	return SubjectPrefix + domain.Slug(event.Name)
}

// MsgID deduplicates re-publishes of the same completion within the stream window.
func MsgID(event *domain.GridComputed) string {
	return fmt.Sprintf("%s:%d:%d", domain.Slug(event.Name), event.Zoom, event.ComputedAt.UnixNano())
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := openJetStream(conn)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishGridComputed(ctx context.Context, event *domain.GridComputed) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(Subject(event), data, nats.MsgId(MsgID(event)), nats.Context(ctx))
	return err
}

// openJetStream binds JetStream to conn and ensures the grid stream exists.
// conn is closed on failure so its reconnect loop does not outlive the caller.
func openJetStream(conn *nats.Conn, opts ...nats.JSOpt) (nats.JetStreamContext, error) {
	js, err := conn.JetStream(opts...)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}
	return js, nil
}

// ensureStream creates or updates the grid event stream. Duplicates within
// the window are dropped by message ID, so republishing a grid is harmless.
func ensureStream(js nats.JetStreamContext) error {
	cfg := nats.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{SubjectPrefix + ">"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 10 * time.Minute,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection that keeps reconnecting.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
