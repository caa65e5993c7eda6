package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
)

// Publisher emits a JSON event for every completed analysis.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

var _ ports.ReportSink = (*Publisher)(nil)

// Options tunes the connection.
type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	Logger         *slog.Logger
}

// Event is the payload published on the analysis subject.
type Event struct {
	Type   string        `json:"type"`
	Report domain.Report `json:"report"`
}

// Connect dials the NATS server.
func Connect(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("reviewscanner"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(conn, subject), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

func (p *Publisher) Name() string { return "nats" }

// Deliver publishes the report on the configured subject.
func (p *Publisher) Deliver(_ context.Context, analysis domain.Analysis) error {
	payload, err := EncodeEvent(analysis.Report)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// EncodeEvent builds the wire form of an analysis.completed event.
func EncodeEvent(report domain.Report) ([]byte, error) {
	payload, err := json.Marshal(Event{Type: "analysis.completed", Report: report})
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
