// Package rabbitmq exposes the amqp091-go backed transport for HAmq
package rabbitmq

import (
	"log/slog"
	"time"

	"github.com/buybrain/HAmq/internal/rabbitmq"
	"github.com/buybrain/HAmq/transport"
)

// TransportConfig holds configuration for the transport
type TransportConfig struct {
	Logger         *slog.Logger
	Heartbeat      time.Duration
	ConnectionName string
}

// TransportOption configures the transport
type TransportOption func(*TransportConfig)

// WithLogger sets the logger used by connections and channels
func WithLogger(logger *slog.Logger) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.Logger = logger
	}
}

// WithHeartbeat sets the heartbeat interval negotiated with the broker
func WithHeartbeat(interval time.Duration) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.Heartbeat = interval
	}
}

// WithConnectionName sets the client-provided connection name
func WithConnectionName(name string) TransportOption {
	return func(cfg *TransportConfig) {
		cfg.ConnectionName = name
	}
}

// NewBackend creates a transport.Backend that dials RabbitMQ
func NewBackend(options ...TransportOption) transport.Backend {
	cfg := &TransportConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	backendOpts := []rabbitmq.BackendOption{
		rabbitmq.WithLogger(cfg.Logger),
		rabbitmq.WithConnectionName(cfg.ConnectionName),
	}
	if cfg.Heartbeat > 0 {
		backendOpts = append(backendOpts, rabbitmq.WithHeartbeat(cfg.Heartbeat))
	}

	return rabbitmq.NewBackend(backendOpts...)
}
