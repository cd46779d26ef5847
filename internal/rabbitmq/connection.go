package rabbitmq

import (
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buybrain/HAmq/transport"
)

// amqpConnection is the subset of *amqp.Connection used here
type amqpConnection interface {
	Channel() (amqpChannel, error)
	Close() error
}

// dialFunc opens a broker connection
type dialFunc func(url string, cfg amqp.Config) (amqpConnection, error)

// liveConnection adapts *amqp.Connection to amqpConnection
type liveConnection struct {
	*amqp.Connection
}

func (c liveConnection) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string, cfg amqp.Config) (amqpConnection, error) {
	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}
	return liveConnection{conn}, nil
}

// Backend dials broker connections
type Backend struct {
	dial           dialFunc
	logger         *slog.Logger
	heartbeat      time.Duration
	connectionName string
}

// BackendOption configures the Backend
type BackendOption func(*Backend)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) BackendOption {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithHeartbeat sets the heartbeat interval negotiated with the broker
func WithHeartbeat(interval time.Duration) BackendOption {
	return func(b *Backend) {
		b.heartbeat = interval
	}
}

// WithConnectionName sets the connection name shown in the broker UI
func WithConnectionName(name string) BackendOption {
	return func(b *Backend) {
		b.connectionName = name
	}
}

func withDialer(dial dialFunc) BackendOption {
	return func(b *Backend) {
		b.dial = dial
	}
}

// NewBackend creates a new backend
func NewBackend(options ...BackendOption) *Backend {
	b := &Backend{
		dial:      dialAMQP,
		logger:    slog.Default(),
		heartbeat: 10 * time.Second,
	}

	for _, opt := range options {
		opt(b)
	}

	return b
}

// URL builds the amqp URL for cfg
func URL(cfg transport.Config) string {
	return amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		Vhost:    cfg.VHost,
	}.String()
}

// NewConnection dials the broker described by cfg
func (b *Backend) NewConnection(cfg transport.Config) (transport.Connection, error) {
	url := URL(cfg)

	amqpCfg := amqp.Config{
		Heartbeat: b.heartbeat,
		Locale:    "en_US",
	}
	if b.connectionName != "" {
		amqpCfg.Properties = amqp.Table{"connection_name": b.connectionName}
	}

	conn, err := b.dial(url, amqpCfg)
	if err != nil {
		return nil, &ConnectionError{
			Op:        "dial",
			URL:       SanitizeURL(url),
			Err:       translate(err),
			Timestamp: time.Now(),
		}
	}

	logger := b.logger.With("url", SanitizeURL(url))
	logger.Debug("dialed broker")

	return &Connection{conn: conn, url: url, logger: logger}, nil
}

// Connection is one broker connection
type Connection struct {
	conn   amqpConnection
	url    string
	logger *slog.Logger
}

// NewChannel opens a channel on this connection
func (c *Connection) NewChannel() (transport.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, &ConnectionError{
			Op:        "open channel",
			URL:       SanitizeURL(c.url),
			Err:       translate(err),
			Timestamp: time.Now(),
		}
	}
	return newChannel(ch, c.logger), nil
}

// Close closes the connection. Closing an already closed connection is not
// an error.
func (c *Connection) Close() error {
	err := c.conn.Close()
	if err == nil || err == amqp.ErrClosed {
		return nil
	}
	return &ConnectionError{
		Op:        "close",
		URL:       SanitizeURL(c.url),
		Err:       translate(err),
		Timestamp: time.Now(),
	}
}
