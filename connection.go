package hamq

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/buybrain/HAmq/internal/reliability"
	"github.com/buybrain/HAmq/transport"
)

// Connection is the logical, self-healing broker connection. It holds at most
// one transport connection, opened lazily on first use and reopened after a
// reset. One Connection backs any number of Channels.
type Connection struct {
	id      string
	cfg     Config
	backend transport.Backend
	opts    *options
	retryer *reliability.Retryer
	logger  *slog.Logger

	mu      sync.Mutex
	current transport.Connection
}

// NewConnection creates a Connection that opens transport connections
// through backend. Nothing is dialed until a Channel needs it.
func NewConnection(backend transport.Backend, cfg Config, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	id := uuid.NewString()

	return &Connection{
		id:      id,
		cfg:     cfg,
		backend: backend,
		opts:    o,
		retryer: o.retryer(),
		logger:  o.logger.With("connection", id),
	}, nil
}

// ID identifies this logical connection in logs and health reports
func (c *Connection) ID() string {
	return c.id
}

// RetryPolicy returns the default policy for operations that do not carry
// their own
func (c *Connection) RetryPolicy() RetryPolicy {
	return c.cfg.RetryPolicy
}

// NewChannel creates a logical Channel on this connection. The transport
// channel behind it is opened on first use.
func (c *Connection) NewChannel() *Channel {
	return newChannel(c)
}

// activeConnection returns the live transport connection, opening one when
// there is none. Opening retries every error until it succeeds.
func (c *Connection) activeConnection() (transport.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current, nil
	}

	conn, err := reliability.Perform(c.retryer, func() (transport.Connection, error) {
		return c.backend.NewConnection(c.cfg.transportConfig())
	}, c.cfg.RetryPolicy.WithRetryAll(true))
	if err != nil {
		return nil, err
	}

	c.logger.Info("opened broker connection",
		"host", c.cfg.Host,
		"port", c.cfg.Port,
		"vhost", c.cfg.VHost,
	)
	c.current = conn
	return conn, nil
}

// Reset closes the current transport connection, ignoring close errors, so
// the next use opens a fresh one
func (c *Connection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// discard resets the connection only if stale is still the current one
func (c *Connection) discard(stale transport.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != stale {
		return
	}
	c.closeLocked()
}

func (c *Connection) closeLocked() {
	if c.current == nil {
		return
	}
	if err := c.current.Close(); err != nil {
		c.logger.Debug("error closing broker connection", "error", err)
	}
	c.current = nil
	c.logger.Info("closed broker connection")
}

// Close closes the current transport connection and reports the close
// error. Channels still in use will open a new connection on demand.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	err := c.current.Close()
	c.current = nil
	return err
}
