package hamq

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/buybrain/HAmq/internal/journal"
	"github.com/buybrain/HAmq/internal/reliability"
	"github.com/buybrain/HAmq/transport"
)

// tagCounter numbers consumer tags for the whole process. It starts at zero,
// only grows and is never reset, so tags are never reused.
var tagCounter atomic.Uint64

func nextConsumerTag() string {
	return fmt.Sprintf("consumer-%d", tagCounter.Add(1))
}

// Channel is the logical, self-healing broker channel.
//
// Every declaration, the prefetch setting and every subscription that
// succeeds is recorded. When an operation fails in a way that requires a new
// connection, the Channel drops its transport channel and connection, opens
// new ones and replays the recorded state in the order exchanges, queues,
// bindings, prefetch, consumers. Subscriptions keep their consumer tags.
//
// Lock order: mu, then Connection.mu. declMu is always taken before mu.
type Channel struct {
	id      string
	conn    *Connection
	retryer *reliability.Retryer
	logger  *slog.Logger

	// mu guards the transport channel, the transport connection it was
	// opened on, the live subscriptions on it and the generation counter
	mu          sync.Mutex
	current     transport.Channel
	currentConn transport.Connection
	subs        map[string]*subscription
	generation  uint64

	// declMu serializes declarations and resets with their journal updates
	declMu    sync.Mutex
	exchanges journal.Ordered[ExchangeSpec]
	queues    journal.Ordered[QueueSpec]
	binds     journal.Ordered[BindSpec]
	prefetch  journal.Latest[PrefetchSpec]
	consumers journal.Keyed[ConsumeSpec]

	resets atomic.Int64
}

func newChannel(conn *Connection) *Channel {
	id := uuid.NewString()
	return &Channel{
		id:      id,
		conn:    conn,
		retryer: conn.retryer,
		logger:  conn.logger.With("channel", id),
		subs:    make(map[string]*subscription),
	}
}

// ID identifies this logical channel in logs and health reports
func (c *Channel) ID() string {
	return c.id
}

// Connection returns the logical connection this channel belongs to
func (c *Channel) Connection() *Connection {
	return c.conn
}

// ExchangeDeclare declares an exchange and records it for replay
func (c *Channel) ExchangeDeclare(spec ExchangeSpec) error {
	c.declMu.Lock()
	defer c.declMu.Unlock()

	if err := c.perform(exchangeOp(spec), spec.retryOverride, true); err != nil {
		return err
	}
	c.exchanges.Append(spec)
	return nil
}

// QueueDeclare declares a queue and records it for replay
func (c *Channel) QueueDeclare(spec QueueSpec) error {
	c.declMu.Lock()
	defer c.declMu.Unlock()

	if err := c.perform(queueOp(spec), spec.retryOverride, true); err != nil {
		return err
	}
	c.queues.Append(spec)
	return nil
}

// QueueBind binds a queue to an exchange and records the binding for replay
func (c *Channel) QueueBind(spec BindSpec) error {
	c.declMu.Lock()
	defer c.declMu.Unlock()

	if err := c.perform(bindOp(spec), spec.retryOverride, true); err != nil {
		return err
	}
	c.binds.Append(spec)
	return nil
}

// Prefetch sets the prefetch count. Only the last successful setting is
// replayed.
func (c *Channel) Prefetch(spec PrefetchSpec) error {
	if spec.amount < 0 || spec.amount > math.MaxUint16 {
		return fmt.Errorf("%w: got %d", ErrInvalidPrefetch, spec.amount)
	}

	c.declMu.Lock()
	defer c.declMu.Unlock()

	if err := c.perform(prefetchOp(spec), spec.retryOverride, true); err != nil {
		return err
	}
	c.prefetch.Set(spec)
	return nil
}

// Publish publishes a message, retrying until it is handed to the broker or
// fails with an error that is not retryable
func (c *Channel) Publish(spec PublishSpec) error {
	props := spec.properties()
	return c.perform(func(ch transport.Channel) error {
		return ch.Publish(spec.exchange, spec.routingKey, spec.mandatory, props, spec.body)
	}, spec.retryOverride, false)
}

// Consume subscribes the spec's callback to its queue and returns the
// generated consumer tag. The subscription lives as long as the Channel and
// is restored with the same tag after every reset.
func (c *Channel) Consume(spec ConsumeSpec) (string, error) {
	if spec.callback == nil {
		return "", ErrNilCallback
	}

	c.declMu.Lock()
	defer c.declMu.Unlock()

	tag := nextConsumerTag()
	if err := c.perform(c.subscribeOp(tag, spec), spec.retryOverride, true); err != nil {
		return "", err
	}
	c.consumers.Put(tag, spec)
	return tag, nil
}

// Resets returns how many times the channel was torn down and rebuilt
func (c *Channel) Resets() int64 {
	return c.resets.Load()
}

// Open reports whether a transport channel is currently held
func (c *Channel) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Topology is a snapshot of the state a Channel replays after a reset
type Topology struct {
	Exchanges []ExchangeSpec
	Queues    []QueueSpec
	Bindings  []BindSpec
	// Prefetch is nil when no prefetch was ever set
	Prefetch  *PrefetchSpec
	Consumers []string
}

// Topology returns a copy of the recorded state
func (c *Channel) Topology() Topology {
	t := Topology{
		Exchanges: c.exchanges.Snapshot(),
		Queues:    c.queues.Snapshot(),
		Bindings:  c.binds.Snapshot(),
		Consumers: c.consumers.Keys(),
	}
	if p, ok := c.prefetch.Get(); ok {
		t.Prefetch = &p
	}
	return t
}

// activeChannel returns the live transport channel, opening one when there
// is none. Opening retries every error until it succeeds.
func (c *Channel) activeChannel() (transport.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current, nil
	}

	var opened transport.Connection
	ch, err := reliability.Perform(c.retryer, func() (transport.Channel, error) {
		conn, err := c.conn.activeConnection()
		if err != nil {
			return nil, err
		}
		ch, err := conn.NewChannel()
		if err != nil && reliability.ShouldReconnectToRecover(err) {
			c.conn.discard(conn)
		}
		opened = conn
		return ch, err
	}, c.conn.RetryPolicy().WithRetryAll(true))
	if err != nil {
		return nil, err
	}

	c.current = ch
	c.currentConn = opened
	c.logger.Debug("opened transport channel")
	return ch, nil
}

func (c *Channel) policyFor(override retryOverride) RetryPolicy {
	if policy, ok := override.RetryPolicy(); ok {
		return policy
	}
	return c.conn.RetryPolicy()
}

// perform runs op against the active transport channel under the retry
// engine. A failure that needs a new connection resets the channel before
// the engine backs off. declLocked tells whether the caller holds declMu.
func (c *Channel) perform(op func(transport.Channel) error, override retryOverride, declLocked bool) error {
	var used transport.Channel

	policy := reliability.WithErrorHook(c.policyFor(override), func(err error) {
		if !reliability.ShouldReconnectToRecover(err) {
			return
		}
		if declLocked {
			c.resetLocked(used)
		} else {
			c.reset(used)
		}
	})

	return c.retryer.Do(func() error {
		ch, err := c.activeChannel()
		if err != nil {
			return err
		}
		used = ch
		return op(ch)
	}, policy)
}

// reset tears down stale and replays the journal on a new transport channel.
// It does nothing when stale is no longer the current transport channel.
func (c *Channel) reset(stale transport.Channel) {
	c.declMu.Lock()
	defer c.declMu.Unlock()
	c.resetLocked(stale)
}

func (c *Channel) resetLocked(stale transport.Channel) {
	gen, ok := c.teardown(stale)
	if !ok {
		c.logger.Debug("skipping reset of superseded transport channel")
		return
	}
	c.replay(gen)
}

// teardown cancels consumers, closes the transport channel and resets the
// connection it was opened on. A connection already replaced by a sibling
// Channel's reset is left alone. It returns the new generation and whether
// anything was done.
func (c *Channel) teardown(stale transport.Channel) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stale == nil || c.current != stale {
		return 0, false
	}

	c.logger.Info("resetting channel", "resets", c.resets.Load()+1)

	for _, tag := range c.consumers.Keys() {
		if err := c.current.Cancel(tag); err != nil {
			c.logger.Debug("error cancelling consumer", "consumerTag", tag, "error", err)
		}
	}
	for tag, sub := range c.subs {
		sub.close()
		delete(c.subs, tag)
	}
	if err := c.current.Close(); err != nil {
		c.logger.Debug("error closing transport channel", "error", err)
	}

	c.conn.discard(c.currentConn)
	c.current = nil
	c.currentConn = nil
	c.generation++
	c.resets.Add(1)

	return c.generation, true
}

// replay applies the journal in a fixed order. A step that fails and causes
// a nested reset is left to that reset, which replays the whole journal
// itself; this replay then stops.
func (c *Channel) replay(gen uint64) {
	for _, spec := range c.exchanges.Snapshot() {
		if !c.replayStep(gen, exchangeOp(spec), spec.retryOverride) {
			return
		}
	}
	for _, spec := range c.queues.Snapshot() {
		if !c.replayStep(gen, queueOp(spec), spec.retryOverride) {
			return
		}
	}
	for _, spec := range c.binds.Snapshot() {
		if !c.replayStep(gen, bindOp(spec), spec.retryOverride) {
			return
		}
	}
	if spec, ok := c.prefetch.Get(); ok {
		if !c.replayStep(gen, prefetchOp(spec), spec.retryOverride) {
			return
		}
	}
	for _, entry := range c.consumers.Snapshot() {
		if !c.replayStep(gen, c.subscribeOp(entry.Key, entry.Value), entry.Value.retryOverride) {
			return
		}
	}
}

func (c *Channel) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// replayStep performs one replayed operation unless the journal has already
// been replayed by a newer reset. It reports whether replay may continue.
func (c *Channel) replayStep(gen uint64, op func(transport.Channel) error, override retryOverride) bool {
	err := c.perform(func(ch transport.Channel) error {
		if c.currentGeneration() != gen {
			return nil
		}
		return op(ch)
	}, override, true)
	if err != nil {
		c.logger.Error("failed to restore channel state", "error", err)
	}
	return c.currentGeneration() == gen
}

// subscribeOp subscribes under an existing tag. Subscribing a tag that is
// already live on the transport channel is a no-op.
func (c *Channel) subscribeOp(tag string, spec ConsumeSpec) func(transport.Channel) error {
	return func(ch transport.Channel) error {
		c.mu.Lock()
		live, ok := c.subs[tag]
		c.mu.Unlock()
		if ok && live.transport == ch && !live.isClosed() {
			return nil
		}

		sub := newSubscription(c, tag, spec, ch)
		if err := ch.Consume(spec.queue, tag, spec.noLocal, spec.exclusive, spec.args.Clone(), sub); err != nil {
			return err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.current != ch {
			sub.close()
			return nil
		}
		c.subs[tag] = sub
		return nil
	}
}

func exchangeOp(spec ExchangeSpec) func(transport.Channel) error {
	return func(ch transport.Channel) error {
		return ch.ExchangeDeclare(spec.name, spec.kind, spec.durable, spec.autoDelete, spec.internal, spec.args.Clone())
	}
}

func queueOp(spec QueueSpec) func(transport.Channel) error {
	return func(ch transport.Channel) error {
		return ch.QueueDeclare(spec.name, spec.durable, spec.exclusive, spec.autoDelete, spec.args.Clone())
	}
}

func bindOp(spec BindSpec) func(transport.Channel) error {
	return func(ch transport.Channel) error {
		return ch.QueueBind(spec.queue, spec.exchange, spec.routingKey, spec.args.Clone())
	}
}

func prefetchOp(spec PrefetchSpec) func(transport.Channel) error {
	return func(ch transport.Channel) error {
		return ch.Qos(spec.amount)
	}
}
