package hamq

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/buybrain/HAmq/transport"
)

// recorder is a fake transport that logs every call in order and fails
// calls on demand
type recorder struct {
	mu       sync.Mutex
	calls    []string
	failures map[string][]error
	handlers map[string]transport.DeliveryHandler
	queues   map[string]queueDecl
	sleeps   []time.Duration
}

type queueDecl struct {
	durable    bool
	exclusive  bool
	autoDelete bool
	args       transport.Table
}

func newRecorder() *recorder {
	return &recorder{
		failures: make(map[string][]error),
		handlers: make(map[string]transport.DeliveryHandler),
		queues:   make(map[string]queueDecl),
	}
}

// failNext makes the next len(errs) calls named call fail in turn
func (r *recorder) failNext(call string, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[call] = append(r.failures[call], errs...)
}

func (r *recorder) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)
	if errs := r.failures[call]; len(errs) > 0 {
		r.failures[call] = errs[1:]
		return errs[0]
	}
	return nil
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (r *recorder) handler(tag string) transport.DeliveryHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[tag]
}

func (r *recorder) sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
}

func (r *recorder) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func (r *recorder) NewConnection(transport.Config) (transport.Connection, error) {
	if err := r.record("open connection"); err != nil {
		return nil, err
	}
	return &recordingConnection{rec: r}, nil
}

type recordingConnection struct {
	rec *recorder
}

func (c *recordingConnection) NewChannel() (transport.Channel, error) {
	if err := c.rec.record("open channel"); err != nil {
		return nil, err
	}
	return &recordingChannel{rec: c.rec}, nil
}

func (c *recordingConnection) Close() error {
	return c.rec.record("close connection")
}

type recordingChannel struct {
	rec *recorder
}

func (c *recordingChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal bool, args transport.Table) error {
	return c.rec.record("declare exchange " + name)
}

func (c *recordingChannel) QueueDeclare(name string, durable, exclusive, autoDelete bool, args transport.Table) error {
	if err := c.rec.record("declare queue " + name); err != nil {
		return err
	}
	c.rec.mu.Lock()
	c.rec.queues[name] = queueDecl{durable: durable, exclusive: exclusive, autoDelete: autoDelete, args: args}
	c.rec.mu.Unlock()
	return nil
}

func (c *recordingChannel) QueueBind(queue, exchange, routingKey string, args transport.Table) error {
	return c.rec.record(fmt.Sprintf("bind %s %s %s", queue, exchange, routingKey))
}

func (c *recordingChannel) Qos(prefetchCount int) error {
	return c.rec.record(fmt.Sprintf("qos %d", prefetchCount))
}

func (c *recordingChannel) Publish(exchange, routingKey string, mandatory bool, props transport.Properties, body []byte) error {
	return c.rec.record(fmt.Sprintf("publish %s/%s", exchange, routingKey))
}

func (c *recordingChannel) Consume(queue, consumerTag string, noLocal, exclusive bool, args transport.Table, handler transport.DeliveryHandler) error {
	if err := c.rec.record(fmt.Sprintf("consume %s %s", queue, consumerTag)); err != nil {
		return err
	}
	c.rec.mu.Lock()
	c.rec.handlers[consumerTag] = handler
	c.rec.mu.Unlock()
	return nil
}

func (c *recordingChannel) Ack(deliveryTag uint64) error {
	return c.rec.record(fmt.Sprintf("ack %d", deliveryTag))
}

func (c *recordingChannel) Nack(deliveryTag uint64) error {
	return c.rec.record(fmt.Sprintf("nack %d", deliveryTag))
}

func (c *recordingChannel) Cancel(consumerTag string) error {
	return c.rec.record("cancel " + consumerTag)
}

func (c *recordingChannel) Close() error {
	return c.rec.record("close channel")
}

func socketError() error {
	return &net.OpError{Op: "write", Net: "tcp", Err: syscall.EPIPE}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestConnection wires a Connection to backend with recorded sleeps
func newTestConnection(backend transport.Backend, rec *recorder) *Connection {
	conn, err := NewConnection(backend, DefaultConfig(), WithSleepFunc(rec.sleep), WithLogger(quietLogger()))
	if err != nil {
		panic(err)
	}
	return conn
}

// gatedBackend records like recorder, except that every publish on the first
// transport channel it opens blocks until all expected callers arrived and
// then fails with a socket error
type gatedBackend struct {
	rec     *recorder
	arrived sync.WaitGroup
	opened  atomic.Int32
}

func (b *gatedBackend) NewConnection(cfg transport.Config) (transport.Connection, error) {
	conn, err := b.rec.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &gatedConnection{Connection: conn, backend: b}, nil
}

type gatedConnection struct {
	transport.Connection
	backend *gatedBackend
}

func (c *gatedConnection) NewChannel() (transport.Channel, error) {
	ch, err := c.Connection.NewChannel()
	if err != nil || c.backend.opened.Add(1) > 1 {
		return ch, err
	}
	return &gatedChannel{Channel: ch, arrived: &c.backend.arrived}, nil
}

type gatedChannel struct {
	transport.Channel
	arrived *sync.WaitGroup
}

func (c *gatedChannel) Publish(exchange, routingKey string, mandatory bool, props transport.Properties, body []byte) error {
	c.arrived.Done()
	c.arrived.Wait()
	return socketError()
}
