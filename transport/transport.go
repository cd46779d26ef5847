// Package transport defines the broker-client boundary HAmq is built on.
//
// A Backend opens Connections, a Connection opens Channels, and a Channel
// exposes the primitive AMQP operations. Implementations are expected to
// fail fast: they never retry or reconnect on their own, that is the job
// of the hamq package sitting on top of them.
package transport

import (
	"time"
)

// Config holds the endpoint settings a Backend needs to open a connection
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	VHost    string
}

// Backend creates connections against a broker
type Backend interface {
	// NewConnection opens a new connection using the given endpoint settings
	NewConnection(cfg Config) (Connection, error)
}

// Connection is a single live broker connection
type Connection interface {
	// NewChannel opens a new channel on this connection
	NewChannel() (Channel, error)

	// Close closes the connection and all of its channels
	Close() error
}

// Channel is a single live broker channel
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal bool, args Table) error
	QueueDeclare(name string, durable, exclusive, autoDelete bool, args Table) error
	QueueBind(queue, exchange, routingKey string, args Table) error

	// Qos limits the number of unacknowledged deliveries on this channel
	Qos(prefetchCount int) error

	Publish(exchange, routingKey string, mandatory bool, props Properties, body []byte) error

	// Consume subscribes to a queue with manual acknowledgement. The handler
	// is invoked from a transport-owned goroutine, one per subscription.
	Consume(queue, consumerTag string, noLocal, exclusive bool, args Table, handler DeliveryHandler) error

	Ack(deliveryTag uint64) error
	// Nack rejects a single delivery without requeueing it
	Nack(deliveryTag uint64) error
	Cancel(consumerTag string) error
	Close() error
}

// DeliveryHandler receives deliveries and lifecycle signals for one subscription
type DeliveryHandler interface {
	// HandleDelivery processes one delivery. A returned error tells the
	// transport the delivery was refused; it is never retried.
	HandleDelivery(d Delivery) error

	// HandleShutdown is called once when the channel or connection carrying
	// the subscription is closed by something other than the client itself.
	HandleShutdown(consumerTag string, err error)
}

// Envelope carries the routing metadata of a delivery
type Envelope struct {
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
}

// Delivery modes understood by AMQP brokers
const (
	Transient  uint8 = 1
	Persistent uint8 = 2
)

// Properties are the basic message properties
type Properties struct {
	ContentType     string
	ContentEncoding string
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       time.Time
	Type            string
	AppID           string
	Headers         Table
}

// Delivery is a message received on a subscription
type Delivery struct {
	ConsumerTag string
	Envelope    Envelope
	Properties  Properties
	Body        []byte
}
