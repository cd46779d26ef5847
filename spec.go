package hamq

import (
	"github.com/buybrain/HAmq/transport"
)

// Table is the argument map carried by declarations and publish headers
type Table = transport.Table

// retryOverride is embedded in every operation spec. When set, its policy
// replaces the Connection default for that one operation.
type retryOverride struct {
	policy RetryPolicy
	set    bool
}

// RetryPolicy returns the per-operation policy, if one was set
func (o retryOverride) RetryPolicy() (RetryPolicy, bool) {
	return o.policy, o.set
}

func (o retryOverride) with(policy RetryPolicy) retryOverride {
	return retryOverride{policy: policy, set: true}
}

// ExchangeSpec declares an exchange
type ExchangeSpec struct {
	retryOverride
	name       string
	kind       string
	durable    bool
	autoDelete bool
	internal   bool
	args       Table
}

// NewExchange describes a durable, non auto-deleting exchange of the given kind
func NewExchange(name, kind string) ExchangeSpec {
	return ExchangeSpec{name: name, kind: kind, durable: true}
}

// Name returns the exchange name
func (s ExchangeSpec) Name() string {
	return s.name
}

// Kind returns the exchange type, such as direct, fanout or topic
func (s ExchangeSpec) Kind() string {
	return s.kind
}

// Durable reports whether the exchange survives a broker restart
func (s ExchangeSpec) Durable() bool {
	return s.durable
}

// AutoDelete reports whether the broker deletes the exchange once it is no longer used
func (s ExchangeSpec) AutoDelete() bool {
	return s.autoDelete
}

// Internal reports whether the exchange only accepts exchange-to-exchange bindings
func (s ExchangeSpec) Internal() bool {
	return s.internal
}

// Args returns a copy of the exchange arguments
func (s ExchangeSpec) Args() Table {
	return s.args.Clone()
}

// WithDurable sets whether the exchange survives a broker restart
func (s ExchangeSpec) WithDurable(durable bool) ExchangeSpec {
	s.durable = durable
	return s
}

// WithAutoDelete sets whether the exchange is deleted once no longer used
func (s ExchangeSpec) WithAutoDelete(autoDelete bool) ExchangeSpec {
	s.autoDelete = autoDelete
	return s
}

// WithInternal sets whether the exchange is internal
func (s ExchangeSpec) WithInternal(internal bool) ExchangeSpec {
	s.internal = internal
	return s
}

// WithArg adds or replaces one argument
func (s ExchangeSpec) WithArg(key string, value transport.Value) ExchangeSpec {
	s.args = s.args.With(key, value)
	return s
}

// WithArgs replaces all arguments with a copy of args
func (s ExchangeSpec) WithArgs(args Table) ExchangeSpec {
	s.args = args.Clone()
	return s
}

// WithRetryPolicy makes this operation use policy instead of the Connection default
func (s ExchangeSpec) WithRetryPolicy(policy RetryPolicy) ExchangeSpec {
	s.retryOverride = s.retryOverride.with(policy)
	return s
}

// QueueSpec declares a queue
type QueueSpec struct {
	retryOverride
	name       string
	durable    bool
	exclusive  bool
	autoDelete bool
	args       Table
}

// NewQueue describes a durable, shared, non auto-deleting queue
func NewQueue(name string) QueueSpec {
	return QueueSpec{name: name, durable: true}
}

// Name returns the queue name
func (s QueueSpec) Name() string {
	return s.name
}

// Durable reports whether the queue survives a broker restart
func (s QueueSpec) Durable() bool {
	return s.durable
}

// Exclusive reports whether the queue is restricted to the declaring connection
func (s QueueSpec) Exclusive() bool {
	return s.exclusive
}

// AutoDelete reports whether the broker deletes the queue once it is no longer used
func (s QueueSpec) AutoDelete() bool {
	return s.autoDelete
}

// Args returns a copy of the queue arguments
func (s QueueSpec) Args() Table {
	return s.args.Clone()
}

// WithDurable sets whether the queue survives a broker restart
func (s QueueSpec) WithDurable(durable bool) QueueSpec {
	s.durable = durable
	return s
}

// WithExclusive sets whether the queue is restricted to the declaring connection
func (s QueueSpec) WithExclusive(exclusive bool) QueueSpec {
	s.exclusive = exclusive
	return s
}

// WithAutoDelete sets whether the queue is deleted once no longer used
func (s QueueSpec) WithAutoDelete(autoDelete bool) QueueSpec {
	s.autoDelete = autoDelete
	return s
}

// WithArg adds or replaces one argument
func (s QueueSpec) WithArg(key string, value transport.Value) QueueSpec {
	s.args = s.args.With(key, value)
	return s
}

// WithArgs replaces all arguments with a copy of args
func (s QueueSpec) WithArgs(args Table) QueueSpec {
	s.args = args.Clone()
	return s
}

// WithRetryPolicy makes this operation use policy instead of the Connection default
func (s QueueSpec) WithRetryPolicy(policy RetryPolicy) QueueSpec {
	s.retryOverride = s.retryOverride.with(policy)
	return s
}

// BindSpec binds a queue to an exchange
type BindSpec struct {
	retryOverride
	queue      string
	exchange   string
	routingKey string
	args       Table
}

// NewBind describes a binding with an empty routing key
func NewBind(queue, exchange string) BindSpec {
	return BindSpec{queue: queue, exchange: exchange}
}

// Queue returns the name of the bound queue
func (s BindSpec) Queue() string {
	return s.queue
}

// Exchange returns the name of the source exchange
func (s BindSpec) Exchange() string {
	return s.exchange
}

// RoutingKey returns the binding key
func (s BindSpec) RoutingKey() string {
	return s.routingKey
}

// Args returns a copy of the binding arguments
func (s BindSpec) Args() Table {
	return s.args.Clone()
}

// WithRoutingKey sets the binding key
func (s BindSpec) WithRoutingKey(routingKey string) BindSpec {
	s.routingKey = routingKey
	return s
}

// WithArg adds or replaces one argument
func (s BindSpec) WithArg(key string, value transport.Value) BindSpec {
	s.args = s.args.With(key, value)
	return s
}

// WithArgs replaces all arguments with a copy of args
func (s BindSpec) WithArgs(args Table) BindSpec {
	s.args = args.Clone()
	return s
}

// WithRetryPolicy makes this operation use policy instead of the Connection default
func (s BindSpec) WithRetryPolicy(policy RetryPolicy) BindSpec {
	s.retryOverride = s.retryOverride.with(policy)
	return s
}

// PrefetchSpec limits the number of unacknowledged deliveries per consumer
type PrefetchSpec struct {
	retryOverride
	amount int
}

// NewPrefetch describes a prefetch count. AMQP carries it as a 16 bit value,
// so Channel.Prefetch rejects amounts outside 0..65535; zero means unlimited.
func NewPrefetch(amount int) PrefetchSpec {
	return PrefetchSpec{amount: amount}
}

// Amount returns the maximum number of unacknowledged deliveries
func (s PrefetchSpec) Amount() int {
	return s.amount
}

// WithRetryPolicy makes this operation use policy instead of the Connection default
func (s PrefetchSpec) WithRetryPolicy(policy RetryPolicy) PrefetchSpec {
	s.retryOverride = s.retryOverride.with(policy)
	return s
}

// PublishSpec describes a single message to publish
type PublishSpec struct {
	retryOverride
	exchange    string
	routingKey  string
	mandatory   bool
	durable     bool
	contentType string
	headers     Table
	body        []byte
}

// NewPublish describes a persistent message for exchange and routingKey.
// The body is copied.
func NewPublish(exchange, routingKey string, body []byte) PublishSpec {
	return PublishSpec{
		exchange:   exchange,
		routingKey: routingKey,
		durable:    true,
		body:       cloneBytes(body),
	}
}

// NewQueuePublish describes a message sent straight to queue through the
// default exchange
func NewQueuePublish(queue string, body []byte) PublishSpec {
	return NewPublish("", queue, body)
}

// Exchange returns the target exchange; empty means the default exchange
func (s PublishSpec) Exchange() string {
	return s.exchange
}

// RoutingKey returns the routing key of the message
func (s PublishSpec) RoutingKey() string {
	return s.routingKey
}

// Mandatory reports whether the broker must route the message to a queue
func (s PublishSpec) Mandatory() bool {
	return s.mandatory
}

// Durable reports whether the message is published persistent
func (s PublishSpec) Durable() bool {
	return s.durable
}

// ContentType returns the MIME type of the body
func (s PublishSpec) ContentType() string {
	return s.contentType
}

// Headers returns a copy of the message headers
func (s PublishSpec) Headers() Table {
	return s.headers.Clone()
}

// Body returns a copy of the message body
func (s PublishSpec) Body() []byte {
	return cloneBytes(s.body)
}

// WithMandatory sets whether the broker must route the message to a queue
func (s PublishSpec) WithMandatory(mandatory bool) PublishSpec {
	s.mandatory = mandatory
	return s
}

// WithDurable selects persistent (true) or transient (false) delivery mode
func (s PublishSpec) WithDurable(durable bool) PublishSpec {
	s.durable = durable
	return s
}

// WithContentType sets the MIME type of the body
func (s PublishSpec) WithContentType(contentType string) PublishSpec {
	s.contentType = contentType
	return s
}

// WithHeader adds or replaces one message header
func (s PublishSpec) WithHeader(key string, value transport.Value) PublishSpec {
	s.headers = s.headers.With(key, value)
	return s
}

// WithHeaders replaces all headers with a copy of headers
func (s PublishSpec) WithHeaders(headers Table) PublishSpec {
	s.headers = headers.Clone()
	return s
}

// WithBody replaces the body with a copy of body
func (s PublishSpec) WithBody(body []byte) PublishSpec {
	s.body = cloneBytes(body)
	return s
}

// WithRetryPolicy makes this operation use policy instead of the Connection default
func (s PublishSpec) WithRetryPolicy(policy RetryPolicy) PublishSpec {
	s.retryOverride = s.retryOverride.with(policy)
	return s
}

func (s PublishSpec) properties() transport.Properties {
	mode := transport.Persistent
	if !s.durable {
		mode = transport.Transient
	}
	return transport.Properties{
		ContentType:  s.contentType,
		DeliveryMode: mode,
		Headers:      s.headers.Clone(),
	}
}

// ConsumeFunc handles one delivery. It must Ack or Nack the delivery exactly
// once and return the error of that call. Any returned error closes the
// subscription and makes the Channel reset and subscribe again.
type ConsumeFunc func(d *Delivery) error

// ConsumeSpec subscribes a callback to a queue
type ConsumeSpec struct {
	retryOverride
	queue     string
	callback  ConsumeFunc
	noLocal   bool
	exclusive bool
	args      Table
}

// NewConsume describes a subscription of callback to queue
func NewConsume(queue string, callback ConsumeFunc) ConsumeSpec {
	return ConsumeSpec{queue: queue, callback: callback}
}

// Queue returns the name of the consumed queue
func (s ConsumeSpec) Queue() string {
	return s.queue
}

// Callback returns the function deliveries are passed to
func (s ConsumeSpec) Callback() ConsumeFunc {
	return s.callback
}

// NoLocal reports whether messages published on the same connection are skipped
func (s ConsumeSpec) NoLocal() bool {
	return s.noLocal
}

// Exclusive reports whether the consumer requests sole access to the queue
func (s ConsumeSpec) Exclusive() bool {
	return s.exclusive
}

// Args returns a copy of the consumer arguments
func (s ConsumeSpec) Args() Table {
	return s.args.Clone()
}

// WithNoLocal sets whether messages published on the same connection are skipped
func (s ConsumeSpec) WithNoLocal(noLocal bool) ConsumeSpec {
	s.noLocal = noLocal
	return s
}

// WithExclusive sets whether the consumer requests sole access to the queue
func (s ConsumeSpec) WithExclusive(exclusive bool) ConsumeSpec {
	s.exclusive = exclusive
	return s
}

// WithArg adds or replaces one argument
func (s ConsumeSpec) WithArg(key string, value transport.Value) ConsumeSpec {
	s.args = s.args.With(key, value)
	return s
}

// WithArgs replaces all arguments with a copy of args
func (s ConsumeSpec) WithArgs(args Table) ConsumeSpec {
	s.args = args.Clone()
	return s
}

// WithRetryPolicy makes this operation use policy instead of the Connection default
func (s ConsumeSpec) WithRetryPolicy(policy RetryPolicy) ConsumeSpec {
	s.retryOverride = s.retryOverride.with(policy)
	return s
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
