package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buybrain/HAmq/transport"
)

// amqpChannel is the subset of *amqp.Channel used here
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
	Cancel(consumer string, noWait bool) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	NotifyCancel(c chan string) chan string
	Close() error
}

// Channel adapts an amqp091 channel to transport.Channel.
//
// A watcher goroutine listens for the channel being closed by anything other
// than its own Close: the broker, the network, or the client closing the
// connection underneath it. The translated error is forwarded to every
// subscription's HandleShutdown. Deliveries are pumped to handlers from one
// goroutine per subscription.
type Channel struct {
	ch     amqpChannel
	logger *slog.Logger

	mu        sync.Mutex
	consumers map[string]*consumer

	closed atomic.Bool
	done   chan struct{}
}

func newChannel(ch amqpChannel, logger *slog.Logger) *Channel {
	c := &Channel{
		ch:        ch,
		logger:    logger,
		consumers: make(map[string]*consumer),
		done:      make(chan struct{}),
	}

	closeCh := ch.NotifyClose(make(chan *amqp.Error, 1))
	cancelCh := ch.NotifyCancel(make(chan string, 16))
	go c.watch(closeCh, cancelCh)

	return c
}

func (c *Channel) watch(closeCh <-chan *amqp.Error, cancelCh <-chan string) {
	defer close(c.done)

	for {
		select {
		case tag, ok := <-cancelCh:
			if !ok {
				cancelCh = nil
				continue
			}
			c.logger.Warn("consumer cancelled by broker", "consumerTag", tag)

		case amqpErr, ok := <-closeCh:
			if !ok || amqpErr == nil {
				// amqp091 closes the notification without an error both for
				// Close and when the connection is closed by the client
				if !c.closed.CompareAndSwap(false, true) {
					return
				}
				amqpErr = amqp.ErrClosed
			}
			c.closed.Store(true)
			err := shutdownError(amqpErr)
			c.logger.Warn("channel closed", "error", err)
			for _, cons := range c.takeConsumers() {
				cons.handler.HandleShutdown(cons.tag, err)
			}
			return
		}
	}
}

func (c *Channel) takeConsumers() []*consumer {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*consumer, 0, len(c.consumers))
	for tag, cons := range c.consumers {
		out = append(out, cons)
		delete(c.consumers, tag)
	}
	return out
}

func (c *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal bool, args transport.Table) error {
	if c.closed.Load() {
		return closedError("exchange declare", name)
	}
	table, err := toAMQPTable(args)
	if err != nil {
		return err
	}
	return channelError("exchange declare", name, c.ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, false, table))
}

func (c *Channel) QueueDeclare(name string, durable, exclusive, autoDelete bool, args transport.Table) error {
	if c.closed.Load() {
		return closedError("queue declare", name)
	}
	table, err := toAMQPTable(args)
	if err != nil {
		return err
	}
	_, err = c.ch.QueueDeclare(name, durable, autoDelete, exclusive, false, table)
	return channelError("queue declare", name, err)
}

func (c *Channel) QueueBind(queue, exchange, routingKey string, args transport.Table) error {
	if c.closed.Load() {
		return closedError("queue bind", queue)
	}
	table, err := toAMQPTable(args)
	if err != nil {
		return err
	}
	return channelError("queue bind", queue, c.ch.QueueBind(queue, routingKey, exchange, false, table))
}

func (c *Channel) Qos(prefetchCount int) error {
	if c.closed.Load() {
		return closedError("qos", "")
	}
	return channelError("qos", "", c.ch.Qos(prefetchCount, 0, false))
}

func (c *Channel) Publish(exchange, routingKey string, mandatory bool, props transport.Properties, body []byte) error {
	if c.closed.Load() {
		return closedError("publish", exchange+"/"+routingKey)
	}
	headers, err := toAMQPTable(props.Headers)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		Headers:         headers,
		ContentType:     props.ContentType,
		ContentEncoding: props.ContentEncoding,
		DeliveryMode:    props.DeliveryMode,
		Priority:        props.Priority,
		CorrelationId:   props.CorrelationID,
		ReplyTo:         props.ReplyTo,
		Expiration:      props.Expiration,
		MessageId:       props.MessageID,
		Timestamp:       props.Timestamp,
		Type:            props.Type,
		AppId:           props.AppID,
		Body:            body,
	}

	err = c.ch.PublishWithContext(context.Background(), exchange, routingKey, mandatory, false, msg)
	return channelError("publish", exchange+"/"+routingKey, err)
}

func (c *Channel) Consume(queue, consumerTag string, noLocal, exclusive bool, args transport.Table, handler transport.DeliveryHandler) error {
	if c.closed.Load() {
		return closedError("consume", queue)
	}
	table, err := toAMQPTable(args)
	if err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(queue, consumerTag, false, exclusive, noLocal, false, table)
	if err != nil {
		return channelError("consume", queue, err)
	}

	cons := &consumer{
		tag:        consumerTag,
		queue:      queue,
		handler:    handler,
		deliveries: deliveries,
		logger:     c.logger.With("consumerTag", consumerTag, "queue", queue),
	}

	c.mu.Lock()
	c.consumers[consumerTag] = cons
	c.mu.Unlock()

	go cons.pump()
	return nil
}

func (c *Channel) Ack(deliveryTag uint64) error {
	if c.closed.Load() {
		return closedError("ack", "")
	}
	return channelError("ack", "", c.ch.Ack(deliveryTag, false))
}

func (c *Channel) Nack(deliveryTag uint64) error {
	if c.closed.Load() {
		return closedError("nack", "")
	}
	return channelError("nack", "", c.ch.Nack(deliveryTag, false, false))
}

func (c *Channel) Cancel(consumerTag string) error {
	c.mu.Lock()
	delete(c.consumers, consumerTag)
	c.mu.Unlock()

	if c.closed.Load() {
		return closedError("cancel", consumerTag)
	}
	return channelError("cancel", consumerTag, c.ch.Cancel(consumerTag, false))
}

// Close closes the channel. Subscriptions are not notified of a close
// requested by the client.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.takeConsumers()

	err := c.ch.Close()
	if err == amqp.ErrClosed {
		return nil
	}
	return channelError("close", "", err)
}
