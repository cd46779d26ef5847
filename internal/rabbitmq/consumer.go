package rabbitmq

import (
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buybrain/HAmq/transport"
)

// consumer pumps the deliveries of one subscription into its handler
type consumer struct {
	tag        string
	queue      string
	handler    transport.DeliveryHandler
	deliveries <-chan amqp.Delivery
	logger     *slog.Logger
}

// pump runs until amqp091 closes the delivery channel, which happens on
// cancel and on channel close
func (c *consumer) pump() {
	for d := range c.deliveries {
		if err := c.handler.HandleDelivery(toDelivery(d)); err != nil {
			c.logger.Debug("delivery refused by handler",
				"deliveryTag", d.DeliveryTag,
				"error", err,
			)
		}
	}
	c.logger.Debug("consumer stopped")
}

func toDelivery(d amqp.Delivery) transport.Delivery {
	return transport.Delivery{
		ConsumerTag: d.ConsumerTag,
		Envelope: transport.Envelope{
			DeliveryTag: d.DeliveryTag,
			Redelivered: d.Redelivered,
			Exchange:    d.Exchange,
			RoutingKey:  d.RoutingKey,
		},
		Properties: transport.Properties{
			ContentType:     d.ContentType,
			ContentEncoding: d.ContentEncoding,
			DeliveryMode:    d.DeliveryMode,
			Priority:        d.Priority,
			CorrelationID:   d.CorrelationId,
			ReplyTo:         d.ReplyTo,
			Expiration:      d.Expiration,
			MessageID:       d.MessageId,
			Timestamp:       d.Timestamp,
			Type:            d.Type,
			AppID:           d.AppId,
			Headers:         fromAMQPTable(d.Headers),
		},
		Body: d.Body,
	}
}
