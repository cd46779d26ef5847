package hamq

import (
	"github.com/buybrain/HAmq/transport"
)

// Delivery is a message handed to a ConsumeFunc. It must be acknowledged
// with exactly one call to Ack or Nack.
type Delivery struct {
	ConsumerTag string
	Envelope    transport.Envelope
	Properties  transport.Properties
	Body        []byte

	sub *subscription
}

func newDelivery(sub *subscription, d transport.Delivery) *Delivery {
	return &Delivery{
		ConsumerTag: d.ConsumerTag,
		Envelope:    d.Envelope,
		Properties:  d.Properties,
		Body:        d.Body,
		sub:         sub,
	}
}

// BodyString returns the body as a string
func (d *Delivery) BodyString() string {
	return string(d.Body)
}

// Ack acknowledges the delivery on the transport channel it arrived on.
// It fails with ErrConsumerClosed once that channel has been reset.
func (d *Delivery) Ack() error {
	if d.sub.isClosed() {
		return ErrConsumerClosed
	}
	return d.sub.transport.Ack(d.Envelope.DeliveryTag)
}

// Nack rejects the delivery without requeueing it
func (d *Delivery) Nack() error {
	if d.sub.isClosed() {
		return ErrConsumerClosed
	}
	return d.sub.transport.Nack(d.Envelope.DeliveryTag)
}
