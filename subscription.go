package hamq

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/buybrain/HAmq/transport"
)

// Subscription states. The only transition is active to closed.
const (
	subscriptionActive int32 = iota
	subscriptionClosed
)

// subscription is the delivery handler of one consumer tag on one transport
// channel. Once closed it refuses deliveries and acknowledgements, so nothing
// reaches a transport channel that is being torn down.
type subscription struct {
	channel   *Channel
	tag       string
	spec      ConsumeSpec
	transport transport.Channel
	logger    *slog.Logger
	state     atomic.Int32
}

func newSubscription(c *Channel, tag string, spec ConsumeSpec, ch transport.Channel) *subscription {
	return &subscription{
		channel:   c,
		tag:       tag,
		spec:      spec,
		transport: ch,
		logger:    c.logger.With("consumerTag", tag, "queue", spec.queue),
	}
}

// close moves the subscription to closed and reports whether this call did it
func (s *subscription) close() bool {
	return s.state.CompareAndSwap(subscriptionActive, subscriptionClosed)
}

func (s *subscription) isClosed() bool {
	return s.state.Load() == subscriptionClosed
}

// HandleDelivery passes d to the callback. A callback error means the
// delivery could not be acknowledged; the subscription is then closed and
// the channel reset, which subscribes again under the same tag.
func (s *subscription) HandleDelivery(d transport.Delivery) error {
	if s.isClosed() {
		return ErrConsumerClosed
	}

	err := s.invoke(newDelivery(s, d))
	if err == nil {
		return nil
	}

	if !s.close() {
		s.logger.Debug("delivery failed on closed consumer", "error", err)
		return nil
	}

	if cancelErr := s.transport.Cancel(s.tag); cancelErr != nil {
		s.logger.Debug("error cancelling consumer", "error", cancelErr)
	}
	s.logger.Warn("error while acknowledging delivery, will retry consuming",
		"error", err,
		"deliveryTag", d.Envelope.DeliveryTag,
	)
	s.channel.reset(s.transport)
	return nil
}

// invoke runs the callback, turning a panic into an error
func (s *subscription) invoke(d *Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("consume callback panicked: %v", r)
		}
	}()
	return s.spec.callback(d)
}

// HandleShutdown resets the channel when the transport channel under this
// subscription is closed by the broker or the network
func (s *subscription) HandleShutdown(consumerTag string, err error) {
	if !s.close() {
		return
	}
	s.logger.Warn("consumer shut down, will retry consuming", "error", err)
	s.channel.reset(s.transport)
}
