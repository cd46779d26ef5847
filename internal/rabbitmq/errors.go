package rabbitmq

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buybrain/HAmq/transport"
)

var (
	// ErrChannelClosed is the cause of every error returned by an operation
	// on a channel that is already closed
	ErrChannelClosed = errors.New("rabbitmq: channel is closed")

	// ErrUnsupportedValue is returned when an argument cannot be sent to the broker
	ErrUnsupportedValue = errors.New("rabbitmq: unsupported table value")
)

// ConnectionError represents a connection-related error
type ConnectionError struct {
	Op        string    // Operation that failed
	URL       string    // Connection URL (sanitized)
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("rabbitmq connection error: %s %s failed: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ChannelError represents a failed channel operation
type ChannelError struct {
	Op        string    // Operation that failed
	Target    string    // Exchange, queue or consumer tag involved
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

func (e *ChannelError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("rabbitmq channel error: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("rabbitmq channel error: %s %q failed: %v", e.Op, e.Target, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// translate converts amqp091 close signals into transport.ShutdownError.
// Other errors, such as socket errors from dialing, pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return shutdownError(amqpErr)
	}
	return err
}

func shutdownError(e *amqp.Error) *transport.ShutdownError {
	return &transport.ShutdownError{
		Code:   e.Code,
		Reason: e.Reason,
		Server: e.Server,
		Hard:   !e.Recover,
		Cause:  e,
	}
}

// closedError fails op without reaching amqp091. It carries a hard shutdown
// like amqp.ErrClosed does, so the operation is retried on a new channel.
func closedError(op, target string) error {
	return &ChannelError{
		Op:     op,
		Target: target,
		Err: &transport.ShutdownError{
			Code:   amqp.ChannelError,
			Reason: "channel is closed",
			Hard:   true,
			Cause:  ErrChannelClosed,
		},
		Timestamp: time.Now(),
	}
}

func channelError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &ChannelError{
		Op:        op,
		Target:    target,
		Err:       translate(err),
		Timestamp: time.Now(),
	}
}

// SanitizeURL hides the password of a connection URL
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
