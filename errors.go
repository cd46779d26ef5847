package hamq

import (
	"errors"
	"fmt"
)

var (
	// ErrConsumerClosed is returned when a delivery reaches, or is acknowledged
	// through, a subscription that was closed by a reset or a terminal failure
	ErrConsumerClosed = errors.New("hamq: consumer is closed")

	// ErrInvalidConfiguration is wrapped by every ConfigError
	ErrInvalidConfiguration = errors.New("hamq: invalid configuration")

	// ErrNilCallback is returned by Consume when the spec carries no callback
	ErrNilCallback = errors.New("hamq: consume callback is nil")

	// ErrInvalidPrefetch is returned by Prefetch for counts AMQP cannot carry
	ErrInvalidPrefetch = errors.New("hamq: prefetch count must be between 0 and 65535")
)

// ConfigError describes a single invalid configuration field
type ConfigError struct {
	Field  string // Offending field
	Value  any    // Value that was rejected
	Reason string // Why it was rejected
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("hamq: invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}
