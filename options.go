package hamq

import (
	"log/slog"
	"time"

	"github.com/buybrain/HAmq/internal/reliability"
)

// Option configures a Connection and the Channels created from it
type Option func(*options)

type options struct {
	logger *slog.Logger
	sleep  func(time.Duration)
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSleepFunc replaces time.Sleep as the backoff primitive between retries
func WithSleepFunc(sleep func(time.Duration)) Option {
	return func(o *options) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: slog.Default(),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) retryer() *reliability.Retryer {
	return reliability.NewRetryer(
		reliability.WithSleepFunc(o.sleep),
		reliability.WithLogger(o.logger),
	)
}
