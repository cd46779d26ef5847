package reliability

import (
	"log/slog"
	"time"
)

// Policy describes the backoff applied between attempts of one operation
type Policy struct {
	// RetryAll makes every error retryable, not only network errors
	RetryAll        bool
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	DelayMultiplier float64

	errorHook func(error)
}

// DefaultPolicy retries network errors starting at 1s, growing by 1.5x up to 30s
func DefaultPolicy() Policy {
	return Policy{
		RetryAll:        false,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		DelayMultiplier: 1.5,
	}
}

func (p Policy) WithRetryAll(retryAll bool) Policy {
	p.RetryAll = retryAll
	return p
}

func (p Policy) WithInitialDelay(d time.Duration) Policy {
	p.InitialDelay = d
	return p
}

func (p Policy) WithMaxDelay(d time.Duration) Policy {
	p.MaxDelay = d
	return p
}

func (p Policy) WithDelayMultiplier(m float64) Policy {
	p.DelayMultiplier = m
	return p
}

// WithErrorHook returns a copy of p that calls hook for every retryable
// failure, before the backoff sleep. Any hook already set is replaced.
func WithErrorHook(p Policy, hook func(error)) Policy {
	p.errorHook = hook
	return p
}

// Retryable reports whether err should be retried under p
func (p Policy) Retryable(err error) bool {
	return p.RetryAll || IsNetworkError(err)
}

// NextDelay grows delay by the multiplier, capped at MaxDelay
func (p Policy) NextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * p.DelayMultiplier)
	if next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

// Retryer executes operations until they succeed or fail permanently
type Retryer struct {
	sleep  func(time.Duration)
	logger *slog.Logger
}

// RetryerOption configures a Retryer
type RetryerOption func(*Retryer)

// WithSleepFunc replaces time.Sleep as the backoff primitive
func WithSleepFunc(sleep func(time.Duration)) RetryerOption {
	return func(r *Retryer) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) RetryerOption {
	return func(r *Retryer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetryer creates a new retryer
func NewRetryer(options ...RetryerOption) *Retryer {
	r := &Retryer{
		sleep:  time.Sleep,
		logger: slog.Default(),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Do runs op until it succeeds or returns an error that is not retryable
// under policy. That error is returned unchanged.
func (r *Retryer) Do(op func() error, policy Policy) error {
	_, err := Perform(r, func() (struct{}, error) {
		return struct{}{}, op()
	}, policy)
	return err
}

// Perform is Do for operations producing a value
func Perform[T any](r *Retryer, op func() (T, error), policy Policy) (T, error) {
	var delay time.Duration

	for attempt := 1; ; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}

		if !policy.Retryable(err) {
			var zero T
			return zero, err
		}

		if policy.errorHook != nil {
			policy.errorHook(err)
		}

		if delay == 0 {
			delay = policy.InitialDelay
		}

		r.logger.Warn("encountered error, will retry later",
			"error", err,
			"attempt", attempt,
			"delay", delay,
		)

		r.sleep(delay)
		delay = policy.NextDelay(delay)
	}
}
