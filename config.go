package hamq

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/buybrain/HAmq/internal/reliability"
	"github.com/buybrain/HAmq/transport"
)

// DefaultEnvPrefix is the environment variable prefix used by the CLI
const DefaultEnvPrefix = "AMQP_"

// RetryPolicy controls the backoff applied when an operation fails with a
// retryable error. Policies are values; the With methods return copies.
type RetryPolicy = reliability.Policy

// DefaultRetryPolicy retries network errors starting at 1s, growing by 1.5x
// up to 30s
func DefaultRetryPolicy() RetryPolicy {
	return reliability.DefaultPolicy()
}

// Config holds the broker address, credentials and the default retry policy
// of a Connection
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	VHost       string
	RetryPolicy RetryPolicy
}

// DefaultConfig points at a local broker with the guest account
func DefaultConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        5672,
		Username:    "guest",
		Password:    "guest",
		VHost:       "/",
		RetryPolicy: DefaultRetryPolicy(),
	}
}

// ConfigFromEnv reads the configuration from environment variables named
// prefix + HOST, PORT, USER, PASS, VHOST, RETRY_INITIAL_DELAY,
// RETRY_MAX_DELAY and RETRY_MULTIPLIER. Unset variables keep their
// DefaultConfig value. Delays use Go duration syntax, e.g. "500ms".
func ConfigFromEnv(prefix string) (Config, error) {
	def := DefaultConfig()
	v := viper.New()

	bindings := []struct {
		key   string
		env   string
		value any
	}{
		{"host", "HOST", def.Host},
		{"port", "PORT", def.Port},
		{"username", "USER", def.Username},
		{"password", "PASS", def.Password},
		{"vhost", "VHOST", def.VHost},
		{"retry.initial_delay", "RETRY_INITIAL_DELAY", def.RetryPolicy.InitialDelay},
		{"retry.max_delay", "RETRY_MAX_DELAY", def.RetryPolicy.MaxDelay},
		{"retry.multiplier", "RETRY_MULTIPLIER", def.RetryPolicy.DelayMultiplier},
	}
	for _, b := range bindings {
		v.SetDefault(b.key, b.value)
		if err := v.BindEnv(b.key, prefix+b.env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s%s: %w", prefix, b.env, err)
		}
	}

	if raw := strings.TrimSpace(v.GetString("port")); raw != "" && v.GetInt("port") == 0 && raw != "0" {
		return Config{}, &ConfigError{Field: "port", Value: raw, Reason: "not a number"}
	}

	cfg := Config{
		Host:     v.GetString("host"),
		Port:     v.GetInt("port"),
		Username: v.GetString("username"),
		Password: v.GetString("password"),
		VHost:    v.GetString("vhost"),
		RetryPolicy: def.RetryPolicy.
			WithInitialDelay(v.GetDuration("retry.initial_delay")).
			WithMaxDelay(v.GetDuration("retry.max_delay")).
			WithDelayMultiplier(v.GetFloat64("retry.multiplier")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be used to open connections
func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return &ConfigError{Field: "host", Value: c.Host, Reason: "must not be empty"}
	case c.Port <= 0 || c.Port > 65535:
		return &ConfigError{Field: "port", Value: c.Port, Reason: "must be between 1 and 65535"}
	case c.RetryPolicy.InitialDelay <= 0:
		return &ConfigError{Field: "retry.initial_delay", Value: c.RetryPolicy.InitialDelay, Reason: "must be positive"}
	case c.RetryPolicy.MaxDelay < c.RetryPolicy.InitialDelay:
		return &ConfigError{Field: "retry.max_delay", Value: c.RetryPolicy.MaxDelay, Reason: "must not be below the initial delay"}
	case c.RetryPolicy.DelayMultiplier < 1:
		return &ConfigError{Field: "retry.multiplier", Value: c.RetryPolicy.DelayMultiplier, Reason: "must be at least 1"}
	}
	return nil
}

func (c Config) transportConfig() transport.Config {
	return transport.Config{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		VHost:    c.VHost,
	}
}
