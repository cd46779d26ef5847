package rabbitmq

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/buybrain/HAmq/internal/rabbitmq"
)

func TestNewBackend(t *testing.T) {
	t.Run("returns the amqp091 backend", func(t *testing.T) {
		backend := NewBackend()
		assert.IsType(t, &rabbitmq.Backend{}, backend)
	})

	t.Run("options are collected", func(t *testing.T) {
		cfg := &TransportConfig{}
		logger := slog.Default()

		for _, opt := range []TransportOption{
			WithLogger(logger),
			WithHeartbeat(30 * time.Second),
			WithConnectionName("relay"),
		} {
			opt(cfg)
		}

		assert.Equal(t, logger, cfg.Logger)
		assert.Equal(t, 30*time.Second, cfg.Heartbeat)
		assert.Equal(t, "relay", cfg.ConnectionName)
	})
}
