package hamq

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection(t *testing.T) {
	t.Run("rejects invalid configuration", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Port = 0

		_, err := NewConnection(newRecorder(), cfg)

		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("does not dial eagerly", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)

		assert.Empty(t, rec.Calls())
		assert.NotEmpty(t, conn.ID())
		assert.Equal(t, DefaultRetryPolicy().InitialDelay, conn.RetryPolicy().InitialDelay)
	})
}

func TestConnectionLifecycle(t *testing.T) {
	t.Run("opening retries every error", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)
		rec.failNext("open connection", errors.New("connection refused"), errors.New("connection refused"))

		c, err := conn.activeConnection()

		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, 3, rec.count("open connection"))
		assert.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond}, rec.Sleeps())
	})

	t.Run("concurrent first use opens one connection", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := conn.activeConnection()
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, rec.count("open connection"))
	})

	t.Run("channels share one connection", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, conn.NewChannel().Publish(NewQueuePublish("q", nil)))
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, rec.count("open connection"))
		assert.Equal(t, 4, rec.count("open channel"))
	})

	t.Run("reset closes and reopens lazily", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)

		first, err := conn.activeConnection()
		require.NoError(t, err)

		conn.Reset()
		conn.Reset()
		assert.Equal(t, 1, rec.count("close connection"))

		second, err := conn.activeConnection()
		require.NoError(t, err)
		assert.NotSame(t, first, second)
		assert.Equal(t, 2, rec.count("open connection"))
	})

	t.Run("close errors are swallowed on reset", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)
		_, err := conn.activeConnection()
		require.NoError(t, err)
		rec.failNext("close connection", errors.New("already closed"))

		conn.Reset()

		_, err = conn.activeConnection()
		require.NoError(t, err)
		assert.Equal(t, 2, rec.count("open connection"))
	})

	t.Run("discard ignores superseded connections", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)

		stale, err := conn.activeConnection()
		require.NoError(t, err)
		conn.Reset()
		current, err := conn.activeConnection()
		require.NoError(t, err)

		conn.discard(stale)

		again, err := conn.activeConnection()
		require.NoError(t, err)
		assert.Same(t, current, again)
	})

	t.Run("Close reports the close error", func(t *testing.T) {
		rec := newRecorder()
		conn := newTestConnection(rec, rec)
		assert.NoError(t, conn.Close())

		_, err := conn.activeConnection()
		require.NoError(t, err)
		closeErr := errors.New("broken pipe")
		rec.failNext("close connection", closeErr)

		assert.Same(t, closeErr, conn.Close())
	})
}
