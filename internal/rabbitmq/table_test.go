package rabbitmq

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buybrain/HAmq/transport"
)

func TestToAMQPTable(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		table, err := toAMQPTable(nil)
		require.NoError(t, err)
		assert.Nil(t, table)
	})

	t.Run("converts every variant", func(t *testing.T) {
		in := transport.Table{
			"x-queue-type": transport.String("quorum"),
			"x-max-length": transport.Int(100),
			"x-single":     transport.Bool(true),
			"hosts":        transport.List(transport.String("a"), transport.Int(1)),
			"policy":       transport.Nested(transport.Table{"mode": transport.String("lazy")}),
		}

		out, err := toAMQPTable(in)
		require.NoError(t, err)

		assert.Equal(t, amqp.Table{
			"x-queue-type": "quorum",
			"x-max-length": int64(100),
			"x-single":     true,
			"hosts":        []interface{}{"a", int64(1)},
			"policy":       amqp.Table{"mode": "lazy"},
		}, out)
		assert.NoError(t, out.Validate())
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		_, err := toAMQPTable(transport.Table{"broken": transport.Value{}})
		assert.ErrorIs(t, err, ErrUnsupportedValue)
	})
}

func TestFromAMQPTable(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	out := fromAMQPTable(amqp.Table{
		"s":       "x",
		"b":       []byte("raw"),
		"i8":      int8(-1),
		"u16":     uint16(7),
		"i32":     int32(42),
		"f":       1.5,
		"t":       stamp,
		"flag":    false,
		"list":    []interface{}{"a", int64(2)},
		"nested":  amqp.Table{"k": "v"},
		"skipped": struct{}{},
	})

	assert.Equal(t, transport.Table{
		"s":      transport.String("x"),
		"b":      transport.String("raw"),
		"i8":     transport.Int(-1),
		"u16":    transport.Int(7),
		"i32":    transport.Int(42),
		"f":      transport.String("1.5"),
		"t":      transport.String("2024-03-01T12:00:00Z"),
		"flag":   transport.Bool(false),
		"list":   transport.List(transport.String("a"), transport.Int(2)),
		"nested": transport.Nested(transport.Table{"k": transport.String("v")}),
	}, out)
}
