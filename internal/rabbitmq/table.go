package rabbitmq

import (
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buybrain/HAmq/transport"
)

// toAMQPTable converts arguments into the form amqp091 encodes on the wire
func toAMQPTable(t transport.Table) (amqp.Table, error) {
	if t == nil {
		return nil, nil
	}
	out := make(amqp.Table, len(t))
	for k, v := range t {
		converted, err := toAMQPValue(v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		out[k] = converted
	}
	return out, nil
}

func toAMQPValue(v transport.Value) (interface{}, error) {
	switch v.Kind() {
	case transport.KindString:
		s, _ := v.AsString()
		return s, nil
	case transport.KindInt:
		n, _ := v.AsInt()
		return n, nil
	case transport.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case transport.KindList:
		items, _ := v.AsList()
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			converted, err := toAMQPValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case transport.KindTable:
		nested, _ := v.AsTable()
		return toAMQPTable(nested)
	}
	return nil, ErrUnsupportedValue
}

// fromAMQPTable converts received headers. Numbers become integers where
// they fit; floats, decimals and timestamps are carried as strings.
func fromAMQPTable(t amqp.Table) transport.Table {
	if t == nil {
		return nil
	}
	out := make(transport.Table, len(t))
	for k, v := range t {
		if converted, ok := fromAMQPValue(v); ok {
			out[k] = converted
		}
	}
	return out
}

func fromAMQPValue(v interface{}) (transport.Value, bool) {
	switch x := v.(type) {
	case string:
		return transport.String(x), true
	case []byte:
		return transport.String(string(x)), true
	case bool:
		return transport.Bool(x), true
	case int:
		return transport.Int(int64(x)), true
	case int8:
		return transport.Int(int64(x)), true
	case int16:
		return transport.Int(int64(x)), true
	case int32:
		return transport.Int(int64(x)), true
	case int64:
		return transport.Int(x), true
	case uint8:
		return transport.Int(int64(x)), true
	case uint16:
		return transport.Int(int64(x)), true
	case uint32:
		return transport.Int(int64(x)), true
	case float32:
		return transport.String(strconv.FormatFloat(float64(x), 'g', -1, 32)), true
	case float64:
		return transport.String(strconv.FormatFloat(x, 'g', -1, 64)), true
	case amqp.Decimal:
		return transport.String(fmt.Sprintf("%de-%d", x.Value, x.Scale)), true
	case time.Time:
		return transport.String(x.UTC().Format(time.RFC3339)), true
	case []interface{}:
		items := make([]transport.Value, 0, len(x))
		for _, item := range x {
			if converted, ok := fromAMQPValue(item); ok {
				items = append(items, converted)
			}
		}
		return transport.List(items...), true
	case amqp.Table:
		return transport.Nested(fromAMQPTable(x)), true
	}
	return transport.Value{}, false
}
