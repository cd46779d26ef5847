package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	t.Run("accessors only match their own variant", func(t *testing.T) {
		s, ok := String("v").AsString()
		assert.True(t, ok)
		assert.Equal(t, "v", s)

		_, ok = String("v").AsInt()
		assert.False(t, ok)

		n, ok := Int(42).AsInt()
		assert.True(t, ok)
		assert.Equal(t, int64(42), n)

		b, ok := Bool(true).AsBool()
		assert.True(t, ok)
		assert.True(t, b)
	})

	t.Run("zero value is invalid", func(t *testing.T) {
		var v Value
		assert.False(t, v.IsValid())
		assert.Equal(t, "<invalid>", v.String())
	})

	t.Run("list and nested values are copied", func(t *testing.T) {
		items := []Value{Int(1), Int(2)}
		list := List(items...)
		items[0] = Int(99)

		got, ok := list.AsList()
		assert.True(t, ok)
		assert.True(t, got[0].Equal(Int(1)))

		inner := Table{"a": String("x")}
		nested := Nested(inner)
		inner["a"] = String("changed")

		table, ok := nested.AsTable()
		assert.True(t, ok)
		assert.True(t, table["a"].Equal(String("x")))
	})

	t.Run("equality compares structure", func(t *testing.T) {
		a := List(String("x"), Nested(Table{"k": Bool(false)}))
		b := List(String("x"), Nested(Table{"k": Bool(false)}))
		c := List(String("x"), Nested(Table{"k": Bool(true)}))

		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
		assert.False(t, Int(1).Equal(String("1")))
	})
}

func TestTable(t *testing.T) {
	t.Run("With copies on write", func(t *testing.T) {
		original := Table{"a": Int(1)}
		derived := original.With("b", Int(2))

		assert.Len(t, original, 1)
		assert.Len(t, derived, 2)

		derived2 := derived.With("a", Int(3))
		assert.True(t, derived["a"].Equal(Int(1)))
		assert.True(t, derived2["a"].Equal(Int(3)))
	})

	t.Run("With on nil table", func(t *testing.T) {
		var empty Table
		assert.Len(t, empty.With("k", String("v")), 1)
	})

	t.Run("nil equals empty", func(t *testing.T) {
		assert.True(t, Table(nil).Equal(Table{}))
		assert.False(t, Table{"a": Int(1)}.Equal(Table{"a": Int(2)}))
		assert.False(t, Table{"a": Int(1)}.Equal(Table{"b": Int(1)}))
	})

	t.Run("String is sorted by key", func(t *testing.T) {
		table := Table{"b": Int(2), "a": String("x")}
		assert.Equal(t, `{a="x" b=2}`, table.String())
	})
}

func TestShutdownError(t *testing.T) {
	cause := errors.New("frame error")
	err := &ShutdownError{Code: 320, Reason: "CONNECTION_FORCED", Server: true, Hard: true, Cause: cause}

	assert.Equal(t, "connection shutdown (server initiated): 320 CONNECTION_FORCED", err.Error())
	assert.ErrorIs(t, err, cause)

	soft := &ShutdownError{Code: 404, Reason: "NOT_FOUND"}
	assert.Equal(t, "channel shutdown (client initiated): 404 NOT_FOUND", soft.Error())
}
