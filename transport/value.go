package transport

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindBool
	KindList
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	default:
		return "invalid"
	}
}

// Value is a broker argument or header value. It is one of string, integer,
// boolean, list of values, or a nested Table. The zero Value is invalid.
type Value struct {
	kind  Kind
	str   string
	num   int64
	flag  bool
	list  []Value
	table Table
}

// String returns a string value
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int returns an integer value
func Int(n int64) Value {
	return Value{kind: KindInt, num: n}
}

// Bool returns a boolean value
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// List returns a list value holding a copy of vs
func List(vs ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), vs...)}
}

// Nested returns a value holding a copy of t
func Nested(t Table) Value {
	return Value{kind: KindTable, table: t.Clone()}
}

// Kind returns the variant held by v
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether v holds any variant
func (v Value) IsValid() bool {
	return v.kind != 0
}

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsInt() (int64, bool) {
	return v.num, v.kind == KindInt
}

func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// AsList returns a copy of the list held by v
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

// AsTable returns a copy of the table held by v
func (v Value) AsTable() (Table, bool) {
	if v.kind != KindTable {
		return nil, false
	}
	return v.table.Clone(), true
}

// Equal reports whether v and o hold the same variant and contents
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindBool:
		return v.flag == o.flag
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindTable:
		return v.table.Equal(o.table)
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.flag)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindTable:
		return v.table.String()
	default:
		return "<invalid>"
	}
}

// Table maps argument or header names to values. Tables held by specs are
// never mutated in place; use With to derive a modified copy.
type Table map[string]Value

// With returns a copy of t with key set to v
func (t Table) With(key string, v Value) Table {
	out := make(Table, len(t)+1)
	for k, val := range t {
		out[k] = val
	}
	out[key] = v
	return out
}

// Clone returns a shallow copy of t. A nil table clones to nil.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Equal reports whether both tables hold equal values under the same keys.
// A nil table equals an empty one.
func (t Table) Equal(o Table) bool {
	if len(t) != len(o) {
		return false
	}
	for k, v := range t {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns the table keys in sorted order
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Table) String() string {
	parts := make([]string, 0, len(t))
	for _, k := range t.Keys() {
		parts = append(parts, k+"="+t[k].String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
