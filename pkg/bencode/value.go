package bencode

import (
	"github.com/elliotchance/orderedmap"
)

type Kind int

const (
	KindInteger Kind = iota + 1
	KindBytes
	KindList
	KindDict
)

// Value is one node of a decoded bencode document. Dictionaries keep their
// insertion order so that a decoded document can be re-encoded without
// disturbing the producer's key layout.
type Value struct {
	kind    Kind
	integer int64
	bytes   []byte
	list    []*Value
	dict    *orderedmap.OrderedMap

	// raw is the byte span this value was decoded from, nil for values
	// constructed in code.
	raw []byte
}

func NewInteger(i int64) *Value {
	return &Value{kind: KindInteger, integer: i}
}

func NewBytes(b []byte) *Value {
	return &Value{kind: KindBytes, bytes: b}
}

func NewString(s string) *Value {
	return &Value{kind: KindBytes, bytes: []byte(s)}
}

func NewList(items ...*Value) *Value {
	return &Value{kind: KindList, list: items}
}

func NewDict() *Value {
	return &Value{kind: KindDict, dict: orderedmap.NewOrderedMap()}
}

func (v *Value) Kind() Kind {
	return v.kind
}

func (v *Value) Int64() int64 {
	return v.integer
}

func (v *Value) Bytes() []byte {
	return v.bytes
}

func (v *Value) Text() string {
	return string(v.bytes)
}

func (v *Value) List() []*Value {
	return v.list
}

func (v *Value) Append(items ...*Value) {
	v.list = append(v.list, items...)
}

// Keys returns the dictionary keys in insertion order.
func (v *Value) Keys() []string {
	if v.dict == nil {
		return nil
	}

	keys := make([]string, 0, v.dict.Len())
	for _, key := range v.dict.Keys() {
		keys = append(keys, key.(string))
	}

	return keys
}

func (v *Value) Get(key string) (*Value, bool) {
	if v.dict == nil {
		return nil, false
	}

	val, ok := v.dict.Get(key)
	if !ok {
		return nil, false
	}

	return val.(*Value), true
}

func (v *Value) Set(key string, val *Value) {
	if v.dict == nil {
		v.dict = orderedmap.NewOrderedMap()
	}

	v.dict.Set(key, val)
}

// Raw returns the original byte span of a decoded value, or nil if the value
// was constructed rather than decoded.
func (v *Value) Raw() []byte {
	return v.raw
}

// Unwrap converts a value into plain Go types (int64, []byte, []any and
// map[string]any) for consumers such as mapstructure. Dictionary order is not
// preserved; use the value itself when re-encoding matters.
func (v *Value) Unwrap() any {
	switch v.kind {
	case KindInteger:
		return v.integer
	case KindBytes:
		return v.bytes
	case KindList:
		items := make([]any, 0, len(v.list))
		for _, item := range v.list {
			items = append(items, item.Unwrap())
		}

		return items
	case KindDict:
		m := make(map[string]any, v.dict.Len())
		for _, key := range v.Keys() {
			val, _ := v.Get(key)
			m[key] = val.Unwrap()
		}

		return m
	default:
		return nil
	}
}
