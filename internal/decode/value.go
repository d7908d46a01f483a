package decode

import "math/big"

// Value is a materialized result: a tagged variant over the decoder's value
// kinds. Kind selects which Go type Data holds, per the table on Kind. A
// Value owns its payload outright and holds no reference into the Source
// that produced it.
type Value struct {
	Kind Kind
	Data any
}

// Constructors, one per kind.

func Mapping(m map[string]Value) Value { return Value{Kind: KindMap, Data: m} }
func Sequence(xs []Value) Value        { return Value{Kind: KindArray, Data: xs} }
func String(s string) Value            { return Value{Kind: KindString, Data: s} }
func Bytes(b []byte) Value             { return Value{Kind: KindBytes, Data: b} }
func Double(f float64) Value           { return Value{Kind: KindDouble, Data: f} }
func Float(f float32) Value            { return Value{Kind: KindFloat, Data: f} }
func Uint16(v uint16) Value            { return Value{Kind: KindUint16, Data: v} }
func Uint32(v uint32) Value            { return Value{Kind: KindUint32, Data: v} }
func Uint64(v uint64) Value            { return Value{Kind: KindUint64, Data: v} }
func Uint128(v *big.Int) Value         { return Value{Kind: KindUint128, Data: v} }
func Int32(v int32) Value              { return Value{Kind: KindInt32, Data: v} }
func Bool(b bool) Value                { return Value{Kind: KindBool, Data: b} }

// AsMap returns the mapping payload of a KindMap value.
func (v Value) AsMap() (map[string]Value, bool) {
	m, ok := v.Data.(map[string]Value)
	return m, ok
}

// AsArray returns the element slice of a KindArray value.
func (v Value) AsArray() ([]Value, bool) {
	xs, ok := v.Data.([]Value)
	return xs, ok
}

// AsString returns the payload of a KindString value.
func (v Value) AsString() (string, bool) {
	s, ok := v.Data.(string)
	return s, ok
}

// AsBytes returns the payload of a KindBytes value.
func (v Value) AsBytes() ([]byte, bool) {
	b, ok := v.Data.([]byte)
	return b, ok
}

// AsUint widens any unsigned scalar kind below 128 bits to uint64.
func (v Value) AsUint() (uint64, bool) {
	switch x := v.Data.(type) {
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	}
	return 0, false
}

// AsBool returns the payload of a KindBool value.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.Data.(bool)
	return b, ok
}

// Interface converts the value into a plain Go tree: maps become
// map[string]any, arrays become []any, scalars keep their native types
// (*big.Int for uint128, []byte for byte strings).
func (v Value) Interface() any {
	switch x := v.Data.(type) {
	case map[string]Value:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = e.Interface()
		}
		return m
	case []Value:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = e.Interface()
		}
		return s
	default:
		return v.Data
	}
}
