package mmdbtest

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/agentic-research/mmdb/internal/decode"
)

// Data-section type codes. Codes above 7 are written as an extended marker
// byte pair.
const (
	wirePointer = 1
	wireString  = 2
	wireFloat64 = 3
	wireBytes   = 4
	wireUint16  = 5
	wireUint32  = 6
	wireMap     = 7
	wireInt32   = 8
	wireUint64  = 9
	wireUint128 = 10
	wireArray   = 11
	wireBool    = 14
	wireFloat32 = 15
)

// encoder serializes record values into the data-section wire encoding.
// When strings is non-nil, repeated string payloads are written once and
// referenced by pointers afterwards, the way production writers dedupe.
type encoder struct {
	buf     []byte
	strings map[string]int
}

func newEncoder(usePointers bool) *encoder {
	e := &encoder{}
	if usePointers {
		e.strings = make(map[string]int)
	}
	return e
}

func (e *encoder) appendValue(v decode.Value) error {
	switch v.Kind {
	case decode.KindMap:
		m, _ := v.AsMap()
		e.appendCtrl(wireMap, len(m))
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e.appendString(k)
			if err := e.appendValue(m[k]); err != nil {
				return err
			}
		}
		return nil
	case decode.KindArray:
		xs, _ := v.AsArray()
		e.appendCtrl(wireArray, len(xs))
		for _, x := range xs {
			if err := e.appendValue(x); err != nil {
				return err
			}
		}
		return nil
	case decode.KindString:
		s, _ := v.AsString()
		e.appendString(s)
		return nil
	case decode.KindBytes:
		b, _ := v.AsBytes()
		e.appendCtrl(wireBytes, len(b))
		e.buf = append(e.buf, b...)
		return nil
	case decode.KindDouble:
		e.appendCtrl(wireFloat64, 8)
		e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v.Data.(float64)))
		return nil
	case decode.KindFloat:
		e.appendCtrl(wireFloat32, 4)
		e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(v.Data.(float32)))
		return nil
	case decode.KindUint16:
		e.appendUint(wireUint16, uint64(v.Data.(uint16)))
		return nil
	case decode.KindUint32:
		e.appendUint(wireUint32, uint64(v.Data.(uint32)))
		return nil
	case decode.KindUint64:
		e.appendUint(wireUint64, v.Data.(uint64))
		return nil
	case decode.KindUint128:
		b := v.Data.(*big.Int).Bytes()
		e.appendCtrl(wireUint128, len(b))
		e.buf = append(e.buf, b...)
		return nil
	case decode.KindInt32:
		n := v.Data.(int32)
		if n < 0 {
			// Negative values need the full zero-pad width to keep
			// their sign bits.
			e.appendCtrl(wireInt32, 4)
			e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(n))
		} else {
			e.appendUint(wireInt32, uint64(n))
		}
		return nil
	case decode.KindBool:
		size := 0
		if v.Data.(bool) {
			size = 1
		}
		e.appendCtrl(wireBool, size)
		return nil
	default:
		return fmt.Errorf("cannot encode value of kind %s", v.Kind)
	}
}

func (e *encoder) appendString(s string) {
	if e.strings != nil {
		if off, ok := e.strings[s]; ok {
			e.appendPointer(off)
			return
		}
		e.strings[s] = len(e.buf)
	}
	e.appendCtrl(wireString, len(s))
	e.buf = append(e.buf, s...)
}

// appendCtrl writes a control byte for code with the given size, followed
// by the extended type byte and extra size bytes where the encoding needs
// them.
func (e *encoder) appendCtrl(code, size int) {
	var first byte
	ext := -1
	if code < 8 {
		first = byte(code) << 5
	} else {
		ext = code - 7
	}
	var extra []byte
	switch {
	case size < 29:
		first |= byte(size)
	case size < 29+256:
		first |= 29
		extra = []byte{byte(size - 29)}
	case size < 285+65536:
		first |= 30
		n := size - 285
		extra = []byte{byte(n >> 8), byte(n)}
	default:
		first |= 31
		n := size - 65821
		extra = []byte{byte(n >> 16), byte(n >> 8), byte(n)}
	}
	e.buf = append(e.buf, first)
	if ext >= 0 {
		e.buf = append(e.buf, byte(ext))
	}
	e.buf = append(e.buf, extra...)
}

func (e *encoder) appendUint(code int, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	i := 0
	for i < 8 && tmp[i] == 0 {
		i++
	}
	b := tmp[i:]
	e.appendCtrl(code, len(b))
	e.buf = append(e.buf, b...)
}

// appendPointer writes the narrowest pointer encoding reaching target.
func (e *encoder) appendPointer(target int) {
	switch {
	case target < 2048:
		e.buf = append(e.buf, 0x20|byte(target>>8), byte(target))
	case target < 526336:
		n := target - 2048
		e.buf = append(e.buf, 0x20|0x08|byte(n>>16), byte(n>>8), byte(n))
	case target < 134744064:
		n := target - 526336
		e.buf = append(e.buf, 0x20|0x10|byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		e.buf = append(e.buf, 0x20|0x18,
			byte(target>>24), byte(target>>16), byte(target>>8), byte(target))
	}
}
