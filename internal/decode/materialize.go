package decode

import (
	"fmt"
	"math/big"
)

// MaxNestingDepth bounds container recursion. Well-formed databases stay far
// below it; hitting the bound means the sequence is corrupt or hostile.
const MaxNestingDepth = 512

// sizeHintCap bounds preallocation from declared container sizes, which are
// untrusted until the sequence proves them. An oversized declaration fails
// on truncation, not on allocation.
const sizeHintCap = 1024

// Materialize consumes the subtree rooted at the cursor's current node and
// returns it as a fully-owned Value. On success the cursor rests on the
// first node after the subtree, so successive calls decode successive
// siblings. On failure no partial value is returned and the cursor position
// is unspecified.
func Materialize(c *Cursor) (Value, error) {
	return materialize(c, 0)
}

func materialize(c *Cursor, depth int) (Value, error) {
	if !c.ok {
		return Value{}, fmt.Errorf("node %d: %w", c.idx+1, ErrTruncated)
	}
	n := c.cur
	switch n.kind {
	case KindMap:
		if depth >= MaxNestingDepth {
			return Value{}, fmt.Errorf("node %d: %w", c.idx, ErrNestingTooDeep)
		}
		return materializeMap(c, n.size, depth+1)
	case KindArray:
		if depth >= MaxNestingDepth {
			return Value{}, fmt.Errorf("node %d: %w", c.idx, ErrNestingTooDeep)
		}
		return materializeArray(c, n.size, depth+1)
	case KindString:
		c.advance()
		return String(string(n.raw)), nil
	case KindBytes:
		b := make([]byte, len(n.raw))
		copy(b, n.raw)
		c.advance()
		return Bytes(b), nil
	case KindDouble:
		c.advance()
		return Double(n.f64), nil
	case KindFloat:
		c.advance()
		return Float(n.f32), nil
	case KindUint16:
		c.advance()
		return Uint16(uint16(n.u64)), nil
	case KindUint32:
		c.advance()
		return Uint32(uint32(n.u64)), nil
	case KindUint64:
		c.advance()
		return Uint64(n.u64), nil
	case KindUint128:
		// SetBytes reads big-endian, so high*2^64 + low lands exactly,
		// never through a 64-bit or floating intermediate.
		v := Uint128(new(big.Int).SetBytes(n.raw))
		c.advance()
		return v, nil
	case KindInt32:
		c.advance()
		return Int32(n.i32), nil
	case KindBool:
		c.advance()
		return Bool(n.flag), nil
	default:
		return Value{}, fmt.Errorf("node %d: %w", c.idx, UnsupportedKindError{Kind: n.kind})
	}
}

func materializeMap(c *Cursor, pairs uint32, depth int) (Value, error) {
	hint := pairs
	if hint > sizeHintCap {
		hint = sizeHintCap
	}
	m := make(map[string]Value, hint)
	c.advance()
	for i := uint32(0); i < pairs; i++ {
		if !c.ok {
			return Value{}, fmt.Errorf("node %d: %w", c.idx+1, ErrTruncated)
		}
		if c.cur.kind != KindString {
			return Value{}, fmt.Errorf("node %d: %w", c.idx, ErrMalformedKey)
		}
		key := string(c.cur.raw)
		c.advance()
		v, err := materialize(c, depth)
		if err != nil {
			return Value{}, err
		}
		m[key] = v // duplicate keys: last write wins
	}
	return Mapping(m), nil
}

func materializeArray(c *Cursor, elems uint32, depth int) (Value, error) {
	hint := elems
	if hint > sizeHintCap {
		hint = sizeHintCap
	}
	out := make([]Value, 0, hint)
	c.advance()
	for i := uint32(0); i < elems; i++ {
		v, err := materialize(c, depth)
		if err != nil {
			return Value{}, err
		}
		out = append(out, v)
	}
	return Sequence(out), nil
}
