package decode

import "encoding/binary"

// Node is one element of a pre-order node sequence. For maps Size is the
// declared key/value pair count and for arrays the element count; for
// strings and byte strings it is the payload length. Scalar kinds ignore it.
//
// String, Bytes and Uint128 payloads may alias buffers owned by the source;
// Materialize copies them before returning.
type Node struct {
	kind Kind
	size uint32

	raw  []byte  // String, Bytes payload; Uint128 big-endian bytes
	u64  uint64  // Uint16, Uint32, Uint64 widened
	i32  int32
	f64  float64
	f32  float32
	flag bool
}

// Kind returns the node's type tag.
func (n Node) Kind() Kind { return n.kind }

// Size returns the declared pair count, element count or payload length.
func (n Node) Size() uint32 { return n.size }

// MapNode heads a map subtree of pairs key/value pairs.
func MapNode(pairs uint32) Node { return Node{kind: KindMap, size: pairs} }

// ArrayNode heads an array subtree of elems elements.
func ArrayNode(elems uint32) Node { return Node{kind: KindArray, size: elems} }

// StringNode carries UTF-8 payload bytes. The slice is not copied.
func StringNode(payload []byte) Node {
	return Node{kind: KindString, size: uint32(len(payload)), raw: payload}
}

// BytesNode carries raw payload bytes. The slice is not copied.
func BytesNode(payload []byte) Node {
	return Node{kind: KindBytes, size: uint32(len(payload)), raw: payload}
}

func DoubleNode(v float64) Node { return Node{kind: KindDouble, f64: v} }
func FloatNode(v float32) Node  { return Node{kind: KindFloat, f32: v} }
func Uint16Node(v uint16) Node  { return Node{kind: KindUint16, u64: uint64(v)} }
func Uint32Node(v uint32) Node  { return Node{kind: KindUint32, u64: uint64(v)} }
func Uint64Node(v uint64) Node  { return Node{kind: KindUint64, u64: v} }
func Int32Node(v int32) Node    { return Node{kind: KindInt32, i32: v} }
func BoolNode(v bool) Node      { return Node{kind: KindBool, flag: v} }

// Uint128Node carries the canonical wide-integer payload: big-endian bytes,
// sixteen for a full-width value. Sources holding shorter payloads may pass
// them as-is; the numeric value is unchanged by left padding.
func Uint128Node(be []byte) Node {
	return Node{kind: KindUint128, size: uint32(len(be)), raw: be}
}

// Uint128WordsNode adapts the split-word wide-integer shape, where the value
// is high*2^64 + low, into the canonical big-endian byte form.
func Uint128WordsNode(high, low uint64) Node {
	be := make([]byte, 16)
	binary.BigEndian.PutUint64(be[:8], high)
	binary.BigEndian.PutUint64(be[8:], low)
	return Uint128Node(be)
}
