package decode

import "fmt"

// Kind identifies the type of a node in the pre-order sequence and of the
// Value it materializes into. The zero value is KindInvalid.
type Kind uint8

const (
	KindInvalid Kind = iota // never produced by a well-formed source
	KindMap                 // map[string]Value
	KindArray               // []Value
	KindString              // string (UTF-8)
	KindBytes               // []byte
	KindDouble              // float64
	KindFloat               // float32
	KindUint16              // uint16
	KindUint32              // uint32
	KindUint64              // uint64
	KindUint128             // *big.Int
	KindInt32               // int32
	KindBool                // bool
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDouble:
		return "double"
	case KindFloat:
		return "float"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindUint128:
		return "uint128"
	case KindInt32:
		return "int32"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}
