package database

import (
	"encoding/binary"
	"math"

	"github.com/agentic-research/mmdb/internal/decode"
)

// Wire type codes of the data section. Codes above 7 do not fit the three
// control bits and are written as an extended marker plus a second byte
// holding code-7.
type wireType uint8

const (
	typeExtended wireType = iota
	typePointer
	typeString
	typeFloat64
	typeBytes
	typeUint16
	typeUint32
	typeMap
	typeInt32
	typeUint64
	typeUint128
	typeArray
	typeContainer
	typeMarker
	typeBool
	typeFloat32
)

// maxPointerFollows bounds pointer chasing per entry so that a cyclic
// pointer graph in a corrupt file cannot walk forever.
const maxPointerFollows = 1 << 16

// Pointer target adjustment by pointer width, per the binary format.
var pointerValueOffset = [5]int{0, 0, 2048, 526336, 0}

// entryWalker produces the pre-order node sequence for one entry, reading
// the wire encoding from a section buffer and following pointers
// transparently so the decoder only ever sees concrete nodes. It implements
// decode.Source; wire-level failures park in Err and end the sequence.
type entryWalker struct {
	section []byte
	offset  int
	frames  []walkFrame
	follows int
	err     error
}

// walkFrame records where to resume after a pointer-reached subtree
// completes, and how many whole values that subtree still owes.
type walkFrame struct {
	resume    int
	remaining int
}

func newEntryWalker(section []byte, offset int) *entryWalker {
	return &entryWalker{section: section, offset: offset}
}

// Err reports the first wire-level error hit while producing nodes.
func (w *entryWalker) Err() error { return w.err }

func (w *entryWalker) Next() (decode.Node, bool) {
	if w.err != nil {
		return decode.Node{}, false
	}
	n, err := w.readNode()
	if err != nil {
		w.err = err
		return decode.Node{}, false
	}
	return n, true
}

func (w *entryWalker) readNode() (decode.Node, error) {
	for {
		ctrl, ok := w.byteAt(w.offset)
		if !ok {
			return decode.Node{}, invalidf("entry runs past the end of the data section at offset %d", w.offset)
		}
		w.offset++

		typ := wireType(ctrl >> 5)
		if typ == typeExtended {
			ext, ok := w.byteAt(w.offset)
			if !ok {
				return decode.Node{}, invalidf("extended type byte missing at offset %d", w.offset)
			}
			w.offset++
			t := int(ext) + 7
			if t > int(typeFloat32) {
				return decode.Node{}, invalidf("unknown type code %d in data section", t)
			}
			typ = wireType(t)
		}

		if typ == typePointer {
			if err := w.followPointer(ctrl); err != nil {
				return decode.Node{}, err
			}
			continue
		}

		size, err := w.readSize(ctrl)
		if err != nil {
			return decode.Node{}, err
		}
		n, err := w.buildNode(typ, size)
		if err != nil {
			return decode.Node{}, err
		}
		w.completeValue(n)
		return n, nil
	}
}

// followPointer decodes a pointer at the current offset and jumps to its
// target, remembering where the interrupted stream resumes.
func (w *entryWalker) followPointer(ctrl byte) error {
	w.follows++
	if w.follows > maxPointerFollows {
		return invalidf("pointer chain exceeds %d follows; the data section is likely cyclic", maxPointerFollows)
	}

	size := int(ctrl & 0x1f)
	width := ((size >> 3) & 0x3) + 1
	if w.offset+width > len(w.section) {
		return invalidf("pointer at offset %d is truncated", w.offset-1)
	}
	raw := w.section[w.offset : w.offset+width]

	var target int
	if width == 4 {
		target = int(binary.BigEndian.Uint32(raw))
	} else {
		v := size & 0x7
		for _, b := range raw {
			v = v<<8 | int(b)
		}
		target = v
	}
	target += pointerValueOffset[width]

	if target >= len(w.section) {
		return invalidf("pointer target %d is outside the data section", target)
	}
	w.frames = append(w.frames, walkFrame{resume: w.offset + width, remaining: 1})
	w.offset = target
	return nil
}

// readSize expands the five size bits of the control byte, consuming the
// extra length bytes the larger encodings use.
func (w *entryWalker) readSize(ctrl byte) (int, error) {
	size := int(ctrl & 0x1f)
	if size < 29 {
		return size, nil
	}
	extra := size - 28
	if w.offset+extra > len(w.section) {
		return 0, invalidf("size bytes missing at offset %d", w.offset)
	}
	raw := w.section[w.offset : w.offset+extra]
	w.offset += extra
	switch size {
	case 29:
		return 29 + int(raw[0]), nil
	case 30:
		return 285 + int(raw[0])<<8 + int(raw[1]), nil
	default:
		return 65821 + int(raw[0])<<16 + int(raw[1])<<8 + int(raw[2]), nil
	}
}

func (w *entryWalker) buildNode(typ wireType, size int) (decode.Node, error) {
	switch typ {
	case typeMap:
		return decode.MapNode(uint32(size)), nil
	case typeArray:
		return decode.ArrayNode(uint32(size)), nil
	case typeString:
		p, err := w.payload(size)
		if err != nil {
			return decode.Node{}, err
		}
		return decode.StringNode(p), nil
	case typeBytes:
		p, err := w.payload(size)
		if err != nil {
			return decode.Node{}, err
		}
		return decode.BytesNode(p), nil
	case typeFloat64:
		if size != 8 {
			return decode.Node{}, invalidf("float64 payload is %d bytes, must be 8", size)
		}
		p, err := w.payload(size)
		if err != nil {
			return decode.Node{}, err
		}
		return decode.DoubleNode(math.Float64frombits(binary.BigEndian.Uint64(p))), nil
	case typeFloat32:
		if size != 4 {
			return decode.Node{}, invalidf("float32 payload is %d bytes, must be 4", size)
		}
		p, err := w.payload(size)
		if err != nil {
			return decode.Node{}, err
		}
		return decode.FloatNode(math.Float32frombits(binary.BigEndian.Uint32(p))), nil
	case typeUint16:
		p, err := w.uintPayload(size, 2)
		if err != nil {
			return decode.Node{}, err
		}
		return decode.Uint16Node(uint16(beUint(p))), nil
	case typeUint32:
		p, err := w.uintPayload(size, 4)
		if err != nil {
			return decode.Node{}, err
		}
		return decode.Uint32Node(uint32(beUint(p))), nil
	case typeUint64:
		p, err := w.uintPayload(size, 8)
		if err != nil {
			return decode.Node{}, err
		}
		return decode.Uint64Node(beUint(p)), nil
	case typeUint128:
		p, err := w.uintPayload(size, 16)
		if err != nil {
			return decode.Node{}, err
		}
		be := make([]byte, 16)
		copy(be[16-len(p):], p)
		return decode.Uint128Node(be), nil
	case typeInt32:
		p, err := w.uintPayload(size, 4)
		if err != nil {
			return decode.Node{}, err
		}
		// Stored zero-padded, so short payloads are never sign-extended.
		return decode.Int32Node(int32(beUint(p))), nil
	case typeBool:
		if size > 1 {
			return decode.Node{}, invalidf("bool size is %d, must be 0 or 1", size)
		}
		return decode.BoolNode(size != 0), nil
	case typeContainer:
		return decode.Node{}, invalidf("data cache container inside entry data")
	case typeMarker:
		return decode.Node{}, invalidf("end marker inside entry data")
	default:
		return decode.Node{}, invalidf("unknown type code %d in data section", typ)
	}
}

// completeValue keeps the pointer-return bookkeeping: each whole value
// produced pays down the owing frame, containers add what their children
// owe, and exhausted frames resume the stream they interrupted.
func (w *entryWalker) completeValue(n decode.Node) {
	if len(w.frames) == 0 {
		return
	}
	top := &w.frames[len(w.frames)-1]
	switch n.Kind() {
	case decode.KindMap:
		top.remaining += 2*int(n.Size()) - 1
	case decode.KindArray:
		top.remaining += int(n.Size()) - 1
	default:
		top.remaining--
	}
	for len(w.frames) > 0 && w.frames[len(w.frames)-1].remaining == 0 {
		w.offset = w.frames[len(w.frames)-1].resume
		w.frames = w.frames[:len(w.frames)-1]
		if len(w.frames) > 0 {
			w.frames[len(w.frames)-1].remaining--
		}
	}
}

func (w *entryWalker) payload(size int) ([]byte, error) {
	if w.offset+size > len(w.section) {
		return nil, invalidf("payload of %d bytes at offset %d exceeds the data section", size, w.offset)
	}
	p := w.section[w.offset : w.offset+size]
	w.offset += size
	return p, nil
}

func (w *entryWalker) uintPayload(size, max int) ([]byte, error) {
	if size > max {
		return nil, invalidf("integer payload of %d bytes exceeds its %d byte width", size, max)
	}
	return w.payload(size)
}

func (w *entryWalker) byteAt(off int) (byte, bool) {
	if off < 0 || off >= len(w.section) {
		return 0, false
	}
	return w.section[off], true
}

func beUint(p []byte) uint64 {
	var v uint64
	for _, b := range p {
		v = v<<8 | uint64(b)
	}
	return v
}
