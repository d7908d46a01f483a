package mmdbtest

import (
	"github.com/agentic-research/mmdb/internal/decode"
)

// MustEncode serializes v into the data-section wire encoding without
// pointer dedup. It panics on values the encoding cannot express.
func MustEncode(v decode.Value) []byte {
	e := newEncoder(false)
	if err := e.appendValue(v); err != nil {
		panic(err)
	}
	return e.buf
}

// RawImage assembles a database file from raw sections, for tests that
// need trees or metadata Build would refuse to produce.
func RawImage(tree, data []byte, meta decode.Value) []byte {
	buf := append([]byte(nil), tree...)
	buf = append(buf, make([]byte, 16)...)
	buf = append(buf, data...)
	buf = append(buf, metadataMarker...)
	return append(buf, MustEncode(meta)...)
}
