// Package export dumps every routed network of a database into portable
// formats: a SQLite table, a JSONL stream, or a length-prefixed CBOR
// stream.
package export

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"

	"github.com/fxamacker/cbor/v2"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/agentic-research/mmdb/internal/render"
)

// Format selects an export encoding.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatJSONL  Format = "jsonl"
	FormatCBOR   Format = "cbor"
)

// ParseFormat validates a format name from a flag or config value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSQLite, FormatJSONL, FormatCBOR:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown export format %q; use sqlite, jsonl or cbor", s)
}

// JSONL writes one {"network": ..., "record": ...} object per line. It
// returns the number of networks written.
func JSONL(r *database.Reader, w io.Writer) (int, error) {
	count := 0
	err := r.Networks(database.NetworksOptions{}, func(p netip.Prefix, v decode.Value) error {
		line := render.Any(map[string]any{
			"network": p.String(),
			"record":  render.Display(v),
		}, false)
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		count++
		return nil
	})
	return count, err
}

// cborRecord is one element of the CBOR stream.
type cborRecord struct {
	Network string `cbor:"network"`
	Record  any    `cbor:"record"`
}

// CBOR writes each network as a length-prefixed CBOR map: a uvarint byte
// count followed by the encoded record. Unlike the JSON formats, byte
// strings and 128-bit integers keep their native CBOR encodings.
func CBOR(r *database.Reader, w io.Writer) (int, error) {
	count := 0
	var prefix [binary.MaxVarintLen64]byte
	err := r.Networks(database.NetworksOptions{}, func(p netip.Prefix, v decode.Value) error {
		body, err := cbor.Marshal(cborRecord{Network: p.String(), Record: v.Interface()})
		if err != nil {
			return fmt.Errorf("encode %s: %w", p, err)
		}
		n := binary.PutUvarint(prefix[:], uint64(len(body)))
		if _, err := w.Write(prefix[:n]); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		count++
		return nil
	})
	return count, err
}
