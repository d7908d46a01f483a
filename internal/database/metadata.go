package database

import (
	"bytes"

	"github.com/agentic-research/mmdb/internal/decode"
)

// metadataMarker separates the data section from the metadata map. The
// binary format guarantees it never occurs inside the metadata itself, so
// the last occurrence near the end of the file is the real one.
var metadataMarker = []byte("\xab\xcd\xefMaxMind.com")

const (
	// metadataScanWindow bounds the marker scan to the final 128 KiB of
	// the file, the maximum metadata size the format allows.
	metadataScanWindow = 128 << 10

	// dataSeparatorSize is the run of null bytes between the search tree
	// and the data section.
	dataSeparatorSize = 16
)

// Metadata carries the decoded fields of the database's metadata map.
type Metadata struct {
	BinaryFormatMajorVersion uint
	BinaryFormatMinorVersion uint
	BuildEpoch               uint64
	DatabaseType             string
	Description              map[string]string
	IPVersion                uint
	Languages                []string
	NodeCount                uint
	RecordSize               uint

	raw decode.Value
}

// Raw returns the full metadata map as decoded, including any fields beyond
// the standard nine.
func (m *Metadata) Raw() decode.Value { return m.raw }

// findMetadataStart returns the offset just past the metadata marker, or an
// error when the buffer holds no marker within the scan window.
func findMetadataStart(buf []byte) (int, error) {
	window := buf
	base := 0
	if len(buf) > metadataScanWindow {
		base = len(buf) - metadataScanWindow
		window = buf[base:]
	}
	idx := bytes.LastIndex(window, metadataMarker)
	if idx < 0 {
		return 0, invalidf("no metadata section found; is this a valid MaxMind DB file?")
	}
	return base + idx + len(metadataMarker), nil
}

func parseMetadata(v decode.Value) (*Metadata, error) {
	fields, ok := v.AsMap()
	if !ok {
		return nil, invalidf("metadata is not a map")
	}
	md := &Metadata{raw: v}

	var err error
	if md.BinaryFormatMajorVersion, err = metaUint(fields, "binary_format_major_version"); err != nil {
		return nil, err
	}
	if md.BinaryFormatMinorVersion, err = metaUint(fields, "binary_format_minor_version"); err != nil {
		return nil, err
	}
	if md.BuildEpoch, err = metaUint64(fields, "build_epoch"); err != nil {
		return nil, err
	}
	if md.DatabaseType, err = metaString(fields, "database_type"); err != nil {
		return nil, err
	}
	if md.Description, err = metaStringMap(fields, "description"); err != nil {
		return nil, err
	}
	if md.IPVersion, err = metaUint(fields, "ip_version"); err != nil {
		return nil, err
	}
	if md.Languages, err = metaStringArray(fields, "languages"); err != nil {
		return nil, err
	}
	if md.NodeCount, err = metaUint(fields, "node_count"); err != nil {
		return nil, err
	}
	if md.RecordSize, err = metaUint(fields, "record_size"); err != nil {
		return nil, err
	}

	if md.BinaryFormatMajorVersion != 2 {
		return nil, invalidf("unsupported binary format major version %d", md.BinaryFormatMajorVersion)
	}
	switch md.RecordSize {
	case 24, 28, 32:
	default:
		return nil, invalidf("unsupported record size %d", md.RecordSize)
	}
	if md.IPVersion != 4 && md.IPVersion != 6 {
		return nil, invalidf("unsupported ip_version %d", md.IPVersion)
	}
	return md, nil
}

func metaUint(m map[string]decode.Value, key string) (uint, error) {
	u, err := metaUint64(m, key)
	return uint(u), err
}

func metaUint64(m map[string]decode.Value, key string) (uint64, error) {
	v, ok := m[key]
	if !ok {
		return 0, invalidf("metadata has no %s field", key)
	}
	u, ok := v.AsUint()
	if !ok {
		return 0, invalidf("metadata field %s is not an unsigned integer", key)
	}
	return u, nil
}

func metaString(m map[string]decode.Value, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", invalidf("metadata has no %s field", key)
	}
	s, ok := v.AsString()
	if !ok {
		return "", invalidf("metadata field %s is not a string", key)
	}
	return s, nil
}

func metaStringMap(m map[string]decode.Value, key string) (map[string]string, error) {
	v, ok := m[key]
	if !ok {
		return nil, invalidf("metadata has no %s field", key)
	}
	entries, ok := v.AsMap()
	if !ok {
		return nil, invalidf("metadata field %s is not a map", key)
	}
	out := make(map[string]string, len(entries))
	for k, e := range entries {
		s, ok := e.AsString()
		if !ok {
			return nil, invalidf("metadata field %s has a non-string entry for %q", key, k)
		}
		out[k] = s
	}
	return out, nil
}

func metaStringArray(m map[string]decode.Value, key string) ([]string, error) {
	v, ok := m[key]
	if !ok {
		return nil, invalidf("metadata has no %s field", key)
	}
	xs, ok := v.AsArray()
	if !ok {
		return nil, invalidf("metadata field %s is not an array", key)
	}
	out := make([]string, len(xs))
	for i, e := range xs {
		s, ok := e.AsString()
		if !ok {
			return nil, invalidf("metadata field %s has a non-string element", key)
		}
		out[i] = s
	}
	return out, nil
}
