package render

import (
	"github.com/agentic-research/mmdb/internal/database"
)

// Metadata flattens the typed metadata fields into a display tree with the
// field names the binary format uses.
func Metadata(md *database.Metadata) map[string]any {
	langs := make([]any, len(md.Languages))
	for i, l := range md.Languages {
		langs[i] = l
	}
	desc := make(map[string]any, len(md.Description))
	for k, v := range md.Description {
		desc[k] = v
	}
	return map[string]any{
		"binary_format_major_version": int64(md.BinaryFormatMajorVersion),
		"binary_format_minor_version": int64(md.BinaryFormatMinorVersion),
		"build_epoch":                 md.BuildEpoch,
		"database_type":               md.DatabaseType,
		"description":                 desc,
		"ip_version":                  int64(md.IPVersion),
		"languages":                   langs,
		"node_count":                  int64(md.NodeCount),
		"record_size":                 int64(md.RecordSize),
	}
}
