package render

import (
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/ohler55/ojg/pretty"

	"github.com/agentic-research/mmdb/internal/decode"
)

// Options control JSON rendering of a materialized value.
type Options struct {
	Pretty bool
	Path   string // JSONPath applied to the value before rendering
}

// Display converts a materialized value into the plain tree the JSON
// renderer understands. Bytes become base64 strings, 128-bit integers
// decimal strings, and float32 widens to float64; maps and arrays convert
// recursively.
func Display(v decode.Value) any {
	switch v.Kind {
	case decode.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = Display(e)
		}
		return out
	case decode.KindArray:
		xs, _ := v.AsArray()
		out := make([]any, len(xs))
		for i, e := range xs {
			out[i] = Display(e)
		}
		return out
	case decode.KindString:
		s, _ := v.AsString()
		return s
	case decode.KindBytes:
		b, _ := v.AsBytes()
		return base64.StdEncoding.EncodeToString(b)
	case decode.KindDouble:
		return v.Data.(float64)
	case decode.KindFloat:
		return float64(v.Data.(float32))
	case decode.KindUint16:
		return int64(v.Data.(uint16))
	case decode.KindUint32:
		return int64(v.Data.(uint32))
	case decode.KindUint64:
		return v.Data.(uint64)
	case decode.KindUint128:
		return v.Data.(*big.Int).String()
	case decode.KindInt32:
		return int64(v.Data.(int32))
	case decode.KindBool:
		return v.Data.(bool)
	default:
		return nil
	}
}

// JSON renders v per opts. With a Path, a single match renders bare, several
// render as an array and none as null, the way jq users expect.
func JSON(v decode.Value, opts Options) (string, error) {
	root := Display(v)
	if opts.Path != "" {
		matches, err := Extract(root, opts.Path)
		if err != nil {
			return "", err
		}
		switch len(matches) {
		case 0:
			root = nil
		case 1:
			root = matches[0]
		default:
			root = matches
		}
	}
	return Any(root, opts.Pretty), nil
}

// Any renders an already-plain tree as JSON with deterministic key order.
func Any(root any, prettify bool) string {
	o := ojg.Options{Sort: true}
	if prettify {
		return pretty.JSON(root, &o)
	}
	return oj.JSON(root, &o)
}

// Extract applies a JSONPath expression to a display tree.
func Extract(root any, path string) ([]any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", path, err)
	}
	return x.Get(root), nil
}
