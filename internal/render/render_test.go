package render

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mmdb/internal/decode"
)

func sampleRecord() decode.Value {
	return decode.Mapping(map[string]decode.Value{
		"name":    decode.String("test"),
		"blob":    decode.Bytes([]byte{0x00, 0x01, 0x02}),
		"ratio":   decode.Float(0.25),
		"score":   decode.Double(1.5),
		"port":    decode.Uint16(8080),
		"count":   decode.Uint32(70000),
		"total":   decode.Uint64(1 << 40),
		"big":     decode.Uint128(new(big.Int).Lsh(big.NewInt(1), 64)),
		"delta":   decode.Int32(-12),
		"enabled": decode.Bool(true),
		"tags":    decode.Sequence([]decode.Value{decode.String("a"), decode.String("b")}),
	})
}

func TestDisplay(t *testing.T) {
	got := Display(sampleRecord())
	m, ok := got.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "test", m["name"])
	assert.Equal(t, "AAEC", m["blob"], "bytes render as base64")
	assert.Equal(t, float64(0.25), m["ratio"])
	assert.Equal(t, float64(1.5), m["score"])
	assert.Equal(t, int64(8080), m["port"])
	assert.Equal(t, int64(70000), m["count"])
	assert.Equal(t, uint64(1<<40), m["total"])
	assert.Equal(t, "18446744073709551616", m["big"], "128-bit values render as decimal strings")
	assert.Equal(t, int64(-12), m["delta"])
	assert.Equal(t, true, m["enabled"])
	assert.Equal(t, []any{"a", "b"}, m["tags"])
}

func TestJSON_SortedKeys(t *testing.T) {
	v := decode.Mapping(map[string]decode.Value{
		"b": decode.Uint16(2),
		"a": decode.Uint16(1),
		"c": decode.Uint16(3),
	})
	out, err := JSON(v, Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, out)
}

func TestJSON_Path(t *testing.T) {
	v := decode.Mapping(map[string]decode.Value{
		"country": decode.Mapping(map[string]decode.Value{
			"iso_code": decode.String("GB"),
			"names": decode.Mapping(map[string]decode.Value{
				"en": decode.String("United Kingdom"),
			}),
		}),
		"subdivisions": decode.Sequence([]decode.Value{
			decode.Mapping(map[string]decode.Value{"iso_code": decode.String("ENG")}),
			decode.Mapping(map[string]decode.Value{"iso_code": decode.String("WLS")}),
		}),
	})

	out, err := JSON(v, Options{Path: "$.country.iso_code"})
	require.NoError(t, err)
	assert.Equal(t, `"GB"`, out, "a single match renders bare")

	out, err = JSON(v, Options{Path: "$.subdivisions[*].iso_code"})
	require.NoError(t, err)
	assert.Equal(t, `["ENG","WLS"]`, out, "several matches render as an array")

	out, err = JSON(v, Options{Path: "$.city.names.en"})
	require.NoError(t, err)
	assert.Equal(t, "null", out, "no match renders null")
}

func TestJSON_InvalidPath(t *testing.T) {
	_, err := JSON(decode.String("x"), Options{Path: "$..[["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jsonpath")
}

func TestJSON_Pretty(t *testing.T) {
	v := decode.Mapping(map[string]decode.Value{"k": decode.String("v")})
	out, err := JSON(v, Options{Pretty: true})
	require.NoError(t, err)
	assert.Contains(t, out, "\n")
	assert.Contains(t, out, `"k": "v"`)
}
