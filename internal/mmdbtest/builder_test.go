package mmdbtest

import (
	"bytes"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentic-research/mmdb/internal/decode"
)

func sampleNetworks() []Network {
	return []Network{
		{
			Prefix: netip.MustParsePrefix("1.0.0.0/24"),
			Record: decode.Mapping(map[string]decode.Value{
				"name": decode.String("alpha"),
			}),
		},
		{
			Prefix: netip.MustParsePrefix("2001:db8::/32"),
			Record: decode.Mapping(map[string]decode.Value{
				"name": decode.String("beta"),
			}),
		},
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(Options{}, sampleNetworks())
	require.NoError(t, err)
	b, err := Build(Options{}, sampleNetworks())
	require.NoError(t, err)
	require.Equal(t, a.Bytes, b.Bytes)
}

func TestBuild_SectionLayout(t *testing.T) {
	img, err := Build(Options{}, sampleNetworks())
	require.NoError(t, err)

	require.Equal(t, img.NodeCount*7, img.TreeSize, "28 bit records take 7 bytes per node")
	require.Equal(t, img.TreeSize+16, img.DataStart)
	require.True(t, bytes.Equal(img.Bytes[img.TreeSize:img.DataStart], make([]byte, 16)),
		"separator must be null bytes")
	require.True(t, bytes.HasPrefix(img.Bytes[img.MetaStart:], metadataMarker))
}

func TestBuild_StringsDeduped(t *testing.T) {
	nets := []Network{
		{Prefix: netip.MustParsePrefix("1.0.0.0/24"), Record: decode.String("shared payload")},
		{Prefix: netip.MustParsePrefix("2.0.0.0/24"), Record: decode.String("shared payload")},
	}
	with, err := Build(Options{}, nets)
	require.NoError(t, err)
	without, err := Build(Options{DisablePointers: true}, nets)
	require.NoError(t, err)

	// Identical records collapse to one data entry either way; the node
	// counts match, so any size difference comes from the sections.
	require.Equal(t, with.NodeCount, without.NodeCount)
	require.Equal(t, len(with.Bytes), len(without.Bytes))

	mixed := append(nets,
		Network{Prefix: netip.MustParsePrefix("3.0.0.0/24"), Record: decode.Sequence([]decode.Value{
			decode.String("shared payload"),
			decode.String("other"),
		})})
	with, err = Build(Options{}, mixed)
	require.NoError(t, err)
	without, err = Build(Options{DisablePointers: true}, mixed)
	require.NoError(t, err)
	require.Less(t, len(with.Bytes), len(without.Bytes),
		"pointer dedup should shrink the data section")
}

func TestBuild_OverlapRejected(t *testing.T) {
	_, err := Build(Options{}, []Network{
		{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Record: decode.String("outer")},
		{Prefix: netip.MustParsePrefix("10.1.0.0/16"), Record: decode.String("inner")},
	})
	require.ErrorContains(t, err, "overlaps")

	_, err = Build(Options{}, []Network{
		{Prefix: netip.MustParsePrefix("10.1.0.0/16"), Record: decode.String("inner")},
		{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Record: decode.String("outer")},
	})
	require.ErrorContains(t, err, "overlaps")
}

func TestBuild_OptionValidation(t *testing.T) {
	_, err := Build(Options{RecordSize: 26}, nil)
	require.ErrorContains(t, err, "record size 26")

	_, err = Build(Options{IPVersion: 5}, nil)
	require.ErrorContains(t, err, "ip version 5")

	_, err = Build(Options{IPVersion: 4}, []Network{
		{Prefix: netip.MustParsePrefix("2001:db8::/32"), Record: decode.String("x")},
	})
	require.ErrorContains(t, err, "IPv4 tree")
}

func TestBuild_AliasRequiresIPv4Subtree(t *testing.T) {
	_, err := Build(Options{AliasIPv4: true}, []Network{
		{Prefix: netip.MustParsePrefix("2001:db8::/32"), Record: decode.String("x")},
	})
	require.ErrorContains(t, err, "no IPv4 subtree")

	img, err := Build(Options{AliasIPv4: true}, sampleNetworks())
	require.NoError(t, err)
	require.NotZero(t, img.NodeCount)
}
