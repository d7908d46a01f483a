package decode

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize_Scalars(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want Value
	}{
		{"string", StringNode([]byte("en")), String("en")},
		{"empty string", StringNode(nil), String("")},
		{"bytes", BytesNode([]byte{0xde, 0xad, 0xbe, 0xef}), Bytes([]byte{0xde, 0xad, 0xbe, 0xef})},
		{"double", DoubleNode(42.123456), Double(42.123456)},
		{"float", FloatNode(1.1), Float(1.1)},
		{"uint16", Uint16Node(100), Uint16(100)},
		{"uint32", Uint32Node(268435456), Uint32(268435456)},
		{"uint64", Uint64Node(1152921504606846976), Uint64(1152921504606846976)},
		{"int32", Int32Node(-268435456), Int32(-268435456)},
		{"bool true", BoolNode(true), Bool(true)},
		{"bool false", BoolNode(false), Bool(false)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Materialize(NewCursor(NewSliceSource(tc.node)))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// cityRecordNodes builds a record shaped like a typical geolocation entry:
// nested maps, an array, unicode strings and doubles.
func cityRecordNodes() []Node {
	return []Node{
		MapNode(3),
		StringNode([]byte("city")),
		MapNode(1),
		StringNode([]byte("names")),
		MapNode(2),
		StringNode([]byte("en")), StringNode([]byte("Boxford")),
		StringNode([]byte("ja")), StringNode([]byte("ボックスフォード")),
		StringNode([]byte("location")),
		MapNode(2),
		StringNode([]byte("latitude")), DoubleNode(68.25),
		StringNode([]byte("longitude")), DoubleNode(-163.25),
		StringNode([]byte("subdivisions")),
		ArrayNode(2),
		StringNode([]byte("MA")),
		StringNode([]byte("ESSEX")),
	}
}

func TestMaterialize_NestedRecord(t *testing.T) {
	got, err := Materialize(NewCursor(NewSliceSource(cityRecordNodes()...)))
	require.NoError(t, err)

	want := Mapping(map[string]Value{
		"city": Mapping(map[string]Value{
			"names": Mapping(map[string]Value{
				"en": String("Boxford"),
				"ja": String("ボックスフォード"),
			}),
		}),
		"location": Mapping(map[string]Value{
			"latitude":  Double(68.25),
			"longitude": Double(-163.25),
		}),
		"subdivisions": Sequence([]Value{String("MA"), String("ESSEX")}),
	})
	assert.Equal(t, want, got)
}

func TestMaterialize_DeepNesting(t *testing.T) {
	const depth = 16
	nodes := make([]Node, 0, 2*depth+1)
	for i := 0; i < depth; i++ {
		nodes = append(nodes, MapNode(1), StringNode([]byte("k")))
	}
	nodes = append(nodes, Uint32Node(7))

	want := Uint32(7)
	for i := 0; i < depth; i++ {
		want = Mapping(map[string]Value{"k": want})
	}

	got, err := Materialize(NewCursor(NewSliceSource(nodes...)))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestMaterialize_ArrayOrderPreserved(t *testing.T) {
	got, err := Materialize(NewCursor(NewSliceSource(
		ArrayNode(3),
		StringNode([]byte("A")),
		StringNode([]byte("B")),
		StringNode([]byte("C")),
	)))
	require.NoError(t, err)
	require.Equal(t, Sequence([]Value{String("A"), String("B"), String("C")}), got)
}

func TestMaterialize_DuplicateMapKeyLastWins(t *testing.T) {
	got, err := Materialize(NewCursor(NewSliceSource(
		MapNode(2),
		StringNode([]byte("k")), Uint16Node(1),
		StringNode([]byte("k")), Uint16Node(2),
	)))
	require.NoError(t, err)
	require.Equal(t, Mapping(map[string]Value{"k": Uint16(2)}), got)
}

func TestMaterialize_Uint128(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want string
	}{
		{
			"high one low two",
			Uint128Node([]byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2}),
			"18446744073709551618",
		},
		{"words shape", Uint128WordsNode(1, 2), "18446744073709551618"},
		{"max", Uint128WordsNode(math.MaxUint64, math.MaxUint64), "340282366920938463463374607431768211455"},
		{"zero", Uint128Node(make([]byte, 16)), "0"},
		{"short payload", Uint128Node([]byte{0x01, 0x02}), "258"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Materialize(NewCursor(NewSliceSource(tc.node)))
			require.NoError(t, err)
			require.Equal(t, KindUint128, got.Kind)
			assert.Equal(t, tc.want, got.Data.(*big.Int).String())
		})
	}
}

func TestMaterialize_TruncatedMap(t *testing.T) {
	got, err := Materialize(NewCursor(NewSliceSource(
		MapNode(2),
		StringNode([]byte("a")), Uint16Node(1),
	)))
	require.ErrorIs(t, err, ErrTruncated)
	assert.Contains(t, err.Error(), "node 3:")
	assert.Equal(t, Value{}, got)
}

func TestMaterialize_TruncatedMapValueSlot(t *testing.T) {
	_, err := Materialize(NewCursor(NewSliceSource(
		MapNode(1),
		StringNode([]byte("a")),
	)))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestMaterialize_TruncatedArray(t *testing.T) {
	_, err := Materialize(NewCursor(NewSliceSource(ArrayNode(3), Uint16Node(1))))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestMaterialize_EmptySource(t *testing.T) {
	_, err := Materialize(NewCursor(NewSliceSource()))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestMaterialize_FloatWidthsStayDistinct(t *testing.T) {
	got, err := Materialize(NewCursor(NewSliceSource(
		ArrayNode(2), FloatNode(1.5), DoubleNode(1.5),
	)))
	require.NoError(t, err)

	xs, ok := got.AsArray()
	require.True(t, ok)
	require.Len(t, xs, 2)
	assert.Equal(t, KindFloat, xs[0].Kind)
	assert.Equal(t, KindDouble, xs[1].Kind)
	assert.IsType(t, float32(0), xs[0].Data)
	assert.IsType(t, float64(0), xs[1].Data)
	assert.EqualValues(t, 1.5, xs[0].Data)
	assert.EqualValues(t, 1.5, xs[1].Data)
}

func TestMaterialize_EmptyContainers(t *testing.T) {
	cur := NewCursor(NewSliceSource(MapNode(0), Uint16Node(9)))
	got, err := Materialize(cur)
	require.NoError(t, err)
	require.Equal(t, Mapping(map[string]Value{}), got)

	// The empty map consumed nothing past its own node.
	next, err := Materialize(cur)
	require.NoError(t, err)
	require.Equal(t, Uint16(9), next)

	cur = NewCursor(NewSliceSource(ArrayNode(0), BoolNode(true)))
	got, err = Materialize(cur)
	require.NoError(t, err)
	require.Equal(t, Sequence([]Value{}), got)

	next, err = Materialize(cur)
	require.NoError(t, err)
	require.Equal(t, Bool(true), next)
}

func TestMaterialize_MalformedKey(t *testing.T) {
	_, err := Materialize(NewCursor(NewSliceSource(
		MapNode(1),
		Uint32Node(1), Uint32Node(2),
	)))
	require.ErrorIs(t, err, ErrMalformedKey)
}

func TestMaterialize_UnsupportedKind(t *testing.T) {
	_, err := Materialize(NewCursor(NewSliceSource(Node{kind: Kind(99)})))
	var uk UnsupportedKindError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, Kind(99), uk.Kind)
	assert.Contains(t, err.Error(), "kind(99)")
}

func TestMaterialize_NestingDepthGuard(t *testing.T) {
	deep := func(levels int) *Cursor {
		nodes := make([]Node, 0, levels+1)
		for i := 0; i < levels; i++ {
			nodes = append(nodes, ArrayNode(1))
		}
		nodes = append(nodes, Uint16Node(1))
		return NewCursor(NewSliceSource(nodes...))
	}

	_, err := Materialize(deep(MaxNestingDepth))
	require.NoError(t, err)

	_, err = Materialize(deep(MaxNestingDepth + 1))
	require.ErrorIs(t, err, ErrNestingTooDeep)
}

func TestMaterialize_SequentialTopLevelValues(t *testing.T) {
	cur := NewCursor(NewSliceSource(
		Uint16Node(1),
		StringNode([]byte("two")),
		BoolNode(true),
	))

	for _, want := range []Value{Uint16(1), String("two"), Bool(true)} {
		got, err := Materialize(cur)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := Materialize(cur)
	require.ErrorIs(t, err, ErrTruncated)
}

func BenchmarkMaterialize_CityRecord(b *testing.B) {
	nodes := cityRecordNodes()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Materialize(NewCursor(NewSliceSource(nodes...))); err != nil {
			b.Fatal(err)
		}
	}
}
