package database

import (
	"net/netip"
	"testing"

	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/agentic-research/mmdb/internal/mmdbtest"
)

func benchReader(b *testing.B) *Reader {
	b.Helper()
	img, err := mmdbtest.Build(mmdbtest.Options{AliasIPv4: true}, testNetworks())
	if err != nil {
		b.Fatal(err)
	}
	r, err := FromBytes(img.Bytes)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = r.Close() })
	return r
}

func BenchmarkLookup(b *testing.B) {
	r := benchReader(b)
	addr := netip.MustParseAddr("8.8.8.8")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = r.Lookup(addr)
	}
}

func BenchmarkLookup_Miss(b *testing.B) {
	r := benchReader(b)
	addr := netip.MustParseAddr("9.9.9.9")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = r.Lookup(addr)
	}
}

func BenchmarkLookup_Parallel(b *testing.B) {
	// Lookups share the immutable mapped buffer, so they should scale
	// across goroutines without coordination.
	r := benchReader(b)
	addr := netip.MustParseAddr("1.0.0.42")

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = r.Lookup(addr)
		}
	})
}

func BenchmarkNetworks(b *testing.B) {
	r := benchReader(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := r.Networks(NetworksOptions{}, func(netip.Prefix, decode.Value) error {
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
