// Command fuzz-gen seeds the corpus for the database fuzz targets. It
// builds randomized synthetic images, checks each one reads back, and
// writes the image plus a few damaged variants in the seed corpus
// encoding go test understands.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"math/rand"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/agentic-research/mmdb/internal/mmdbtest"
)

func main() {
	outDir := flag.String("out", "internal/database/testdata/fuzz/FuzzFromBytes", "Output directory for corpus entries")
	count := flag.Int("n", 16, "Number of base images to generate")
	mutations := flag.Int("mutations", 3, "Damaged variants per base image")
	seed := flag.Int64("seed", 0, "RNG seed (0 picks one from the clock)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatal(err)
	}
	fmt.Printf("Seeding %s (seed %d)\n", *outDir, *seed)

	written := 0
	for i := 0; i < *count; i++ {
		img := buildImage(rng)
		if err := checkImage(img); err != nil {
			fatal(fmt.Errorf("generated image does not read back: %w", err))
		}
		name := fmt.Sprintf("seed-%03d", i)
		writeEntry(filepath.Join(*outDir, name), img.Bytes)
		fmt.Printf("  %s: %d bytes\n", name, len(img.Bytes))
		written++

		for m := 0; m < *mutations; m++ {
			data, desc := mutate(img.Bytes, rng)
			writeEntry(filepath.Join(*outDir, fmt.Sprintf("%s-mut%d", name, m)), data)
			fmt.Printf("  %s-mut%d: %s\n", name, m, desc)
			written++
		}
	}
	fmt.Printf("Wrote %d corpus entries.\n", written)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// buildImage retries random databases until one assembles. Overlapping
// prefixes and missing alias subtrees are rejected by the builder, so a
// few attempts can fail before one sticks.
func buildImage(rng *rand.Rand) *mmdbtest.Image {
	for attempt := 0; ; attempt++ {
		opts, networks := randomDatabase(rng)
		img, err := mmdbtest.Build(opts, networks)
		if err == nil {
			return img
		}
		if attempt >= 50 {
			fatal(fmt.Errorf("no valid image after %d attempts: %w", attempt+1, err))
		}
	}
}

func randomDatabase(rng *rand.Rand) (mmdbtest.Options, []mmdbtest.Network) {
	sizes := []int{24, 28, 32}
	opts := mmdbtest.Options{
		RecordSize:      sizes[rng.Intn(len(sizes))],
		IPVersion:       6,
		DisablePointers: rng.Intn(2) == 0,
	}
	if rng.Intn(4) == 0 {
		opts.IPVersion = 4
	} else if rng.Intn(2) == 0 {
		opts.AliasIPv4 = true
	}

	networks := make([]mmdbtest.Network, 1+rng.Intn(10))
	for i := range networks {
		// The alias needs an IPv4 subtree to point at.
		forceV4 := opts.AliasIPv4 && i == 0
		networks[i] = mmdbtest.Network{
			Prefix: randomPrefix(rng, opts.IPVersion, forceV4),
			Record: randomRecord(rng, 0),
		}
	}
	return opts, networks
}

func randomPrefix(rng *rand.Rand, ipVersion int, forceV4 bool) netip.Prefix {
	if ipVersion == 4 || forceV4 || rng.Intn(2) == 0 {
		var b [4]byte
		rng.Read(b[:])
		return netip.PrefixFrom(netip.AddrFrom4(b), 8+rng.Intn(23)).Masked()
	}
	var b [16]byte
	rng.Read(b[:])
	b[0], b[1], b[2], b[3] = 0x20, 0x01, 0x0d, 0xb8
	return netip.PrefixFrom(netip.AddrFrom16(b), 33+rng.Intn(32)).Masked()
}

func randomRecord(rng *rand.Rand, depth int) decode.Value {
	kind := rng.Intn(12)
	switch {
	case depth == 0:
		kind = 10 + rng.Intn(2) // top-level records are containers
	case depth >= 2:
		kind = rng.Intn(10)
	}

	switch kind {
	case 0:
		return decode.String(randomString(rng))
	case 1:
		b := make([]byte, rng.Intn(16))
		rng.Read(b)
		return decode.Bytes(b)
	case 2:
		return decode.Double(rng.NormFloat64())
	case 3:
		return decode.Float(float32(rng.NormFloat64()))
	case 4:
		return decode.Uint16(uint16(rng.Intn(1 << 16)))
	case 5:
		return decode.Uint32(rng.Uint32())
	case 6:
		return decode.Uint64(rng.Uint64())
	case 7:
		v := new(big.Int).SetUint64(rng.Uint64())
		return decode.Uint128(v.Lsh(v, uint(rng.Intn(64))))
	case 8:
		return decode.Int32(int32(rng.Uint32()))
	case 9:
		return decode.Bool(rng.Intn(2) == 0)
	case 10:
		xs := make([]decode.Value, 1+rng.Intn(4))
		for i := range xs {
			xs[i] = randomRecord(rng, depth+1)
		}
		return decode.Sequence(xs)
	default:
		m := make(map[string]decode.Value, 4)
		for i := 0; i < 1+rng.Intn(4); i++ {
			m[randomString(rng)] = randomRecord(rng, depth+1)
		}
		return decode.Mapping(m)
	}
}

func randomString(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 1+rng.Intn(8))
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

// checkImage opens the image and walks every network, so a broken
// builder cannot poison the corpus with images the fuzzer then wastes
// time rediscovering as "crashes".
func checkImage(img *mmdbtest.Image) error {
	r, err := database.FromBytes(img.Bytes)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	return r.Networks(database.NetworksOptions{IncludeAliased: true}, func(netip.Prefix, decode.Value) error {
		return nil
	})
}

// mutate damages a built image so the corpus also covers near-valid
// input, which is where decoder bugs live.
func mutate(src []byte, rng *rand.Rand) ([]byte, string) {
	out := append([]byte(nil), src...)
	switch rng.Intn(4) {
	case 0:
		i := rng.Intn(len(out))
		out[i] ^= 1 << uint(rng.Intn(8))
		return out, fmt.Sprintf("flipped a bit at offset %d", i)
	case 1:
		n := rng.Intn(len(out))
		return out[:n], fmt.Sprintf("truncated to %d bytes", n)
	case 2:
		i := rng.Intn(len(out))
		n := min(4+rng.Intn(12), len(out)-i)
		for j := 0; j < n; j++ {
			out[i+j] = 0
		}
		return out, fmt.Sprintf("zeroed %d bytes at offset %d", n, i)
	default:
		i := rng.Intn(len(out))
		out = append(out[:i], append([]byte("\xab\xcd\xefMaxMind.com"), out[i:]...)...)
		return out, fmt.Sprintf("spliced a metadata marker at offset %d", i)
	}
}

// writeEntry writes data in the corpus file encoding go test reads.
func writeEntry(path string, data []byte) {
	entry := fmt.Sprintf("go test fuzz v1\n[]byte(%s)\n", strconv.Quote(string(data)))
	if err := os.WriteFile(path, []byte(entry), 0o644); err != nil {
		fatal(err)
	}
}
