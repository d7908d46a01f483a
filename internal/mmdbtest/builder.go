package mmdbtest

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/agentic-research/mmdb/internal/decode"
)

// Options shape the synthetic database. Zero values pick workable defaults.
type Options struct {
	RecordSize      int               // 24, 28 or 32; defaults to 28
	IPVersion       int               // 4 or 6; defaults to 6
	DatabaseType    string            // defaults to "mmdbtest"
	Languages       []string          // defaults to ["en"]
	Description     map[string]string // defaults to {"en": "synthetic database"}
	BuildEpoch      uint64            // defaults to a fixed epoch for reproducible images
	DisablePointers bool              // write every string inline instead of deduping
	AliasIPv4       bool              // alias ::ffff:0:0/96 onto the IPv4 subtree
}

// Network pairs a routed prefix with its record.
type Network struct {
	Prefix netip.Prefix
	Record decode.Value
}

// Image is a complete database file held in memory, with the section
// offsets corruption tests need to aim their damage.
type Image struct {
	Bytes     []byte
	NodeCount int
	TreeSize  int
	DataStart int // offset of the data section within Bytes
	MetaStart int // offset of the metadata marker within Bytes
}

const defaultBuildEpoch = 1724112000 // 2024-08-20T00:00:00Z

var metadataMarker = []byte("\xab\xcd\xefMaxMind.com")

type trieNode struct {
	children [2]*trieNode
	record   *decode.Value
	index    int
	dataOff  int
}

func (n *trieNode) leaf() bool { return n.record != nil }

// Build assembles a database image from disjoint networks.
func Build(opts Options, networks []Network) (*Image, error) {
	if opts.RecordSize == 0 {
		opts.RecordSize = 28
	}
	switch opts.RecordSize {
	case 24, 28, 32:
	default:
		return nil, fmt.Errorf("record size %d is not 24, 28 or 32", opts.RecordSize)
	}
	if opts.IPVersion == 0 {
		opts.IPVersion = 6
	}
	if opts.IPVersion != 4 && opts.IPVersion != 6 {
		return nil, fmt.Errorf("ip version %d is not 4 or 6", opts.IPVersion)
	}
	if opts.DatabaseType == "" {
		opts.DatabaseType = "mmdbtest"
	}
	if opts.Languages == nil {
		opts.Languages = []string{"en"}
	}
	if opts.Description == nil {
		opts.Description = map[string]string{"en": "synthetic database"}
	}
	if opts.BuildEpoch == 0 {
		opts.BuildEpoch = defaultBuildEpoch
	}

	root := &trieNode{}
	for i := range networks {
		if err := insert(root, opts.IPVersion, networks[i].Prefix, &networks[i].Record); err != nil {
			return nil, err
		}
	}
	if opts.AliasIPv4 {
		if err := aliasIPv4(root, opts.IPVersion); err != nil {
			return nil, err
		}
	}

	nodes := indexNodes(root)

	// Data section, with whole-record dedup on top of the encoder's
	// string dedup.
	enc := newEncoder(!opts.DisablePointers)
	seen := make(map[string]int)
	for _, n := range nodes {
		for _, c := range n.children {
			if c == nil || !c.leaf() {
				continue
			}
			probe := newEncoder(false)
			if err := probe.appendValue(*c.record); err != nil {
				return nil, err
			}
			key := string(probe.buf)
			if off, ok := seen[key]; ok {
				c.dataOff = off
				continue
			}
			c.dataOff = len(enc.buf)
			seen[key] = c.dataOff
			if err := enc.appendValue(*c.record); err != nil {
				return nil, err
			}
		}
	}
	data := enc.buf

	nodeCount := len(nodes)
	nodeBytes := opts.RecordSize / 4
	tree := make([]byte, nodeCount*nodeBytes)
	for _, n := range nodes {
		left, err := recordValue(n.children[0], nodeCount)
		if err != nil {
			return nil, err
		}
		right, err := recordValue(n.children[1], nodeCount)
		if err != nil {
			return nil, err
		}
		if max := int64(1) << opts.RecordSize; int64(left) >= max || int64(right) >= max {
			return nil, fmt.Errorf("record size %d cannot address the data section", opts.RecordSize)
		}
		packRecord(tree[n.index*nodeBytes:], opts.RecordSize, left, right)
	}

	meta, err := encodeMetadata(opts, nodeCount)
	if err != nil {
		return nil, err
	}

	img := &Image{
		NodeCount: nodeCount,
		TreeSize:  len(tree),
		DataStart: len(tree) + 16,
	}
	buf := make([]byte, 0, len(tree)+16+len(data)+len(metadataMarker)+len(meta))
	buf = append(buf, tree...)
	buf = append(buf, make([]byte, 16)...)
	buf = append(buf, data...)
	img.MetaStart = len(buf)
	buf = append(buf, metadataMarker...)
	buf = append(buf, meta...)
	img.Bytes = buf
	return img, nil
}

// pathBits flattens a prefix into the tree's bit space: IPv4 prefixes in an
// IPv6 tree sit behind 96 zero bits.
func pathBits(ipVersion int, p netip.Prefix) ([]byte, int, error) {
	p = p.Masked()
	addr := p.Addr().Unmap()
	switch {
	case addr.Is4() && ipVersion == 4:
		b := addr.As4()
		return b[:], p.Bits(), nil
	case addr.Is4():
		b := addr.As4()
		return append(make([]byte, 12), b[:]...), 96 + p.Bits(), nil
	case ipVersion == 4:
		return nil, 0, fmt.Errorf("cannot put IPv6 network %s in an IPv4 tree", p)
	default:
		b := addr.As16()
		return b[:], p.Bits(), nil
	}
}

func insert(root *trieNode, ipVersion int, p netip.Prefix, record *decode.Value) error {
	bits, plen, err := pathBits(ipVersion, p)
	if err != nil {
		return err
	}
	if plen == 0 {
		return fmt.Errorf("network %s spans the whole address space", p)
	}
	n := root
	for i := 0; i < plen; i++ {
		if n.leaf() {
			return fmt.Errorf("network %s overlaps a shorter network", p)
		}
		bit := (bits[i>>3] >> (7 - i&7)) & 1
		if n.children[bit] == nil {
			n.children[bit] = &trieNode{}
		}
		n = n.children[bit]
	}
	if n.leaf() || n.children[0] != nil || n.children[1] != nil {
		return fmt.Errorf("network %s overlaps an existing network", p)
	}
	n.record = record
	return nil
}

// aliasIPv4 links ::ffff:0:0/96 to the node the 96-zero-bit path reaches,
// mirroring how production trees alias their IPv4 space.
func aliasIPv4(root *trieNode, ipVersion int) error {
	if ipVersion != 6 {
		return fmt.Errorf("only an IPv6 tree can alias its IPv4 subtree")
	}
	v4 := root
	for i := 0; i < 96; i++ {
		v4 = v4.children[0]
		if v4 == nil || v4.leaf() {
			return fmt.Errorf("no IPv4 subtree to alias")
		}
	}

	alias := netip.MustParsePrefix("::ffff:0:0/96")
	bits, plen, err := pathBits(6, alias)
	if err != nil {
		return err
	}
	n := root
	for i := 0; i < plen-1; i++ {
		if n.leaf() {
			return fmt.Errorf("alias path collides with a routed network")
		}
		bit := (bits[i>>3] >> (7 - i&7)) & 1
		if n.children[bit] == nil {
			n.children[bit] = &trieNode{}
		}
		n = n.children[bit]
	}
	last := (bits[(plen-1)>>3] >> (7 - (plen-1)&7)) & 1
	if n.children[last] != nil {
		return fmt.Errorf("alias path collides with a routed network")
	}
	n.children[last] = v4
	return nil
}

// indexNodes numbers the internal nodes breadth-first with the root as node
// zero. Shared subtrees keep a single number.
func indexNodes(root *trieNode) []*trieNode {
	var nodes []*trieNode
	queued := map[*trieNode]bool{root: true}
	queue := []*trieNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		n.index = len(nodes)
		nodes = append(nodes, n)
		for _, c := range n.children {
			if c != nil && !c.leaf() && !queued[c] {
				queued[c] = true
				queue = append(queue, c)
			}
		}
	}
	return nodes
}

func recordValue(c *trieNode, nodeCount int) (int, error) {
	switch {
	case c == nil:
		return nodeCount, nil
	case c.leaf():
		return nodeCount + 16 + c.dataOff, nil
	default:
		return c.index, nil
	}
}

func packRecord(b []byte, recordSize, left, right int) {
	switch recordSize {
	case 24:
		b[0], b[1], b[2] = byte(left>>16), byte(left>>8), byte(left)
		b[3], b[4], b[5] = byte(right>>16), byte(right>>8), byte(right)
	case 28:
		b[0], b[1], b[2] = byte(left>>16), byte(left>>8), byte(left)
		b[3] = byte(left>>24)<<4 | byte(right>>24)&0x0f
		b[4], b[5], b[6] = byte(right>>16), byte(right>>8), byte(right)
	default:
		binary.BigEndian.PutUint32(b[0:4], uint32(left))
		binary.BigEndian.PutUint32(b[4:8], uint32(right))
	}
}

func encodeMetadata(opts Options, nodeCount int) ([]byte, error) {
	desc := make(map[string]decode.Value, len(opts.Description))
	for k, v := range opts.Description {
		desc[k] = decode.String(v)
	}
	langs := make([]decode.Value, len(opts.Languages))
	for i, l := range opts.Languages {
		langs[i] = decode.String(l)
	}
	meta := decode.Mapping(map[string]decode.Value{
		"binary_format_major_version": decode.Uint16(2),
		"binary_format_minor_version": decode.Uint16(0),
		"build_epoch":                 decode.Uint64(opts.BuildEpoch),
		"database_type":               decode.String(opts.DatabaseType),
		"description":                 decode.Mapping(desc),
		"ip_version":                  decode.Uint16(uint16(opts.IPVersion)),
		"languages":                   decode.Sequence(langs),
		"node_count":                  decode.Uint32(uint32(nodeCount)),
		"record_size":                 decode.Uint16(uint16(opts.RecordSize)),
	})

	enc := newEncoder(false)
	if err := enc.appendValue(meta); err != nil {
		return nil, err
	}
	return enc.buf, nil
}
