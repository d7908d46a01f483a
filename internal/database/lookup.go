package database

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/agentic-research/mmdb/internal/decode"
)

// Lookup resolves addr to its record. ok is false when the database holds
// no entry for the address.
func (r *Reader) Lookup(addr netip.Addr) (decode.Value, bool, error) {
	v, _, ok, err := r.lookup(addr)
	return v, ok, err
}

// LookupNetwork resolves addr and also reports the network its search tree
// entry covers. On a miss the prefix covers the unrouted hole around addr.
func (r *Reader) LookupNetwork(addr netip.Addr) (decode.Value, netip.Prefix, bool, error) {
	return r.lookup(addr)
}

func (r *Reader) lookup(addr netip.Addr) (decode.Value, netip.Prefix, bool, error) {
	if r.buf == nil {
		return decode.Value{}, netip.Prefix{}, false, ErrClosed
	}
	if !addr.IsValid() {
		return decode.Value{}, netip.Prefix{}, false, fmt.Errorf("lookup of an invalid address")
	}

	ip := addr.Unmap()
	var (
		raw  []byte
		node uint
	)
	if ip.Is4() {
		b := ip.As4()
		raw = b[:]
		if r.metadata.IPVersion == 6 {
			node = r.ipv4Start
		}
	} else {
		if r.metadata.IPVersion == 4 {
			return decode.Value{}, netip.Prefix{}, false, IPVersionError{Addr: addr}
		}
		b := ip.As16()
		raw = b[:]
	}

	bits := len(raw) * 8
	i := 0
	for ; i < bits && node < r.nodeCount; i++ {
		bit := (raw[i>>3] >> (7 - i&7)) & 1
		node = r.record(node, bit)
	}
	prefix := netip.PrefixFrom(ip, i).Masked()

	switch {
	case node == r.nodeCount:
		return decode.Value{}, prefix, false, nil
	case node < r.nodeCount:
		// Ran out of address bits while still on an internal node.
		return decode.Value{}, netip.Prefix{}, false, invalidf("search tree is deeper than the address space at %s", addr)
	}

	off, err := r.dataOffset(node)
	if err != nil {
		return decode.Value{}, netip.Prefix{}, false, err
	}
	v, err := r.decodeAt(off)
	if err != nil {
		return decode.Value{}, netip.Prefix{}, false, err
	}
	return v, prefix, true, nil
}

// record returns the child record of node for one trie bit. The 24 and 32
// bit layouts store the two records side by side; 28 bit packs the high
// nibbles of both into the shared middle byte.
func (r *Reader) record(node uint, bit byte) uint {
	base := int(node) * r.nodeSize
	switch r.nodeSize {
	case 6:
		off := base
		if bit == 1 {
			off += 3
		}
		b := r.tree[off : off+3]
		return uint(b[0])<<16 | uint(b[1])<<8 | uint(b[2])
	case 7:
		if bit == 0 {
			b := r.tree[base : base+4]
			return uint(b[3]&0xf0)<<20 | uint(b[0])<<16 | uint(b[1])<<8 | uint(b[2])
		}
		b := r.tree[base+3 : base+7]
		return uint(b[0]&0x0f)<<24 | uint(b[1])<<16 | uint(b[2])<<8 | uint(b[3])
	default:
		off := base
		if bit == 1 {
			off += 4
		}
		return uint(binary.BigEndian.Uint32(r.tree[off : off+4]))
	}
}

// findIPv4Start walks the 96 zero bits that prefix any IPv4 address inside
// an IPv6 tree, so IPv4 lookups skip straight to their subtree.
func (r *Reader) findIPv4Start() uint {
	node := uint(0)
	for i := 0; i < 96 && node < r.nodeCount; i++ {
		node = r.record(node, 0)
	}
	return node
}
