package database

import (
	"net/netip"

	"github.com/agentic-research/mmdb/internal/decode"
)

// NetworkFunc receives one routed network and its materialized record.
// Returning an error stops the walk and surfaces the error unchanged.
type NetworkFunc func(netip.Prefix, decode.Value) error

// NetworksOptions controls the Networks walk.
type NetworksOptions struct {
	// IncludeAliased also visits subtrees reached through aliases of the
	// IPv4 tree, such as ::ffff:0:0/96. By default each IPv4 network is
	// reported once, under its canonical path.
	IncludeAliased bool
}

// Networks walks the whole search tree in address order and calls fn for
// every routed network. IPv4 networks inside an IPv6 tree are reported as
// plain IPv4 prefixes.
func (r *Reader) Networks(opts NetworksOptions, fn NetworkFunc) error {
	if r.buf == nil {
		return ErrClosed
	}
	bits := 32
	if r.metadata.IPVersion == 6 {
		bits = 128
	}
	var addr [16]byte
	return r.walkNode(0, &addr, 0, bits, opts, fn)
}

func (r *Reader) walkNode(node uint, addr *[16]byte, depth, bits int, opts NetworksOptions, fn NetworkFunc) error {
	if node == r.nodeCount {
		return nil // unrouted hole
	}
	if node > r.nodeCount {
		off, err := r.dataOffset(node)
		if err != nil {
			return err
		}
		v, err := r.decodeAt(off)
		if err != nil {
			return err
		}
		return fn(r.prefixAt(addr, depth), v)
	}

	if depth == bits {
		return invalidf("search tree is deeper than the address space")
	}
	if !opts.IncludeAliased && r.isAliasedV4(node, addr, depth) {
		return nil
	}

	if err := r.walkNode(r.record(node, 0), addr, depth+1, bits, opts, fn); err != nil {
		return err
	}
	addr[depth>>3] |= 1 << (7 - depth&7)
	err := r.walkNode(r.record(node, 1), addr, depth+1, bits, opts, fn)
	addr[depth>>3] &^= 1 << (7 - depth&7)
	return err
}

// isAliasedV4 reports whether node is the IPv4 subtree reached through an
// alias rather than through its canonical 96-zero-bit path.
func (r *Reader) isAliasedV4(node uint, addr *[16]byte, depth int) bool {
	if r.metadata.IPVersion != 6 || r.ipv4Start == 0 || r.ipv4Start >= r.nodeCount {
		return false
	}
	if node != r.ipv4Start {
		return false
	}
	return depth != 96 || !isZero(addr[:12])
}

func (r *Reader) prefixAt(addr *[16]byte, depth int) netip.Prefix {
	if r.metadata.IPVersion == 4 {
		return netip.PrefixFrom(netip.AddrFrom4([4]byte(addr[0:4])), depth)
	}
	if depth >= 96 && isZero(addr[:12]) {
		return netip.PrefixFrom(netip.AddrFrom4([4]byte(addr[12:16])), depth-96)
	}
	return netip.PrefixFrom(netip.AddrFrom16(*addr), depth)
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}
