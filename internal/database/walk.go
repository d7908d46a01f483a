package database

import (
	"net/netip"

	"github.com/agentic-research/mmdb/internal/decode"
)

// TreeEvent describes one terminal record reached during a full tree walk.
type TreeEvent struct {
	// Prefix is the network the record covers.
	Prefix netip.Prefix
	// Depth is the number of address bits consumed to reach the record.
	Depth int
	// Offset is the record's data section offset, or -1 for an unrouted
	// hole. Pass it to Entry to materialize the record.
	Offset int
	// Aliased marks records reached through a non-canonical path into the
	// IPv4 subtree, such as ::ffff:0:0/96.
	Aliased bool
}

// WalkTree visits every terminal record slot in the search tree, including
// those inside aliased IPv4 subtrees, without materializing entries. Unlike
// Networks it also reports unrouted holes, so tooling can account for every
// record the tree contains.
func (r *Reader) WalkTree(fn func(TreeEvent) error) error {
	if r.buf == nil {
		return ErrClosed
	}
	bits := 32
	if r.metadata.IPVersion == 6 {
		bits = 128
	}
	var addr [16]byte
	return r.walkRecords(0, &addr, 0, bits, false, fn)
}

func (r *Reader) walkRecords(node uint, addr *[16]byte, depth, bits int, aliased bool, fn func(TreeEvent) error) error {
	if node >= r.nodeCount {
		ev := TreeEvent{Prefix: r.prefixAt(addr, depth), Depth: depth, Offset: -1, Aliased: aliased}
		if node > r.nodeCount {
			off, err := r.dataOffset(node)
			if err != nil {
				return err
			}
			ev.Offset = off
		}
		return fn(ev)
	}

	if depth == bits {
		return invalidf("search tree is deeper than the address space")
	}
	if r.isAliasedV4(node, addr, depth) {
		aliased = true
	}

	if err := r.walkRecords(r.record(node, 0), addr, depth+1, bits, aliased, fn); err != nil {
		return err
	}
	addr[depth>>3] |= 1 << (7 - depth&7)
	err := r.walkRecords(r.record(node, 1), addr, depth+1, bits, aliased, fn)
	addr[depth>>3] &^= 1 << (7 - depth&7)
	return err
}

// Entry materializes the entry at a data section offset previously reported
// by a TreeEvent.
func (r *Reader) Entry(offset int) (decode.Value, error) {
	if r.buf == nil {
		return decode.Value{}, ErrClosed
	}
	if offset < 0 || offset >= len(r.data) {
		return decode.Value{}, invalidf("offset %d is outside the data section", offset)
	}
	return r.decodeAt(offset)
}
