// Package verify performs a full structural check of a database: every
// search tree record is followed, every distinct entry is materialized,
// and the shape of the tree is summarized for inspection.
package verify

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/mmdb/internal/database"
)

// Report summarizes one full walk of the search tree.
type Report struct {
	// NodesVisited counts internal node visits. Aliased subtrees are
	// walked once per path, so this can exceed the metadata node count.
	NodesVisited uint64
	// Networks counts routed networks reached under their canonical path.
	Networks uint64
	// AliasedNetworks counts records reached again through IPv4 aliases.
	AliasedNetworks uint64
	// Holes counts record slots that route nowhere.
	Holes uint64
	// DistinctEntries counts unique data section offsets in use; shared
	// entries are materialized only once.
	DistinctEntries uint64
	// MaxDepth is the deepest record slot in bits.
	MaxDepth int
	// PrefixLengths histograms routed networks by prefix length.
	PrefixLengths map[int]uint64
}

// Database walks every record in r's search tree and materializes every
// distinct entry. The first structural fault stops the walk.
func Database(r *database.Reader) (*Report, error) {
	rep := &Report{PrefixLengths: make(map[int]uint64)}
	offsets := roaring.New()
	var events uint64

	err := r.WalkTree(func(ev database.TreeEvent) error {
		events++
		if ev.Depth > rep.MaxDepth {
			rep.MaxDepth = ev.Depth
		}
		if ev.Offset < 0 {
			rep.Holes++
			return nil
		}
		if ev.Aliased {
			rep.AliasedNetworks++
		} else {
			rep.Networks++
		}
		rep.PrefixLengths[ev.Prefix.Bits()]++
		if offsets.CheckedAdd(uint32(ev.Offset)) {
			if _, err := r.Entry(ev.Offset); err != nil {
				return fmt.Errorf("entry for %s: %w", ev.Prefix, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A full binary walk reaches one more terminal slot than it visits
	// internal nodes.
	if events > 0 {
		rep.NodesVisited = events - 1
	}
	rep.DistinctEntries = offsets.GetCardinality()
	return rep, nil
}
