package decode

// Source produces a pre-order node sequence. A sequence is consumed once,
// forward-only; implementations are free to produce nodes lazily and need
// not support restarting.
type Source interface {
	// Next returns the next node, or ok=false when no nodes remain.
	Next() (node Node, ok bool)
}

// SliceSource replays a fixed node slice.
type SliceSource struct {
	nodes []Node
	pos   int
}

func NewSliceSource(nodes ...Node) *SliceSource {
	return &SliceSource{nodes: nodes}
}

func (s *SliceSource) Next() (Node, bool) {
	if s.pos >= len(s.nodes) {
		return Node{}, false
	}
	n := s.nodes[s.pos]
	s.pos++
	return n, true
}

// Cursor tracks a position in a Source: the node under the cursor plus its
// index in the sequence. A cursor serves one materialization at a time and
// is not safe for concurrent use.
type Cursor struct {
	src Source
	cur Node
	idx int
	ok  bool
}

// NewCursor returns a cursor positioned on the first node of src.
func NewCursor(src Source) *Cursor {
	c := &Cursor{src: src, idx: -1}
	c.advance()
	return c
}

// advance moves the cursor to the next node. Once the sequence ends the
// cursor stays exhausted; idx keeps the index of the last node seen.
func (c *Cursor) advance() bool {
	n, ok := c.src.Next()
	if !ok {
		c.ok = false
		return false
	}
	c.cur = n
	c.idx++
	c.ok = true
	return true
}
