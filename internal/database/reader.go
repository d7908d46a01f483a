package database

import (
	"fmt"
	"io"
	"os"

	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sys/unix"
)

// Reader resolves addresses against a single database file. The underlying
// buffer is immutable, so a Reader is safe for concurrent lookups; Close
// must not race with them.
type Reader struct {
	buf     []byte
	mmapped bool

	metadata  *Metadata
	tree      []byte
	data      []byte
	nodeCount uint
	nodeSize  int
	ipv4Start uint
}

// Open memory-maps the database at path. Filesystems that refuse mmap get a
// plain read instead.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = f.Close() }() // the mapping outlives the descriptor

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat database: %w", err)
	}
	size := int(fi.Size())
	if size == 0 {
		return nil, invalidf("%s is empty; is this a valid MaxMind DB file?", path)
	}

	buf, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		raw, rerr := io.ReadAll(f)
		if rerr != nil {
			return nil, fmt.Errorf("read database: %w", rerr)
		}
		return FromBytes(raw)
	}

	r, err := FromBytes(buf)
	if err != nil {
		_ = unix.Munmap(buf)
		return nil, err
	}
	r.mmapped = true
	return r, nil
}

// OpenFS reads a database from a virtual filesystem into memory.
func OpenFS(fsys billy.Filesystem, path string) (*Reader, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	return FromBytes(buf)
}

// FromBytes opens a database image held in memory. The Reader aliases buf;
// the caller must not mutate it while the Reader lives.
func FromBytes(buf []byte) (*Reader, error) {
	metaStart, err := findMetadataStart(buf)
	if err != nil {
		return nil, err
	}

	w := newEntryWalker(buf[metaStart:], 0)
	raw, err := decode.Materialize(decode.NewCursor(w))
	if werr := w.Err(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	md, err := parseMetadata(raw)
	if err != nil {
		return nil, err
	}

	nodeSize := int(md.RecordSize) / 4
	treeSize := int(md.NodeCount) * nodeSize
	markerStart := metaStart - len(metadataMarker)
	if treeSize+dataSeparatorSize > markerStart {
		return nil, invalidf("search tree of %d nodes overruns the data section", md.NodeCount)
	}

	r := &Reader{
		buf:       buf,
		metadata:  md,
		tree:      buf[:treeSize],
		data:      buf[treeSize+dataSeparatorSize : markerStart],
		nodeCount: md.NodeCount,
		nodeSize:  nodeSize,
	}
	if md.IPVersion == 6 {
		r.ipv4Start = r.findIPv4Start()
	}
	return r, nil
}

// Metadata returns the decoded metadata fields. The fields remain valid
// after Close.
func (r *Reader) Metadata() *Metadata { return r.metadata }

// Close releases the mapping. Any later lookup fails with ErrClosed.
func (r *Reader) Close() error {
	if r.buf == nil {
		return nil
	}
	var err error
	if r.mmapped {
		err = unix.Munmap(r.buf)
	}
	r.buf, r.tree, r.data = nil, nil, nil
	return err
}

// decodeAt materializes the entry starting at a data-section offset.
func (r *Reader) decodeAt(offset int) (decode.Value, error) {
	w := newEntryWalker(r.data, offset)
	v, err := decode.Materialize(decode.NewCursor(w))
	if werr := w.Err(); werr != nil {
		return decode.Value{}, werr
	}
	if err != nil {
		return decode.Value{}, fmt.Errorf("decode entry at offset %d: %w", offset, err)
	}
	return v, nil
}

// dataOffset converts a leaf record into a data-section offset.
func (r *Reader) dataOffset(record uint) (int, error) {
	off := int(record) - int(r.nodeCount) - dataSeparatorSize
	if off < 0 || off >= len(r.data) {
		return 0, invalidf("search tree record %d points outside the data section", record)
	}
	return off, nil
}
