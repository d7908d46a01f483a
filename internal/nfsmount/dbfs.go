// Package nfsmount serves an opened database as a read-only NFS export.
// The projection is a small virtual tree: metadata.json at the root and
// one JSON file per routed network under /networks.
package nfsmount

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/decode"
	"github.com/agentic-research/mmdb/internal/render"
)

var errReadOnly = fmt.Errorf("read-only filesystem")

// dbState is the projection of one opened reader: the rendered metadata,
// the network file index, and the lazily rendered record cache. A state
// is never modified after Reload swaps it out, so in-flight NFS handlers
// keep a coherent view of the database they started on.
type dbState struct {
	reader    *database.Reader
	metaJSON  []byte
	names     []string                // sorted file names under /networks
	prefixes  map[string]netip.Prefix // file name -> network
	buildTime time.Time

	mu       sync.Mutex
	rendered map[string][]byte // file name -> record JSON
}

// DBFS projects a database as a billy.Filesystem for go-nfs. Network
// records render to JSON on first access and stay cached until the
// database is swapped out.
type DBFS struct {
	mu    sync.RWMutex
	state *dbState
}

// NewDBFS indexes r's networks and renders its metadata. The reader must
// stay open for the life of the filesystem.
func NewDBFS(r *database.Reader) (*DBFS, error) {
	st, err := newDBState(r)
	if err != nil {
		return nil, err
	}
	return &DBFS{state: st}, nil
}

// Reload swaps the filesystem over to a freshly opened reader and returns
// the previous one for the caller to close. On error the current state
// stays in place and the caller keeps ownership of r.
func (fs *DBFS) Reload(r *database.Reader) (*database.Reader, error) {
	st, err := newDBState(r)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	old := fs.state
	fs.state = st
	fs.mu.Unlock()
	return old.reader, nil
}

func (fs *DBFS) current() *dbState {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.state
}

func newDBState(r *database.Reader) (*dbState, error) {
	md := r.Metadata()
	st := &dbState{
		reader:    r,
		metaJSON:  append([]byte(render.Any(render.Metadata(md), true)), '\n'),
		prefixes:  make(map[string]netip.Prefix),
		buildTime: time.Unix(int64(md.BuildEpoch), 0),
		rendered:  make(map[string][]byte),
	}
	err := r.Networks(database.NetworksOptions{}, func(p netip.Prefix, _ decode.Value) error {
		name := networkFileName(p)
		st.names = append(st.names, name)
		st.prefixes[name] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index networks: %w", err)
	}
	sort.Strings(st.names)
	return st, nil
}

// networkFileName flattens a prefix into a single path element, such as
// "1.0.0.0_24.json" for 1.0.0.0/24.
func networkFileName(p netip.Prefix) string {
	return strings.ReplaceAll(p.String(), "/", "_") + ".json"
}

// record returns the rendered JSON for one network file, materializing the
// entry on first use.
func (st *dbState) record(name string) ([]byte, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if b, ok := st.rendered[name]; ok {
		return b, nil
	}
	p, ok := st.prefixes[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	v, _, ok, err := st.reader.LookupNetwork(p.Addr())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, os.ErrNotExist
	}
	b := append([]byte(render.Any(render.Display(v), true)), '\n')
	st.rendered[name] = b
	return b, nil
}

// --- billy.Basic ---

func (fs *DBFS) Create(filename string) (billy.File, error) {
	return nil, errReadOnly
}

func (fs *DBFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *DBFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, errReadOnly
	}
	st := fs.current()
	filename = cleanPath(filename)

	switch filename {
	case "/", "/networks":
		return nil, &os.PathError{Op: "open", Path: filename, Err: fmt.Errorf("is a directory")}
	case "/metadata.json":
		return &bytesFile{name: "metadata.json", data: st.metaJSON}, nil
	}

	dir, name := filepath.Split(filename)
	if dir != "/networks/" {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	data, err := st.record(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filename, Err: err}
	}
	return &bytesFile{name: name, data: data}, nil
}

func (fs *DBFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *DBFS) Rename(oldpath, newpath string) error {
	return errReadOnly
}

func (fs *DBFS) Remove(filename string) error {
	return errReadOnly
}

func (fs *DBFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *DBFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *DBFS) ReadDir(path string) ([]os.FileInfo, error) {
	st := fs.current()
	switch cleanPath(path) {
	case "/":
		return []os.FileInfo{
			&staticFileInfo{
				name:    "metadata.json",
				size:    int64(len(st.metaJSON)),
				mode:    0o444,
				modTime: st.buildTime,
			},
			&staticFileInfo{
				name:    "networks",
				mode:    os.ModeDir | 0o555,
				modTime: st.buildTime,
			},
		}, nil
	case "/networks":
		infos := make([]os.FileInfo, 0, len(st.names))
		for _, name := range st.names {
			data, err := st.record(name)
			if err != nil {
				return nil, &os.PathError{Op: "readdir", Path: path, Err: err}
			}
			infos = append(infos, &staticFileInfo{
				name:    name,
				size:    int64(len(data)),
				mode:    0o444,
				modTime: st.buildTime,
			})
		}
		return infos, nil
	}
	return nil, &os.PathError{Op: "readdir", Path: path, Err: os.ErrNotExist}
}

func (fs *DBFS) MkdirAll(filename string, perm os.FileMode) error {
	return errReadOnly
}

// --- billy.Symlink ---

func (fs *DBFS) Lstat(filename string) (os.FileInfo, error) {
	st := fs.current()
	filename = cleanPath(filename)

	switch filename {
	case "/":
		return &staticFileInfo{name: "/", mode: os.ModeDir | 0o555, modTime: st.buildTime}, nil
	case "/networks":
		return &staticFileInfo{name: "networks", mode: os.ModeDir | 0o555, modTime: st.buildTime}, nil
	case "/metadata.json":
		return &staticFileInfo{
			name:    "metadata.json",
			size:    int64(len(st.metaJSON)),
			mode:    0o444,
			modTime: st.buildTime,
		}, nil
	}

	dir, name := filepath.Split(filename)
	if dir != "/networks/" {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
	}
	data, err := st.record(name)
	if err != nil {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: err}
	}
	return &staticFileInfo{
		name:    name,
		size:    int64(len(data)),
		mode:    0o444,
		modTime: st.buildTime,
	}, nil
}

func (fs *DBFS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (fs *DBFS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (fs *DBFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *DBFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *DBFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	path = filepath.Clean("/" + path)
	if path == "." {
		return "/"
	}
	return path
}

// staticFileInfo implements os.FileInfo with static values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*DBFS)(nil)
	_ billy.Capable    = (*DBFS)(nil)
)
