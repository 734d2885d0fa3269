// Package router resolves a source file path to its owning workspace and
// maintains a bounded LRU of open per-workspace caches, per spec.md §4.6.
package router

import (
	"container/list"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/types"
)

// markerFiles lists the filenames that identify a workspace root, checked
// in this order at each ancestor directory.
var markerFiles = []string{
	"Cargo.toml",
	"package.json",
	"go.mod",
	"pyproject.toml",
	"setup.py",
	"tsconfig.json",
	"composer.json",
	".git",
}

// Handles is whatever the caller's opener constructs for one workspace
// root: the store, the lspcache manager, etc. The router treats it
// opaquely except for closing it on eviction.
type Handles interface {
	Close() error
}

// Opener constructs the Handles for a newly discovered workspace root.
type Opener func(root string) (Handles, error)

// Resolver walks a file path's ancestors to find its workspace root, then
// hands out a bounded-LRU cache-of-caches keyed by that root.
type Resolver struct {
	cfg    config.Router
	opener Opener

	mu      sync.Mutex
	ll      *list.List // front = most recently used
	index   map[string]*list.Element
	statOS  func(string) (os.FileInfo, error)
}

type entry struct {
	root    string
	handles Handles
}

// New builds a Resolver. opener is called at most once per workspace root
// currently in the LRU; it is the caller's job to actually construct the
// store/cache handles for that root.
func New(cfg config.Router, opener Opener) *Resolver {
	if cfg.MaxParentLookupDepth <= 0 {
		cfg.MaxParentLookupDepth = 3
	}
	if cfg.MaxOpenCaches <= 0 {
		cfg.MaxOpenCaches = 16
	}
	return &Resolver{
		cfg:    cfg,
		opener: opener,
		ll:     list.New(),
		index:  make(map[string]*list.Element),
		statOS: os.Stat,
	}
}

// WorkspaceIDFor derives a stable WorkspaceID from a workspace root path.
func WorkspaceIDFor(root string) types.WorkspaceID {
	h := xxhash.Sum64String(filepath.Clean(root))
	return types.WorkspaceID(int64(h))
}

// ResolveRoot walks path's ancestors (up to MaxParentLookupDepth) looking
// for a marker file. Returns the first directory found, or the nearest
// ancestor directory of path itself when no marker is found.
func (r *Resolver) ResolveRoot(path string) string {
	dir := filepath.Dir(path)
	if info, err := r.statOS(path); err == nil && info.IsDir() {
		dir = path
	}

	candidate := dir
	for depth := 0; depth <= r.cfg.MaxParentLookupDepth; depth++ {
		if r.hasMarker(candidate) {
			return candidate
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			break
		}
		candidate = parent
	}
	return dir
}

func (r *Resolver) hasMarker(dir string) bool {
	for _, marker := range markerFiles {
		full := filepath.Join(dir, marker)
		info, err := r.statOS(full)
		if err != nil {
			continue
		}
		if marker == "Cargo.toml" {
			if !isPackageManifest(full) {
				continue
			}
		}
		if marker == ".git" && !info.IsDir() {
			// A `.git` file (worktree pointer) still counts as a marker.
		}
		return true
	}
	return false
}

// isPackageManifest checks that a Cargo.toml actually declares a
// [package] table, rather than being a bare workspace-only manifest that
// happens to sit above the real crate root.
func isPackageManifest(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return strings.HasSuffix(path, "Cargo.toml") // degrade to existence check
	}
	var doc struct {
		Package map[string]interface{} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return true
	}
	return doc.Package != nil
}

// Open resolves path's workspace root and returns its Handles, opening
// them via the Resolver's Opener on first use and evicting the
// least-recently-used workspace when over capacity.
func (r *Resolver) Open(path string) (string, Handles, error) {
	root := r.ResolveRoot(path)

	r.mu.Lock()
	if el, ok := r.index[root]; ok {
		r.ll.MoveToFront(el)
		h := el.Value.(*entry).handles
		r.mu.Unlock()
		return root, h, nil
	}
	r.mu.Unlock()

	handles, err := r.opener(root)
	if err != nil {
		return root, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.index[root]; ok {
		// Lost a race with another caller opening the same root.
		r.ll.MoveToFront(el)
		handles.Close()
		return root, el.Value.(*entry).handles, nil
	}

	el := r.ll.PushFront(&entry{root: root, handles: handles})
	r.index[root] = el

	for r.ll.Len() > r.cfg.MaxOpenCaches {
		oldest := r.ll.Back()
		if oldest == nil {
			break
		}
		r.ll.Remove(oldest)
		ev := oldest.Value.(*entry)
		delete(r.index, ev.root)
		debug.LogCache("evicting workspace cache for %s (LRU over capacity)", ev.root)
		if cerr := ev.handles.Close(); cerr != nil {
			debug.Printf("error closing evicted workspace cache %s: %v", ev.root, cerr)
		}
	}

	return root, handles, nil
}

// CloseAll closes every open workspace cache and clears the LRU.
func (r *Resolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for el := r.ll.Front(); el != nil; el = el.Next() {
		if err := el.Value.(*entry).handles.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.ll.Init()
	r.index = make(map[string]*list.Element)
	return firstErr
}

// Len reports the number of currently open workspace caches.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ll.Len()
}
