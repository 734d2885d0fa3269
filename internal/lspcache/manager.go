package lspcache

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/types"
)

// Manager owns one Cache per operation for a single workspace, and fans
// out file-invalidation and eviction across all of them.
type Manager struct {
	cfg       config.Cache
	cacheDir  string
	mu        sync.Mutex
	caches    map[types.Operation]*Cache
}

// NewManager builds a Manager that lazily creates one Cache per operation
// the first time it is requested. cacheDir is the directory holding each
// operation's bbolt file (e.g. cacheDir/Definition.db); empty disables the
// disk tier regardless of cfg.DiskEnabled.
func NewManager(cfg config.Cache, cacheDir string) *Manager {
	return &Manager{
		cfg:      cfg,
		cacheDir: cacheDir,
		caches:   make(map[types.Operation]*Cache),
	}
}

// For returns the cache for op, creating it on first use.
func (m *Manager) For(op types.Operation) (*Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[op]; ok {
		return c, nil
	}

	var dbPath string
	if m.cacheDir != "" {
		dbPath = filepath.Join(m.cacheDir, fmt.Sprintf("%s.db", op))
	}

	c, err := New(op, m.cfg, dbPath)
	if err != nil {
		return nil, err
	}
	m.caches[op] = c
	return c, nil
}

// InvalidateFile fans a file change out to every operation cache that has
// been created so far.
func (m *Manager) InvalidateFile(path string) {
	m.mu.Lock()
	caches := make([]*Cache, 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.Unlock()

	for _, c := range caches {
		c.InvalidateFile(path)
	}
}

// Stats reports per-operation statistics for every cache created so far.
func (m *Manager) Stats() map[types.Operation]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[types.Operation]Stats, len(m.caches))
	for op, c := range m.caches {
		out[op] = c.Stats()
	}
	return out
}

// Close closes every cache's disk tier.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, c := range m.caches {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
