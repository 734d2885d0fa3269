// Package queryhierarchy implements the memory -> disk -> LSP-fallback
// lookup order of spec.md §4.7, always persisting the LSP's answer (as
// positive edges or a None_X edge) before returning it.
package queryhierarchy

import (
	"context"
	"sync"

	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/store"
	"github.com/standardbeagle/lspcached/internal/types"
)

// Fallback invokes the LSP client for uid/key and returns the edges it
// found. A nil or empty slice is a legitimate "definitively nothing"
// answer, persisted downstream as a None_X edge rather than left unknown.
type Fallback func(ctx context.Context, uid types.SymbolUID, key types.NodeKey) ([]store.Edge, error)

// relationSpec binds an Operation to the store relation pair that backs
// its disk tier.
type relationSpec struct {
	positive types.EdgeRelation
	none     types.EdgeRelation
}

var relationsByOp = map[types.Operation]relationSpec{
	types.OpCallHierarchy:   {types.RelationCalls, types.RelationNoneCallHier},
	types.OpReferences:      {types.RelationReferences, types.RelationNoneReferences},
	types.OpDefinition:      {types.RelationDefines, types.RelationNoneDefs},
	types.OpImplementations: {types.RelationImplements, types.RelationNoneImpls},
}

type memEntry struct {
	edges []store.Edge
	known bool
}

// Counters tallies hits and misses at each of the three lookup levels.
type Counters struct {
	MemoryHits, MemoryMisses int64
	DiskHits, DiskMisses     int64
	LspCalls                 int64
}

// Hierarchy is the unified lookup for one workspace's symbol/edge store.
type Hierarchy struct {
	store *store.Store

	mu      sync.Mutex
	memory  map[string]memEntry
	counts  Counters
}

// New builds a Hierarchy backed by s.
func New(s *store.Store) *Hierarchy {
	return &Hierarchy{
		store:  s,
		memory: make(map[string]memEntry),
	}
}

// Query resolves op for uid/key, trying memory, then the disk store, then
// falling back to fn. Every outcome short of a memory hit is persisted
// into memory for subsequent calls; an LSP fallback is also persisted to
// disk (positive edges, or a None_X edge when fn returns no edges).
func (h *Hierarchy) Query(ctx context.Context, op types.Operation, uid types.SymbolUID, key types.NodeKey, fn Fallback) ([]store.Edge, error) {
	spec, ok := relationsByOp[op]
	if !ok {
		return nil, errUnsupportedOperation(op)
	}

	cacheKey := key.String() + "\x00" + string(op)

	h.mu.Lock()
	if entry, found := h.memory[cacheKey]; found {
		h.counts.MemoryHits++
		h.mu.Unlock()
		return entry.edges, nil
	}
	h.counts.MemoryMisses++
	h.mu.Unlock()

	result, err := h.store.QueryRelation(uid, spec.positive, spec.none)
	if err != nil {
		return nil, err
	}
	if result.Known {
		h.recordDiskHit(cacheKey, result.Edges)
		return result.Edges, nil
	}
	h.recordDiskMiss()

	h.mu.Lock()
	h.counts.LspCalls++
	h.mu.Unlock()

	edges, err := fn(ctx, uid, key)
	if err != nil {
		return nil, err
	}

	if err := h.persist(uid, spec, edges); err != nil {
		debug.LogCache("queryhierarchy: failed to persist fallback result for %s: %v", uid, err)
	}

	h.recordMemory(cacheKey, edges)
	return edges, nil
}

func (h *Hierarchy) persist(uid types.SymbolUID, spec relationSpec, edges []store.Edge) error {
	if len(edges) == 0 {
		return h.store.StoreEdges([]store.Edge{{
			SourceUID: uid,
			TargetUID: types.NoneTarget,
			Relation:  spec.none,
			Confidence: 1.0,
		}})
	}
	return h.store.StoreEdges(edges)
}

func (h *Hierarchy) recordDiskHit(cacheKey string, edges []store.Edge) {
	h.mu.Lock()
	h.counts.DiskHits++
	h.memory[cacheKey] = memEntry{edges: edges, known: true}
	h.mu.Unlock()
}

func (h *Hierarchy) recordDiskMiss() {
	h.mu.Lock()
	h.counts.DiskMisses++
	h.mu.Unlock()
}

func (h *Hierarchy) recordMemory(cacheKey string, edges []store.Edge) {
	h.mu.Lock()
	h.memory[cacheKey] = memEntry{edges: edges, known: true}
	h.mu.Unlock()
}

// InvalidateFile drops every memory entry whose NodeKey references path.
// The disk tier is invalidated independently by the caller via the
// symbol/edge store's file-version supersession (§4.4).
func (h *Hierarchy) InvalidateFile(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := range h.memory {
		if containsFile(k, path) {
			delete(h.memory, k)
		}
	}
}

func containsFile(cacheKey, path string) bool {
	// cacheKey is "symbol\x00file\x00md5\x00op"; a direct substring check
	// on the null-delimited file segment is sufficient since paths don't
	// contain NUL bytes.
	return len(path) > 0 && indexOf(cacheKey, path) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// Stats returns a snapshot of the hit/miss counters.
func (h *Hierarchy) Stats() Counters {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts
}

type unsupportedOperationError struct {
	op types.Operation
}

func (e unsupportedOperationError) Error() string {
	return "queryhierarchy: unsupported operation " + string(e.op)
}

func errUnsupportedOperation(op types.Operation) error {
	return unsupportedOperationError{op: op}
}
