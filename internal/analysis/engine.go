// Package analysis implements the Incremental Analysis Engine: a priority
// queue feeding a bounded worker pool that extracts symbols and
// relationships from changed files, persists them, and invalidates the
// affected LSP response caches, per spec.md §4.8.
package analysis

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/extractor"
	"github.com/standardbeagle/lspcached/internal/hashutil"
	"github.com/standardbeagle/lspcached/internal/store"
	"github.com/standardbeagle/lspcached/internal/symbolid"
	"github.com/standardbeagle/lspcached/internal/types"
)

// TaskState is one node of a QueueItem's lifecycle state machine:
// Queued -> Running -> {Success | Failed | Cancelled}.
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskSuccess   TaskState = "success"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// TaskStatus is the latest known state of one path's analysis task.
type TaskStatus struct {
	Path      string
	State     TaskState
	Attempt   int
	LastError error
	UpdatedAt time.Time
}

// ProgressEvent is emitted as tasks move through the state machine.
type ProgressEvent struct {
	Status TaskStatus
}

// CacheInvalidator is satisfied by every cache that exposes file-scoped
// invalidation: internal/lspcache's Manager and internal/queryhierarchy's
// Hierarchy both implement it with no adapter needed.
type CacheInvalidator interface {
	InvalidateFile(path string)
}

// errBackpressure is returned by Enqueue when the queue is at capacity.
type errBackpressure struct{ size, max int }

func (e errBackpressure) Error() string {
	return fmt.Sprintf("analysis queue full: %d/%d items", e.size, e.max)
}

// Engine runs the priority queue and worker pool.
type Engine struct {
	cfg         config.Analysis
	hasher      *hashutil.Hasher
	store       *store.Store
	extractor   extractor.Extractor
	invalidator CacheInvalidator

	mu       sync.Mutex
	cond     *sync.Cond
	queue    priorityQueue
	seq      int64
	stopped  bool
	statuses map[string]*TaskStatus

	progress chan ProgressEvent
}

// New builds an Engine. invalidator may be nil when no cache needs
// invalidation (e.g. a one-shot batch analysis run).
func New(cfg config.Analysis, hasher *hashutil.Hasher, st *store.Store, ext extractor.Extractor, invalidator CacheInvalidator) *Engine {
	e := &Engine{
		cfg:         cfg,
		hasher:      hasher,
		store:       st,
		extractor:   ext,
		invalidator: invalidator,
		statuses:    make(map[string]*TaskStatus),
		progress:    make(chan ProgressEvent, 256),
	}
	e.cond = sync.NewCond(&e.mu)
	heap.Init(&e.queue)
	return e
}

// Progress exposes state-machine transitions for observers (e.g. the IPC
// layer's progress notifications).
func (e *Engine) Progress() <-chan ProgressEvent {
	return e.progress
}

// Enqueue adds item to the priority queue, rejecting it once the queue
// holds BackpressureMax items.
func (e *Engine) Enqueue(item QueueItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return fmt.Errorf("analysis engine is stopped")
	}
	if e.cfg.BackpressureMax > 0 && e.queue.Len() >= e.cfg.BackpressureMax {
		return errBackpressure{size: e.queue.Len(), max: e.cfg.BackpressureMax}
	}

	item.EnqueuedAt = time.Now()
	item.seq = e.seq
	e.seq++
	heap.Push(&e.queue, &item)

	e.statuses[item.Path] = &TaskStatus{Path: item.Path, State: TaskQueued, UpdatedAt: item.EnqueuedAt}
	e.emit(*e.statuses[item.Path])

	e.cond.Signal()
	return nil
}

// Status returns the last known status of path's analysis task.
func (e *Engine) Status(path string) (TaskStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.statuses[path]
	if !ok {
		return TaskStatus{}, false
	}
	return *st, true
}

// QueueLen reports the number of items currently waiting (not running).
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// Start runs WorkerCount workers until ctx is cancelled or Stop is called;
// it blocks until every worker has exited (running tasks drain to
// completion or their per-task timeout).
func (e *Engine) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.WorkerCount; i++ {
		g.Go(func() error {
			e.workerLoop(gctx)
			return nil
		})
	}

	go func() {
		<-ctx.Done()
		e.Stop()
	}()

	return g.Wait()
}

// Stop prevents further dequeues and wakes any worker blocked waiting for
// work; already-running tasks are left to finish or time out.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.cond.Broadcast()
}

func (e *Engine) workerLoop(ctx context.Context) {
	for {
		item, ok := e.dequeue()
		if !ok {
			return
		}
		if e.memoryUnderPressure() {
			// Don't start new work until pressure subsides; requeue at the
			// back of its priority tier rather than drop it.
			debug.LogAnalysis("memory pressure guard: deferring %s", item.Path)
			time.Sleep(50 * time.Millisecond)
			e.requeue(item)
			continue
		}
		e.runTask(ctx, item)
	}
}

// dequeue blocks until an item is available or the engine stops.
func (e *Engine) dequeue() (*QueueItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.queue.Len() == 0 && !e.stopped {
		e.cond.Wait()
	}
	if e.queue.Len() == 0 {
		return nil, false
	}
	item := heap.Pop(&e.queue).(*QueueItem)
	return item, true
}

func (e *Engine) requeue(item *QueueItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	heap.Push(&e.queue, item)
	e.cond.Signal()
}

func (e *Engine) memoryUnderPressure() bool {
	if e.cfg.MemoryBudgetBytes <= 0 {
		return false
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	threshold := uint64(float64(e.cfg.MemoryBudgetBytes) * 0.8)
	return stats.Alloc > threshold
}

func (e *Engine) runTask(ctx context.Context, item *QueueItem) {
	e.setState(item.Path, TaskRunning, 0, nil)

	timeout := time.Duration(e.cfg.TaskTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var lastErr error
	retryLimit := e.cfg.RetryLimit
	if retryLimit < 0 {
		retryLimit = 0
	}

	for attempt := 0; attempt <= retryLimit; attempt++ {
		taskCtx, cancel := context.WithTimeout(ctx, timeout)
		err := e.process(taskCtx, item)
		cancel()

		if err == nil {
			e.setState(item.Path, TaskSuccess, attempt, nil)
			return
		}
		if ctx.Err() != nil {
			e.setState(item.Path, TaskCancelled, attempt, ctx.Err())
			return
		}
		lastErr = err
		debug.LogAnalysis("analysis task %s attempt %d failed: %v", item.Path, attempt, err)
	}

	e.setState(item.Path, TaskFailed, retryLimit, lastErr)
}

// process runs the per-task pipeline: read content, digest, extract,
// persist, invalidate. Steps follow spec.md §4.8 in order.
func (e *Engine) process(ctx context.Context, item *QueueItem) error {
	content, err := os.ReadFile(item.Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", item.Path, err)
	}

	if hashutil.IsBinaryContent(content) {
		return fmt.Errorf("refusing to analyze binary file %s", item.Path)
	}

	digest := e.hasher.Hash(content)
	info, err := os.Stat(item.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", item.Path, err)
	}

	language := item.Language
	fv, err := e.store.UpsertFileVersion(item.Path, digest, info.Size(), info.ModTime().UnixMilli(), language)
	if err != nil {
		return fmt.Errorf("upsert file version for %s: %w", item.Path, err)
	}

	if e.extractor == nil || !e.extractor.Supports(language) {
		// Nothing more to do: the file version is recorded, but no
		// language extractor is registered to produce symbols/edges.
		e.invalidate(item.Path)
		return nil
	}

	result, err := e.extractor.Extract(ctx, item.Path, language, content)
	if err != nil {
		return fmt.Errorf("extract %s: %w", item.Path, err)
	}

	states, uids := symbolStatesFromExtraction(result, fv.ID)
	if err := e.store.StoreSymbols(states); err != nil {
		return fmt.Errorf("store symbols for %s: %w", item.Path, err)
	}

	edges := edgesFromExtraction(result, uids, item.Path, fv.ID)
	containment := extractor.ContainmentEdges(result.Symbols)
	edges = append(edges, edgesFromRelationships(containment, uids, item.Path, fv.ID)...)

	if err := e.store.StoreEdges(edges); err != nil {
		return fmt.Errorf("store edges for %s: %w", item.Path, err)
	}

	e.invalidate(item.Path)
	return nil
}

func (e *Engine) invalidate(path string) {
	if e.invalidator != nil {
		e.invalidator.InvalidateFile(path)
	}
}

func (e *Engine) setState(path string, state TaskState, attempt int, err error) {
	e.mu.Lock()
	st, ok := e.statuses[path]
	if !ok {
		st = &TaskStatus{Path: path}
		e.statuses[path] = st
	}
	st.State = state
	st.Attempt = attempt
	st.LastError = err
	st.UpdatedAt = time.Now()
	snapshot := *st
	e.mu.Unlock()

	e.emit(snapshot)
}

func (e *Engine) emit(status TaskStatus) {
	select {
	case e.progress <- ProgressEvent{Status: status}:
	default:
		// Progress channel is a best-effort observability stream; a full
		// buffer means no one is currently listening, drop rather than block.
	}
}

// symbolStatesFromExtraction computes each extracted symbol's UID and
// builds the store.SymbolState rows to persist, returning a parallel
// slice of UIDs indexed the same way as result.Symbols for edge lookups.
func symbolStatesFromExtraction(result extractor.Result, fileVersionID uint64) ([]store.SymbolState, []types.SymbolUID) {
	uids := make([]types.SymbolUID, len(result.Symbols))
	states := make([]store.SymbolState, len(result.Symbols))

	for i, sym := range result.Symbols {
		containment := containmentNames(result.Symbols, sym.ParentIndex)
		uid := symbolid.ComputeFromFQN(result.Language, sym.FQN, sym.Signature, sym.Kind, containment)
		uids[i] = uid
		states[i] = store.SymbolState{
			SymbolUID:     uid,
			FileVersionID: fileVersionID,
			Language:      result.Language,
			Name:          sym.Name,
			FQN:           sym.FQN,
			Kind:          sym.Kind,
			Signature:     sym.Signature,
			Visibility:    sym.Visibility,
			StartLine:     sym.StartLine,
			StartChar:     sym.StartChar,
			EndLine:       sym.EndLine,
			EndChar:       sym.EndChar,
			IsDefinition:  sym.IsDefinition,
			Doc:           sym.Doc,
		}
	}
	return states, uids
}

func containmentNames(symbols []extractor.Symbol, parentIndex int) []string {
	var chain []string
	for parentIndex >= 0 && parentIndex < len(symbols) {
		chain = append([]string{symbols[parentIndex].Name}, chain...)
		parentIndex = symbols[parentIndex].ParentIndex
	}
	return chain
}

func edgesFromExtraction(result extractor.Result, uids []types.SymbolUID, path string, fileVersionID uint64) []store.Edge {
	return edgesFromRelationships(result.Relationships, uids, path, fileVersionID)
}

func edgesFromRelationships(rels []extractor.Relationship, uids []types.SymbolUID, path string, fileVersionID uint64) []store.Edge {
	edges := make([]store.Edge, 0, len(rels))
	for _, rel := range rels {
		if rel.SourceIndex < 0 || rel.SourceIndex >= len(uids) || rel.TargetIndex < 0 || rel.TargetIndex >= len(uids) {
			continue
		}
		edges = append(edges, store.Edge{
			Relation:      rel.Relation,
			SourceUID:     uids[rel.SourceIndex],
			TargetUID:     uids[rel.TargetIndex],
			FilePath:      path,
			StartLine:     rel.Line,
			StartChar:     rel.Column,
			Confidence:    rel.Confidence,
			FileVersionID: fileVersionID,
		})
	}
	return edges
}
