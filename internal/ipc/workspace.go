package ipc

import (
	"context"
	"path/filepath"

	"github.com/standardbeagle/lspcached/internal/analysis"
	"github.com/standardbeagle/lspcached/internal/cachemanager"
	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/detector"
	"github.com/standardbeagle/lspcached/internal/extractor"
	"github.com/standardbeagle/lspcached/internal/hashutil"
	"github.com/standardbeagle/lspcached/internal/lspcache"
	"github.com/standardbeagle/lspcached/internal/lspclient"
	"github.com/standardbeagle/lspcached/internal/queryhierarchy"
	"github.com/standardbeagle/lspcached/internal/router"
	"github.com/standardbeagle/lspcached/internal/store"
	"github.com/standardbeagle/lspcached/internal/types"
	"github.com/standardbeagle/lspcached/internal/watcher"
)

// workspace bundles every per-workspace-root component the router's
// cache-of-caches keeps alive: the symbol/edge store, the per-operation
// LSP response caches, the query hierarchy sitting over both, the
// incremental analysis engine that feeds them, and the LSP client spawner
// used to fill cache/hierarchy misses. It implements router.Handles.
type workspace struct {
	root      string
	store     *store.Store
	caches    *lspcache.Manager
	hierarchy *queryhierarchy.Hierarchy
	manager   *cachemanager.Manager
	engine    *analysis.Engine
	watcher   *watcher.Watcher
	spawner   lspclient.Spawner
	cancel    context.CancelFunc
}

// dualInvalidator fans a file-change invalidation out to both the LSP
// response caches and the query hierarchy's in-memory tier, so the
// analysis engine only needs to hold one CacheInvalidator.
type dualInvalidator struct {
	caches    *lspcache.Manager
	hierarchy *queryhierarchy.Hierarchy
}

func (d dualInvalidator) InvalidateFile(path string) {
	d.caches.InvalidateFile(path)
	d.hierarchy.InvalidateFile(path)
}

// newOpener builds the router.Opener that constructs a workspace for each
// newly discovered root, per cfg, dispatching extraction to reg and LSP
// fallbacks through spawner.
func newOpener(cfg *config.Config, reg *extractor.Registry, spawner lspclient.Spawner) router.Opener {
	return func(root string) (router.Handles, error) {
		dataDir := cfg.Store.DataDir
		if dataDir == "" {
			dataDir = root + "/.lspcached"
		}

		wsID := router.WorkspaceIDFor(root)
		st, err := store.Open(dataDir+"/symbols.db", wsID)
		if err != nil {
			return nil, err
		}

		caches := lspcache.NewManager(cfg.Cache, dataDir)
		hierarchy := queryhierarchy.New(st)
		hasher := hashutil.NewHasher(hashutil.Algorithm(cfg.Detector.HashAlgorithm), cfg.Detector.MaxFileSize)
		invalidator := dualInvalidator{caches: caches, hierarchy: hierarchy}
		engine := analysis.New(cfg.Analysis, hasher, st, reg, invalidator)

		ignore := detector.NewIgnoreSet(cfg.Detector.IgnoreGlobs)
		fw := watcher.New(root, cfg.Watcher, ignore)

		ctx, cancel := context.WithCancel(context.Background())

		w := &workspace{
			root:      root,
			store:     st,
			caches:    caches,
			hierarchy: hierarchy,
			manager:   cachemanager.New(st, caches, root),
			engine:    engine,
			watcher:   fw,
			spawner:   spawner,
			cancel:    cancel,
		}

		go func() {
			if err := engine.Start(ctx); err != nil {
				debug.Printf("analysis engine for %s stopped: %v", root, err)
			}
		}()
		fw.Start(ctx)
		go w.bridgeWatcherEvents(ctx)

		return w, nil
	}
}

// bridgeWatcherEvents feeds the live watcher's debounced batches into the
// analysis engine, per spec.md §4.3's polling-drives-incremental-analysis
// flow: creates and updates are (re)analyzed, deletes are applied to the
// store directly since there is no file left to read.
func (w *workspace) bridgeWatcherEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.watcher.Events():
			if !ok {
				return
			}
			for _, ev := range batch {
				absPath := filepath.Join(w.root, ev.Path)

				if ev.Kind == types.ChangeDelete {
					if err := w.store.DeletePath(absPath); err != nil {
						debug.Printf("delete %s from store: %v", absPath, err)
						continue
					}
					w.caches.InvalidateFile(absPath)
					w.hierarchy.InvalidateFile(absPath)
					continue
				}

				if err := w.engine.Enqueue(analysis.QueueItem{
					Path:     absPath,
					Language: detector.LanguageForExt(filepath.Ext(ev.Path)),
					TaskType: types.TaskIncrementalRefresh,
					Priority: types.PriorityMedium,
				}); err != nil {
					debug.Printf("enqueue analysis for %s: %v", absPath, err)
				}
			}
		}
	}
}

// Close stops the workspace's analysis workers and closes its store and
// cache tiers. Per spec.md §7's shutdown handling, in-flight analysis
// tasks are given no extra grace period here beyond Engine.Stop's own
// context cancellation — the IPC layer's Shutdown handler is where a
// caller-visible grace period, if any, belongs.
func (w *workspace) Close() error {
	w.watcher.Stop()
	w.cancel()
	w.engine.Stop()
	cacheErr := w.caches.Close()
	storeErr := w.store.Close()
	if cacheErr != nil {
		return cacheErr
	}
	return storeErr
}
