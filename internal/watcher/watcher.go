// Package watcher polls a workspace for file changes between full detector
// runs and reports them as debounced, batched events. Polling (mtime+size)
// is the authoritative change signal; fsnotify, when enabled, only wakes a
// cycle early so changes surface sooner without becoming the source of truth.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/detector"
	"github.com/standardbeagle/lspcached/internal/types"
)

// EventKind mirrors types.FileChangeKind for events the watcher itself can
// observe without consulting the store (it never detects Move).
type EventKind = types.FileChangeKind

const (
	EventCreate EventKind = types.ChangeCreate
	EventUpdate EventKind = types.ChangeUpdate
	EventDelete EventKind = types.ChangeDelete
)

// Event is one file change observed by a poll cycle.
type Event struct {
	Path  string
	Kind  EventKind
	Mtime int64
	Size  int64
}

// fileState is the per-path tuple the spec's polling cycle compares against.
type fileState struct {
	mtime int64
	size  int64
}

// Watcher polls one workspace root on an interval and emits debounced,
// batched Event slices on Events().
type Watcher struct {
	root   string
	cfg    config.Watcher
	ignore *detector.IgnoreSet

	mu    sync.Mutex
	state map[string]fileState

	events  chan []Event
	wake    chan struct{}
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New builds a Watcher for root. ignore should already include any
// gitignore-derived patterns the router resolved for this workspace.
func New(root string, cfg config.Watcher, ignore *detector.IgnoreSet) *Watcher {
	return &Watcher{
		root:   root,
		cfg:    cfg,
		ignore: ignore,
		state:  make(map[string]fileState),
		events: make(chan []Event, 16),
		wake:   make(chan struct{}, 1),
	}
}

// Events returns the channel batches are delivered on. The receive end is
// meant to be taken exactly once by the consumer.
func (w *Watcher) Events() <-chan []Event {
	return w.events
}

// Start begins the background polling loop. Calling Start twice is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if w.cfg.UseFsnotifyEarlyWake {
		if fsw, err := fsnotify.NewWatcher(); err == nil {
			w.fsw = fsw
			w.wg.Add(1)
			go w.runFsnotifyBridge(ctx)
			w.addFsnotifyWatches()
		} else {
			debug.LogWatch("watcher: fsnotify unavailable, falling back to pure polling: %v", err)
		}
	}

	w.wg.Add(1)
	go w.pollLoop(ctx)
}

// Stop cooperatively stops the polling loop and closes the events channel.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if w.fsw != nil {
		w.fsw.Close()
	}
	close(w.events)
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	interval := time.Duration(w.cfg.PollIntervalMs) * time.Millisecond
	debounce := time.Duration(w.cfg.DebounceMs) * time.Millisecond
	timer := time.NewTimer(interval)
	defer timer.Stop()

	var pending []Event
	var debounceTimer *time.Timer

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := pending
		pending = nil
		select {
		case w.events <- batch:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
			// Early wake: fall through to an out-of-cycle poll below.
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		batch := w.poll()
		timer.Reset(interval)

		if len(batch) == 0 {
			continue
		}
		pending = append(pending, batch...)

		if len(pending) >= w.cfg.BatchSize {
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			flush()
			continue
		}
		if debounceTimer == nil {
			debounceTimer = time.AfterFunc(debounce, flush)
		} else {
			debounceTimer.Reset(debounce)
		}
	}
}

// poll walks the workspace once and diffs against the stored state map,
// implementing §4.3's cycle exactly: new path -> Create, changed mtime/size
// -> Update, vanished path -> Delete.
func (w *Watcher) poll() []Event {
	next := make(map[string]fileState)
	var events []Event
	fileCount := 0

	_ = filepath.WalkDir(w.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if entry.IsDir() {
			if w.ignore.MatchesDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.ignore.Matches(rel) {
			return nil
		}

		fileCount++
		if fileCount > w.cfg.MaxFilesPerWorkspace {
			debug.LogWatch("watcher: %s exceeds max_files_per_workspace (%d), aborting cycle", w.root, w.cfg.MaxFilesPerWorkspace)
			return filepath.SkipAll
		}

		info, statErr := entry.Info()
		if statErr != nil {
			return nil
		}

		st := fileState{mtime: info.ModTime().Unix(), size: info.Size()}
		next[rel] = st
		return nil
	})

	w.mu.Lock()
	prev := w.state
	for rel, st := range next {
		old, existed := prev[rel]
		switch {
		case !existed:
			events = append(events, Event{Path: rel, Kind: EventCreate, Mtime: st.mtime, Size: st.size})
		case old.mtime != st.mtime || old.size != st.size:
			events = append(events, Event{Path: rel, Kind: EventUpdate, Mtime: st.mtime, Size: st.size})
		}
	}
	for rel := range prev {
		if _, stillPresent := next[rel]; !stillPresent {
			events = append(events, Event{Path: rel, Kind: EventDelete})
		}
	}
	w.state = next
	w.mu.Unlock()

	return events
}

func (w *Watcher) runFsnotifyBridge(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.LogWatch("watcher: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) addFsnotifyWatches() {
	_ = filepath.WalkDir(w.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry == nil || !entry.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr == nil && rel != "." && w.ignore.MatchesDir(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			debug.LogWatch("watcher: failed to add fsnotify watch for %s: %v", path, addErr)
		}
		return nil
	})
}
