// Package config defines the daemon's runtime configuration and loads it
// from a workspace-local KDL file, falling back to built-in defaults when
// no file is present.
package config

import (
	"fmt"

	"github.com/standardbeagle/lspcached/internal/types"
)

// Config is the fully-resolved daemon configuration for one workspace.
type Config struct {
	Version   int
	Project   Project
	Cache     Cache
	Detector  Detector
	Watcher   Watcher
	Analysis  Analysis
	Store     Store
	Ipc       Ipc
	Router    Router
}

type Project struct {
	Root string
	Name string
}

// Cache controls the per-operation LSP response cache tiers (§4.5).
type Cache struct {
	MemoryCapacity   int    // max entries held in the in-process tier per operation
	TTLSeconds       int    // entry lifetime before forced recomputation
	EvictionInterval int    // seconds between background eviction sweeps
	EvictionPolicy   string // "lru", "lfu", or "lru_lfu" (hybrid, default)
	DiskEnabled      bool   // persist evicted entries to the bbolt-backed disk tier
}

// Detector controls the file-change detector (§4.2).
type Detector struct {
	IgnoreGlobs        []string
	MaxDepth           int
	MaxFileSize        int64
	RespectGitignore   bool
	HashAlgorithm      string // "blake3" or "sha256"
	AllowedExtensions  []string
}

// Watcher controls the polling file watcher (§4.3).
type Watcher struct {
	PollIntervalMs      int
	DebounceMs          int
	BatchSize           int
	MaxFilesPerWorkspace int
	UseFsnotifyEarlyWake bool
}

// Analysis controls the incremental analysis engine's worker pool (§4.8).
type Analysis struct {
	WorkerCount       int
	QueueSize         int
	RetryLimit        int
	TaskTimeoutSec    int
	BackpressureMax   int
	MemoryBudgetBytes int64 // 0 disables the memory-pressure guard
}

// Store controls the symbol/edge store's on-disk layout (§4.4).
type Store struct {
	DataDir            string
	FlushIntervalMs     int
	CompactOnStartup    bool
}

// Ipc controls the client-facing transport (§6).
type Ipc struct {
	SocketPath string
	Transport  string // "stdio" or "unix"
}

// Router controls workspace-root resolution and the cache-of-caches (§4.6).
type Router struct {
	MaxParentLookupDepth int
	MaxOpenCaches        int
}

// Default returns the built-in configuration, rooted at root.
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Cache: Cache{
			MemoryCapacity:   10000,
			TTLSeconds:       300,
			EvictionInterval: 60,
			EvictionPolicy:   "lru_lfu",
			DiskEnabled:      true,
		},
		Detector: Detector{
			IgnoreGlobs:       defaultIgnoreGlobs(),
			MaxDepth:          types.DefaultMaxDepth,
			MaxFileSize:       types.DefaultMaxFileSize,
			RespectGitignore:  true,
			HashAlgorithm:     "blake3",
			AllowedExtensions: nil, // nil means "no allowlist filter"
		},
		Watcher: Watcher{
			PollIntervalMs:       types.DefaultPollIntervalMs,
			DebounceMs:           250,
			BatchSize:            200,
			MaxFilesPerWorkspace: types.DefaultMaxFilesPerWorkspace,
			UseFsnotifyEarlyWake: true,
		},
		Analysis: Analysis{
			WorkerCount:       4,
			QueueSize:         1000,
			RetryLimit:        3,
			TaskTimeoutSec:    types.DefaultExtractionTimeoutMs / 1000,
			BackpressureMax:   5000,
			MemoryBudgetBytes: 512 * 1024 * 1024,
		},
		Store: Store{
			DataDir:          "",
			FlushIntervalMs:  1000,
			CompactOnStartup: false,
		},
		Ipc: Ipc{
			Transport: "stdio",
		},
		Router: Router{
			MaxParentLookupDepth: 3,
			MaxOpenCaches:        16,
		},
	}
}

func defaultIgnoreGlobs() []string {
	return []string{
		"**/.git/**",
		"**/node_modules/**",
		"**/target/**",
		"**/dist/**",
		"**/build/**",
		"**/.venv/**",
		"**/vendor/**",
		"**/__pycache__/**",
	}
}

// Validate checks constraints the rest of the daemon relies on holding.
func (c *Config) Validate() error {
	if c.Cache.MemoryCapacity <= 0 {
		return fmt.Errorf("cache.memory_capacity must be positive, got %d", c.Cache.MemoryCapacity)
	}
	if c.Detector.MaxFileSize <= 0 {
		return fmt.Errorf("detector.max_file_size must be positive, got %d", c.Detector.MaxFileSize)
	}
	if c.Watcher.PollIntervalMs <= 0 {
		return fmt.Errorf("watcher.poll_interval_ms must be positive, got %d", c.Watcher.PollIntervalMs)
	}
	if c.Analysis.WorkerCount <= 0 {
		return fmt.Errorf("analysis.worker_count must be positive, got %d", c.Analysis.WorkerCount)
	}
	switch c.Cache.EvictionPolicy {
	case "lru", "lfu", "lru_lfu":
	default:
		return fmt.Errorf("cache.eviction_policy must be lru, lfu, or lru_lfu, got %q", c.Cache.EvictionPolicy)
	}
	switch c.Detector.HashAlgorithm {
	case "blake3", "sha256":
	default:
		return fmt.Errorf("detector.hash_algorithm must be blake3 or sha256, got %q", c.Detector.HashAlgorithm)
	}
	return nil
}
