package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("/workspace")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "lru_lfu", cfg.Cache.EvictionPolicy)
	assert.Equal(t, "blake3", cfg.Detector.HashAlgorithm)
	assert.True(t, cfg.Watcher.UseFsnotifyEarlyWake)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Project.Root)
	assert.Equal(t, Default(dir).Cache, cfg.Cache)
}

func TestLoadOverlaysKDL(t *testing.T) {
	dir := t.TempDir()
	content := `
project {
    name "demo"
}
cache {
    memory_capacity 500
    ttl_seconds 120
    eviction_policy "lfu"
}
detector {
    max_depth 5
    max_file_size "2MB"
    ignore "**/.git/**" "**/vendor/**"
}
watcher {
    poll_interval_ms 1000
    fsnotify_early_wake false
}
analysis {
    worker_count 8
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, 500, cfg.Cache.MemoryCapacity)
	assert.Equal(t, 120, cfg.Cache.TTLSeconds)
	assert.Equal(t, "lfu", cfg.Cache.EvictionPolicy)
	assert.Equal(t, 5, cfg.Detector.MaxDepth)
	assert.EqualValues(t, 2*1024*1024, cfg.Detector.MaxFileSize)
	assert.Equal(t, []string{"**/.git/**", "**/vendor/**"}, cfg.Detector.IgnoreGlobs)
	assert.Equal(t, 1000, cfg.Watcher.PollIntervalMs)
	assert.False(t, cfg.Watcher.UseFsnotifyEarlyWake)
	assert.Equal(t, 8, cfg.Analysis.WorkerCount)
}

func TestValidateRejectsBadEvictionPolicy(t *testing.T) {
	cfg := Default("/workspace")
	cfg.Cache.EvictionPolicy = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveWorkerCount(t *testing.T) {
	cfg := Default("/workspace")
	cfg.Analysis.WorkerCount = 0
	assert.Error(t, cfg.Validate())
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"10":    10,
		"10B":   10,
		"10KB":  10 * 1024,
		"10MB":  10 * 1024 * 1024,
		"1GB":   1024 * 1024 * 1024,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
