package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lspcached/internal/config"
)

type fakeHandles struct {
	closed *bool
}

func (f *fakeHandles) Close() error {
	*f.closed = true
	return nil
}

func TestResolveRootFindsGoMod(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0644))
	sub := filepath.Join(dir, "internal", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0755))
	file := filepath.Join(sub, "thing.go")
	require.NoError(t, os.WriteFile(file, []byte("package pkg\n"), 0644))

	r := New(config.Router{MaxParentLookupDepth: 5, MaxOpenCaches: 4}, nil)
	root := r.ResolveRoot(file)
	assert.Equal(t, dir, root)
}

func TestResolveRootFallsBackToFileDirWhenNoMarker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "loose.go")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0644))

	r := New(config.Router{MaxParentLookupDepth: 1, MaxOpenCaches: 4}, nil)
	assert.Equal(t, dir, r.ResolveRoot(file))
}

func TestResolveRootRequiresPackageTableInCargoToml(t *testing.T) {
	dir := t.TempDir()
	// a workspace-only Cargo.toml with no [package] table should not match
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[workspace]\nmembers = [\"a\"]\n"), 0644))
	sub := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "Cargo.toml"), []byte("[package]\nname = \"a\"\n"), 0644))
	file := filepath.Join(sub, "main.rs")
	require.NoError(t, os.WriteFile(file, []byte("fn main() {}"), 0644))

	r := New(config.Router{MaxParentLookupDepth: 5, MaxOpenCaches: 4}, nil)
	assert.Equal(t, sub, r.ResolveRoot(file))
}

func TestOpenReusesHandlesForSameRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0644))
	file := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0644))

	opens := 0
	opener := func(root string) (Handles, error) {
		opens++
		closed := false
		return &fakeHandles{closed: &closed}, nil
	}
	r := New(config.Router{MaxParentLookupDepth: 5, MaxOpenCaches: 4}, opener)

	_, h1, err := r.Open(file)
	require.NoError(t, err)
	_, h2, err := r.Open(file)
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, opens)
}

func TestOpenEvictsLeastRecentlyUsedOverCapacity(t *testing.T) {
	base := t.TempDir()
	makeWorkspace := func(name string) string {
		dir := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module "+name+"\n"), 0644))
		file := filepath.Join(dir, "a.go")
		require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0644))
		return file
	}

	var closedFlags []*bool
	opener := func(root string) (Handles, error) {
		closed := false
		closedFlags = append(closedFlags, &closed)
		return &fakeHandles{closed: &closed}, nil
	}

	r := New(config.Router{MaxParentLookupDepth: 5, MaxOpenCaches: 2}, opener)

	fileA := makeWorkspace("a")
	fileB := makeWorkspace("b")
	fileC := makeWorkspace("c")

	_, _, err := r.Open(fileA)
	require.NoError(t, err)
	_, _, err = r.Open(fileB)
	require.NoError(t, err)
	_, _, err = r.Open(fileC)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.True(t, *closedFlags[0], "workspace a should have been evicted and closed")
	assert.False(t, *closedFlags[1])
	assert.False(t, *closedFlags[2])
}

func TestWorkspaceIDForIsDeterministic(t *testing.T) {
	a := WorkspaceIDFor("/tmp/foo")
	b := WorkspaceIDFor("/tmp/foo")
	c := WorkspaceIDFor("/tmp/bar")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
