package cachemanager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/lspcache"
	"github.com/standardbeagle/lspcached/internal/store"
	"github.com/standardbeagle/lspcached/internal/types"
)

func testSetup(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "ws.db"), types.WorkspaceID(1))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fv, err := st.UpsertFileVersion("a.go", "d1", 10, 10, "go")
	require.NoError(t, err)
	require.NoError(t, st.StoreSymbols([]store.SymbolState{
		{SymbolUID: "uid1", FileVersionID: fv.ID, Name: "Foo", Language: "go"},
	}))
	require.NoError(t, st.StoreEdges([]store.Edge{
		{SourceUID: "uid1", TargetUID: "uid2", Relation: types.RelationCalls},
	}))

	caches := lspcache.NewManager(config.Cache{MemoryCapacity: 100, TTLSeconds: 60, EvictionInterval: 60}, "")
	t.Cleanup(func() { caches.Close() })

	return New(st, caches, dir), st
}

func TestGetStatsReportsCounts(t *testing.T) {
	m, _ := testSetup(t)

	stats, err := m.GetStats(true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFileVersions)
	assert.Equal(t, 1, stats.TotalSymbols)
	assert.Equal(t, 1, stats.TotalEdges)
	assert.Equal(t, 1, stats.PerLanguage["go"])
}

func TestClearByFilePathRemovesSymbols(t *testing.T) {
	m, st := testSetup(t)

	result, err := m.Clear(ClearFilter{FilePath: "a.go"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAffected)

	_, ok := st.DigestForPath(types.WorkspaceID(1), "a.go")
	assert.False(t, ok)
}

func TestBuildExportAndImportRoundTrip(t *testing.T) {
	m, _ := testSetup(t)

	export, err := m.BuildExport()
	require.NoError(t, err)
	require.Len(t, export.Entries, 1)
	assert.Equal(t, FormatVersion, export.Metadata.FormatVersion)
	assert.Equal(t, "Foo", export.Entries[0].Symbol)
	assert.Equal(t, []string{"uid2"}, export.Entries[0].CallHierarchy)

	dir := t.TempDir()
	dest := filepath.Join(dir, "ws2.db")
	st2, err := store.Open(dest, types.WorkspaceID(2))
	require.NoError(t, err)
	defer st2.Close()

	m2 := New(st2, nil, "")
	result, err := m2.Import(export, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EntriesImported)

	syms, err := st2.FindSymbolByName("Foo")
	require.NoError(t, err)
	require.Len(t, syms, 1)
}

func TestImportRejectsUnknownFormatVersion(t *testing.T) {
	m, _ := testSetup(t)
	bad := ExportFile{Metadata: ExportMetadata{FormatVersion: 99}}
	_, err := m.Import(bad, false)
	assert.Error(t, err)
}

func TestWriteAndReadExportRoundTripsGzip(t *testing.T) {
	m, _ := testSetup(t)
	export, err := m.BuildExport()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "export.json.gz")
	require.NoError(t, WriteExport(path, export, true))

	loaded, err := ReadExport(path)
	require.NoError(t, err)
	assert.Equal(t, export.Metadata.TotalEntries, loaded.Metadata.TotalEntries)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, "Foo", loaded.Entries[0].Symbol)
}
