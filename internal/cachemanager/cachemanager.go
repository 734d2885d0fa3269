// Package cachemanager is the admin surface over the persistent symbol/
// edge store and the in-memory LSP response caches, per spec.md §4.9:
// statistics, filtered clearing, export/import, and compaction.
package cachemanager

import (
	"context"
	"fmt"
	"time"

	"github.com/standardbeagle/lspcached/internal/git"
	"github.com/standardbeagle/lspcached/internal/lspcache"
	"github.com/standardbeagle/lspcached/internal/store"
	"github.com/standardbeagle/lspcached/internal/types"
)

// gitHotSpotParams bounds how far back and how wide git_stats looks;
// spec.md leaves the window unspecified, so we follow the frequency
// analyzer's own defaults (30 days, file granularity).
var gitHotSpotParams = git.ChangeFrequencyParams{
	TimeWindow:  string(git.Window30Days),
	Granularity: string(git.GranularityFile),
	Focus:       []string{string(git.FocusHotspots)},
	MinChanges:  2,
	TopN:        20,
}

// AgeBucket labels are fixed per spec.md §4.9.
const (
	AgeUnderHour  = "<1h"
	AgeUnderDay   = "<1d"
	AgeUnderWeek  = "<1w"
	AgeUnderMonth = "<1mo"
	AgeOlder      = "older"
)

// Statistics is the result of get_stats.
type Statistics struct {
	TotalFileVersions int
	TotalSymbols      int
	TotalEdges        int
	OnDiskBytes       int64

	PerLanguage map[string]int // only populated when Detailed

	AgeBuckets map[string]int // file-version counts bucketed by mtime age

	CacheStats map[types.Operation]lspcache.Stats

	GitHotSpots []git.FileChangeFrequency `json:"git_hot_spots,omitempty"`
}

// Manager is the cache manager admin surface for one workspace.
type Manager struct {
	store  *store.Store
	caches *lspcache.Manager
	root   string
	now    func() time.Time
}

// New builds a Manager over store and caches. caches may be nil when only
// store-level operations are needed (e.g. a one-shot export tool). root is
// the workspace root, used only to locate the git repository for
// git_stats; an empty root simply disables that feature.
func New(st *store.Store, caches *lspcache.Manager, root string) *Manager {
	return &Manager{store: st, caches: caches, root: root, now: time.Now}
}

// GetStats implements get_stats(detailed, git_stats). When gitStats is set
// and the workspace root is inside a git repository, the result includes
// recent hot-spot file-change frequency alongside the store's own counts.
func (m *Manager) GetStats(detailed bool, gitStats bool) (Statistics, error) {
	fvs, err := m.store.AllFileVersions()
	if err != nil {
		return Statistics{}, err
	}
	syms, err := m.store.ListAllSymbols()
	if err != nil {
		return Statistics{}, err
	}
	storeStats, err := m.store.Stats()
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalFileVersions: storeStats.FileVersions,
		TotalSymbols:      storeStats.Symbols,
		TotalEdges:        storeStats.Edges,
		OnDiskBytes:       storeStats.OnDiskBytes,
		AgeBuckets:        m.ageBuckets(fvs),
	}

	if detailed {
		stats.PerLanguage = perLanguageCounts(syms)
	}

	if m.caches != nil {
		stats.CacheStats = m.caches.Stats()
	}

	if gitStats && m.root != "" {
		if hotSpots, err := m.gitHotSpots(); err == nil {
			stats.GitHotSpots = hotSpots
		}
		// A non-git root, or any git failure, just omits GitHotSpots —
		// git_stats is a best-effort enrichment, not a required field.
	}

	return stats, nil
}

func (m *Manager) gitHotSpots() ([]git.FileChangeFrequency, error) {
	provider, err := git.NewProvider(m.root)
	if err != nil {
		return nil, err
	}
	if !provider.IsGitRepo() {
		return nil, fmt.Errorf("cachemanager: %s is not a git repository", m.root)
	}
	analyzer := git.NewFrequencyAnalyzer(provider)
	report, err := analyzer.Analyze(context.Background(), gitHotSpotParams)
	if err != nil {
		return nil, err
	}
	return report.Hotspots, nil
}

func (m *Manager) ageBuckets(fvs []store.FileVersion) map[string]int {
	buckets := map[string]int{AgeUnderHour: 0, AgeUnderDay: 0, AgeUnderWeek: 0, AgeUnderMonth: 0, AgeOlder: 0}
	now := m.now()
	for _, fv := range fvs {
		age := now.Sub(time.UnixMilli(fv.Mtime))
		switch {
		case age < time.Hour:
			buckets[AgeUnderHour]++
		case age < 24*time.Hour:
			buckets[AgeUnderDay]++
		case age < 7*24*time.Hour:
			buckets[AgeUnderWeek]++
		case age < 30*24*time.Hour:
			buckets[AgeUnderMonth]++
		default:
			buckets[AgeOlder]++
		}
	}
	return buckets
}

func perLanguageCounts(syms []store.SymbolState) map[string]int {
	out := make(map[string]int)
	for _, s := range syms {
		out[s.Language]++
	}
	return out
}

// ClearFilter selects which entries Clear removes. Exactly one of the
// fields should be set; All takes precedence if set.
type ClearFilter struct {
	All          bool
	OlderThan    time.Duration
	FilePath     string
}

// ClearResult reports what Clear actually did.
type ClearResult struct {
	EntriesRemoved int
	FilesAffected  int
	DurationMs     int64
}

// Clear removes entries matching filter from the LSP response caches (the
// symbol/edge store itself is cleared only for FilePath, via DeletePath;
// All/OlderThan apply to the cache tiers, since the store's own content is
// keyed by current file state rather than an independently prunable log).
func (m *Manager) Clear(filter ClearFilter) (ClearResult, error) {
	start := m.now()
	result := ClearResult{}

	switch {
	case filter.FilePath != "":
		if err := m.store.DeletePath(filter.FilePath); err != nil {
			return ClearResult{}, err
		}
		if m.caches != nil {
			m.caches.InvalidateFile(filter.FilePath)
		}
		result.FilesAffected = 1
		result.EntriesRemoved = 1

	case filter.All:
		if m.caches != nil {
			for _, fv := range mustFileVersions(m.store) {
				m.caches.InvalidateFile(fv.Path)
				result.FilesAffected++
			}
		}

	case filter.OlderThan > 0:
		fvs, err := m.store.AllFileVersions()
		if err != nil {
			return ClearResult{}, err
		}
		cutoff := m.now().Add(-filter.OlderThan)
		for _, fv := range fvs {
			if time.UnixMilli(fv.Mtime).Before(cutoff) {
				if err := m.store.DeletePath(fv.Path); err != nil {
					return ClearResult{}, err
				}
				if m.caches != nil {
					m.caches.InvalidateFile(fv.Path)
				}
				result.FilesAffected++
				result.EntriesRemoved++
			}
		}
	}

	result.DurationMs = m.now().Sub(start).Milliseconds()
	return result, nil
}

func mustFileVersions(s *store.Store) []store.FileVersion {
	fvs, err := s.AllFileVersions()
	if err != nil {
		return nil
	}
	return fvs
}

// Compact removes expired cache entries, then compacts the persistent
// store by rewriting it to destPath (bbolt files never shrink in place).
func (m *Manager) Compact(destPath string) error {
	if m.caches != nil {
		for _, c := range m.allCaches() {
			c.Evict()
		}
	}
	return m.store.Compact(destPath)
}

func (m *Manager) allCaches() []*lspcache.Cache {
	// lspcache.Manager doesn't expose its internal cache list directly;
	// the operations known to this daemon are fixed, so iterate them.
	var out []*lspcache.Cache
	for _, op := range []types.Operation{types.OpDefinition, types.OpReferences, types.OpHover, types.OpCallHierarchy, types.OpImplementations} {
		c, err := m.caches.For(op)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FormatVersion is the current export file format version; Import rejects
// any other value.
const FormatVersion = 1

// ExportEntry is one persisted symbol, enriched with its outgoing call
// edges, per spec.md §4.9's export record shape.
type ExportEntry struct {
	FilePath      string   `json:"file_path"`
	Symbol        string   `json:"symbol"`
	Line          int      `json:"line"`
	Column        int      `json:"column"`
	ContentHash   string   `json:"content_hash"`
	CreatedAt     string   `json:"created_at"`
	Language      string   `json:"language"`
	CallHierarchy []string `json:"call_hierarchy"`
}

// ExportMetadata self-describes an export file.
type ExportMetadata struct {
	FormatVersion   int    `json:"format_version"`
	ExportDate      string `json:"export_date"`
	TotalEntries    int    `json:"total_entries"`
	TotalSizeBytes  int64  `json:"total_size_bytes"`
}

// ExportFile is the full on-disk export document.
type ExportFile struct {
	Metadata ExportMetadata `json:"metadata"`
	Entries  []ExportEntry  `json:"entries"`
}

// BuildExport assembles the export document from the current store
// contents; callers serialize it (optionally gzip-compressed) to disk.
func (m *Manager) BuildExport() (ExportFile, error) {
	syms, err := m.store.ListAllSymbols()
	if err != nil {
		return ExportFile{}, err
	}

	entries := make([]ExportEntry, 0, len(syms))
	var totalSize int64
	for _, sym := range syms {
		fv, ok, err := m.store.FileVersionByID(sym.FileVersionID)
		if err != nil {
			return ExportFile{}, err
		}
		if !ok {
			continue
		}

		hierarchy, err := m.store.GetCallHierarchyForSymbol(sym.SymbolUID)
		if err != nil {
			return ExportFile{}, err
		}
		targets := make([]string, 0, len(hierarchy.Edges))
		for _, e := range hierarchy.Edges {
			targets = append(targets, string(e.TargetUID))
		}

		entry := ExportEntry{
			FilePath:      fv.Path,
			Symbol:        sym.Name,
			Line:          sym.StartLine,
			Column:        sym.StartChar,
			ContentHash:   fv.ContentDigest,
			CreatedAt:     m.now().UTC().Format(time.RFC3339),
			Language:      sym.Language,
			CallHierarchy: targets,
		}
		entries = append(entries, entry)
		totalSize += int64(len(entry.FilePath) + len(entry.Symbol) + len(entry.ContentHash))
	}

	return ExportFile{
		Metadata: ExportMetadata{
			FormatVersion:  FormatVersion,
			ExportDate:     m.now().UTC().Format(time.RFC3339),
			TotalEntries:   len(entries),
			TotalSizeBytes: totalSize,
		},
		Entries: entries,
	}, nil
}

// ImportResult reports what Import actually did.
type ImportResult struct {
	EntriesImported int
	EntriesSkipped  int
}

// Import applies an ExportFile previously produced by BuildExport. Import
// only restores symbol metadata (name/location/call-hierarchy hints) into
// fresh FileVersion rows; it does not attempt to resurrect the exact
// original file-version IDs, since those are workspace-local implementation
// details, not part of the export's stable identity.
func (m *Manager) Import(file ExportFile, merge bool) (ImportResult, error) {
	if file.Metadata.FormatVersion != FormatVersion {
		return ImportResult{}, fmt.Errorf("cachemanager: unsupported export format_version %d", file.Metadata.FormatVersion)
	}

	result := ImportResult{}
	for _, entry := range file.Entries {
		if merge {
			if _, ok := m.store.DigestForPath(types.WorkspaceID(0), entry.FilePath); ok {
				result.EntriesSkipped++
				continue
			}
		}

		fv, err := m.store.UpsertFileVersion(entry.FilePath, entry.ContentHash, 0, 0, entry.Language)
		if err != nil {
			return result, err
		}
		if err := m.store.StoreSymbols([]store.SymbolState{{
			SymbolUID:     symbolUIDForImport(entry),
			FileVersionID: fv.ID,
			Language:      entry.Language,
			Name:          entry.Symbol,
			StartLine:     entry.Line,
			StartChar:     entry.Column,
		}}); err != nil {
			return result, err
		}
		result.EntriesImported++
	}
	return result, nil
}

// symbolUIDForImport derives a stable identity for an imported entry
// when the original SymbolUID wasn't part of the export record (§4.9's
// ExportEntry intentionally omits it — it is a store-internal identity,
// not part of the portable record). Using the file+symbol+hash triple as
// the UID keeps re-imports of the same export idempotent.
func symbolUIDForImport(entry ExportEntry) types.SymbolUID {
	return types.SymbolUID(entry.FilePath + "\x00" + entry.Symbol + "\x00" + entry.ContentHash)
}
