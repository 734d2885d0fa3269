// Package detector reconciles a workspace's on-disk tree against a
// database's last-known file versions, producing a deterministic set of
// Create/Update/Delete/Move changes.
package detector

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/errors"
	"github.com/standardbeagle/lspcached/internal/hashutil"
	"github.com/standardbeagle/lspcached/internal/types"
)

// KnownVersions is the subset of the symbol & edge store the detector needs
// to diff a scan against: the last digest recorded for a path, and a lookup
// from digest back to path (for move detection).
type KnownVersions interface {
	// DigestForPath returns the last known content digest for path, if any.
	DigestForPath(workspaceID types.WorkspaceID, path string) (digest string, ok bool)
	// PathForDigest returns a path currently recorded under digest, if any,
	// excluding the path the caller is already considering.
	PathForDigest(workspaceID types.WorkspaceID, digest string, excludePath string) (path string, ok bool)
	// KnownPaths returns every path the store currently has a version for.
	KnownPaths(workspaceID types.WorkspaceID) []string
}

// FileChange is one reconciled difference between disk and the store.
type FileChange struct {
	Path          string
	Kind          types.FileChangeKind
	MovedFrom     string // set only when Kind == Move
	ContentDigest string
	Size          int64
	Mtime         int64
	Language      string
}

// Detector walks a workspace and classifies changes per file.
type Detector struct {
	cfg    *config.Detector
	hasher *hashutil.Hasher
	ignore *IgnoreSet
}

// New builds a Detector from the given policy. ignore augments cfg's
// configured globs with any gitignore-derived patterns the caller already
// loaded (detector itself does not read .gitignore; that is router's job
// via internal/git, passed in here).
func New(cfg *config.Detector, ignore *IgnoreSet) *Detector {
	algo := hashutil.AlgorithmBlake3
	if cfg.HashAlgorithm == "sha256" {
		algo = hashutil.AlgorithmSHA256
	}
	return &Detector{
		cfg:    cfg,
		hasher: hashutil.NewHasher(algo, cfg.MaxFileSize),
		ignore: ignore,
	}
}

// filenameAllowlist accepts well-known extensionless build files.
var filenameAllowlist = map[string]bool{
	"Dockerfile": true,
	"Makefile":   true,
	"Rakefile":   true,
	"Gemfile":    true,
	"Procfile":   true,
}

// DetectChanges walks scanRoot and reconciles it against known, returning a
// deterministic (path-sorted) list of changes. Per-file errors are logged
// and skipped; the scan as a whole only fails on a root-level I/O error.
func (d *Detector) DetectChanges(ctx context.Context, workspaceID types.WorkspaceID, scanRoot string, known KnownVersions) ([]FileChange, error) {
	visited := make(map[string]bool)
	var changes []FileChange

	walkErr := filepath.WalkDir(scanRoot, func(path string, entry fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			debug.LogWatch("detector: walk error at %s: %v", path, err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(scanRoot, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}

		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if entry.IsDir() {
			if d.ignore.MatchesDir(rel) {
				return filepath.SkipDir
			}
			if depth > d.cfg.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if depth > d.cfg.MaxDepth {
			return nil
		}
		if d.ignore.Matches(rel) {
			return nil
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !d.acceptFilename(entry.Name()) {
			return nil
		}

		info, statErr := entry.Info()
		if statErr != nil {
			debug.LogWatch("detector: stat error at %s: %v", path, statErr)
			return nil
		}

		change, ok, fileErr := d.classify(workspaceID, rel, path, info, known)
		if fileErr != nil {
			debug.LogWatch("detector: %v", fileErr)
			return nil
		}
		visited[rel] = true
		if ok {
			changes = append(changes, change)
		}
		return nil
	})

	if walkErr != nil && walkErr != context.Canceled {
		return nil, errors.NewScanError("detect_changes", scanRoot, walkErr, errors.ErrorTypeIO)
	}

	for _, known := range known.KnownPaths(workspaceID) {
		if !visited[known] {
			changes = append(changes, FileChange{Path: known, Kind: types.ChangeDelete})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

func (d *Detector) classify(workspaceID types.WorkspaceID, relPath, absPath string, info os.FileInfo, known KnownVersions) (FileChange, bool, error) {
	if info.Size() > d.cfg.MaxFileSize {
		return FileChange{}, false, errors.NewScanError("classify", absPath, &hashutil.ErrFileTooLarge{Path: absPath, Size: info.Size(), Max: d.cfg.MaxFileSize}, errors.ErrorTypeFileTooLarge)
	}

	binary, err := hashutil.IsBinary(absPath)
	if err != nil {
		return FileChange{}, false, errors.NewScanError("is_binary", absPath, err, errors.ErrorTypeIO)
	}
	if binary {
		return FileChange{}, false, nil
	}

	digest, size, err := d.hasher.HashFile(absPath)
	if err != nil {
		return FileChange{}, false, errors.NewScanError("hash_file", absPath, err, errors.ErrorTypeIO)
	}

	lang := languageForExt(filepath.Ext(relPath))
	mtime := info.ModTime().Unix()

	prevDigest, hadPrev := known.DigestForPath(workspaceID, relPath)
	switch {
	case !hadPrev:
		if oldPath, movedFrom := known.PathForDigest(workspaceID, digest, relPath); movedFrom {
			return FileChange{Path: relPath, Kind: types.ChangeMove, MovedFrom: oldPath, ContentDigest: digest, Size: size, Mtime: mtime, Language: lang}, true, nil
		}
		return FileChange{Path: relPath, Kind: types.ChangeCreate, ContentDigest: digest, Size: size, Mtime: mtime, Language: lang}, true, nil
	case prevDigest != digest:
		return FileChange{Path: relPath, Kind: types.ChangeUpdate, ContentDigest: digest, Size: size, Mtime: mtime, Language: lang}, true, nil
	default:
		return FileChange{}, false, nil
	}
}

func (d *Detector) acceptFilename(name string) bool {
	if filenameAllowlist[name] {
		return true
	}
	if len(d.cfg.AllowedExtensions) == 0 {
		return sourceExtensions[strings.ToLower(filepath.Ext(name))]
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range d.cfg.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

var sourceExtensions = map[string]bool{
	".go": true, ".rs": true, ".py": true, ".js": true, ".ts": true,
	".jsx": true, ".tsx": true, ".java": true, ".kt": true, ".c": true,
	".cpp": true, ".cc": true, ".h": true, ".hpp": true, ".cs": true,
	".rb": true, ".php": true, ".swift": true, ".scala": true,
}

var extLanguage = map[string]string{
	".go": "go", ".rs": "rust", ".py": "python", ".js": "javascript",
	".ts": "typescript", ".jsx": "javascript", ".tsx": "typescript",
	".java": "java", ".kt": "kotlin", ".c": "c", ".cpp": "cpp",
	".cc": "cpp", ".h": "c", ".hpp": "cpp", ".cs": "csharp",
	".rb": "ruby", ".php": "php", ".swift": "swift", ".scala": "scala",
}

func languageForExt(ext string) string {
	return LanguageForExt(ext)
}

// LanguageForExt maps a file extension (with leading dot) to the language
// name the extractor registry and analysis engine key symbols by.
func LanguageForExt(ext string) string {
	if lang, ok := extLanguage[strings.ToLower(ext)]; ok {
		return lang
	}
	return "unknown"
}
