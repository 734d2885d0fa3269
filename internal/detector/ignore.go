package detector

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreSet matches workspace-relative paths against glob ignore patterns.
// A pattern ending in "/" excludes the named directory and everything
// beneath it; any other pattern is matched with doublestar semantics
// against both the path itself and its basename.
type IgnoreSet struct {
	dirPatterns  []string
	filePatterns []string
}

// NewIgnoreSet compiles patterns (as found in config and any .gitignore
// lines the caller has already collected) into an IgnoreSet.
func NewIgnoreSet(patterns []string) *IgnoreSet {
	s := &IgnoreSet{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		if strings.HasSuffix(p, "/") {
			s.dirPatterns = append(s.dirPatterns, strings.TrimSuffix(p, "/"))
		} else {
			s.filePatterns = append(s.filePatterns, p)
		}
	}
	return s
}

// Matches reports whether relPath (a file) should be excluded.
func (s *IgnoreSet) Matches(relPath string) bool {
	relPath = toSlash(relPath)
	for _, p := range s.filePatterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	for _, p := range s.dirPatterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(p+"/**", relPath); ok {
			return true
		}
	}
	return false
}

// MatchesDir reports whether relPath (a directory) should be pruned
// entirely, skipping descent.
func (s *IgnoreSet) MatchesDir(relPath string) bool {
	relPath = toSlash(relPath)
	for _, p := range s.dirPatterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	for _, p := range s.filePatterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	return false
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
