// Package extractor defines the boundary interface to a language's
// symbol/relationship extraction (in the original system, tree-sitter
// queries per language). Concrete extractors are an external collaborator
// of the Incremental Analysis Engine; this package only fixes the
// contract the engine programs against.
package extractor

import (
	"context"

	"github.com/standardbeagle/lspcached/internal/types"
)

// Relationship is one extracted edge, prior to containment augmentation.
// SourceUID/TargetUID are computed by internal/symbolid from the raw
// Symbol data the extractor returns; the extractor itself only needs to
// describe the relationship in terms of local symbol indices.
type Relationship struct {
	SourceIndex int
	TargetIndex int
	Relation    types.EdgeRelation
	Line        int
	Column      int
	Confidence  float64
}

// Symbol is one raw extracted symbol, prior to UID computation.
type Symbol struct {
	Name          string
	FQN           string
	Kind          types.SymbolKind
	Signature     string
	Visibility    types.Visibility
	StartLine     int
	StartChar     int
	EndLine       int
	EndChar       int
	IsDefinition  bool
	Doc           string
	ParentIndex   int // index into the same Result.Symbols slice, or -1 for top-level
}

// Result is one file's extraction output.
type Result struct {
	Language      string
	Symbols       []Symbol
	Relationships []Relationship
}

// Extractor obtains symbols and relationships from one file's content.
// Implementations are expected to be safe for concurrent use by the
// analysis engine's worker pool.
type Extractor interface {
	// Supports reports whether this extractor handles the given language.
	Supports(language string) bool

	// Extract parses content (the file at path, already read and
	// digested by the caller) and returns its symbols and relationships.
	Extract(ctx context.Context, path, language string, content []byte) (Result, error)
}

// ContainmentEdges derives Contains relationships from each symbol's
// ParentIndex, the "augment relationships locally with containment edges
// inferred from symbol parent-scopes" step of the analysis engine.
func ContainmentEdges(symbols []Symbol) []Relationship {
	var out []Relationship
	for i, sym := range symbols {
		if sym.ParentIndex < 0 || sym.ParentIndex >= len(symbols) {
			continue
		}
		out = append(out, Relationship{
			SourceIndex: sym.ParentIndex,
			TargetIndex: i,
			Relation:    types.RelationContains,
			Confidence:  1.0,
		})
	}
	return out
}

// Unavailable is returned by a stub/unregistered extractor so callers can
// distinguish "no extractor for this language" from a parse failure.
type Unavailable struct {
	Language string
}

func (e Unavailable) Error() string {
	return "no extractor available for language " + e.Language
}

// Registry fans out to a set of per-language Extractors and itself
// implements Extractor, so the analysis engine can hold a single
// extractor value regardless of how many concrete language backends are
// registered. An empty Registry supports no language; every Extract call
// degrades to the "Generic analysis used for language 'X'" warning path
// spec.md §7 describes, by returning Unavailable.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a Registry over the given extractors, tried in order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

func (r *Registry) Supports(language string) bool {
	for _, e := range r.extractors {
		if e.Supports(language) {
			return true
		}
	}
	return false
}

func (r *Registry) Extract(ctx context.Context, path, language string, content []byte) (Result, error) {
	for _, e := range r.extractors {
		if e.Supports(language) {
			return e.Extract(ctx, path, language, content)
		}
	}
	return Result{}, Unavailable{Language: language}
}
