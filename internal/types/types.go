// Package types holds the value types shared across the caching daemon:
// identifiers, the typed edge/operation enumerations from the symbol graph,
// and the cache key shapes. Storage-specific record layouts live with their
// owning package (internal/store, internal/lspcache), not here.
package types

import (
	"fmt"
	"strings"
)

// WorkspaceID identifies a registered workspace root.
type WorkspaceID int64

// FileID identifies a FileVersion row inside a workspace's store.
type FileID uint64

// SymbolUID is the opaque, stable identifier produced by internal/symbolid
// from (language, normalized FQN, normalized signature, kind, containment
// chain). Two syntactically identical definitions in different files
// produce distinct UIDs iff their container paths or FQNs differ.
type SymbolUID string

// NoneTarget is the sentinel target_uid used by None_* edges.
const NoneTarget SymbolUID = "none"

// SymbolKind enumerates the kinds a SymbolState can carry. Promoted from an
// opaque string to a typed enum because internal/symbolid switches on kind
// when deciding which normalization rules apply.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindTrait     SymbolKind = "trait"
	KindEnum      SymbolKind = "enum"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindModule    SymbolKind = "module"
	KindField     SymbolKind = "field"
	KindParameter SymbolKind = "parameter"
	KindTypeAlias SymbolKind = "type_alias"
	KindUnknown   SymbolKind = "unknown"
)

// Visibility enumerates symbol access levels, used by normalization when
// deciding whether a modifier keyword is identity-bearing.
type Visibility string

const (
	VisibilityPublic         Visibility = "public"
	VisibilityPrivate        Visibility = "private"
	VisibilityProtected      Visibility = "protected"
	VisibilityInternal       Visibility = "internal"
	VisibilityPackagePrivate Visibility = "package_private"
	VisibilityUnknown        Visibility = ""
)

// EdgeRelation enumerates the typed edges of the symbol graph, including the
// four None_* relations that record a definitively empty query result.
type EdgeRelation string

const (
	RelationContains     EdgeRelation = "Contains"
	RelationCalls        EdgeRelation = "Calls"
	RelationReferences   EdgeRelation = "References"
	RelationImplements   EdgeRelation = "Implements"
	RelationInheritsFrom EdgeRelation = "InheritsFrom"
	RelationImports      EdgeRelation = "Imports"
	RelationDefines      EdgeRelation = "Defines"

	RelationNoneCalls      EdgeRelation = "None_Calls"
	RelationNoneReferences EdgeRelation = "None_References"
	RelationNoneDefs       EdgeRelation = "None_Definitions"
	RelationNoneImpls      EdgeRelation = "None_Implementations"
	RelationNoneCallHier   EdgeRelation = "None_CallHierarchy"
)

// IsNone reports whether r is one of the four negative-result relations.
func (r EdgeRelation) IsNone() bool {
	switch r {
	case RelationNoneCalls, RelationNoneReferences, RelationNoneDefs, RelationNoneImpls, RelationNoneCallHier:
		return true
	default:
		return false
	}
}

// Operation enumerates the LSP-style query operations the daemon answers.
type Operation string

const (
	OpDefinition      Operation = "Definition"
	OpReferences      Operation = "References"
	OpHover           Operation = "Hover"
	OpCallHierarchy   Operation = "CallHierarchy"
	OpImplementations Operation = "Implementations"
)

// NoneRelationFor returns the None_* relation that corresponds to op, for
// operations that persist none-edges in the symbol/edge store. Hover has no
// none-edge counterpart: it is purely an LSP-cache-tier concern.
func NoneRelationFor(op Operation) (EdgeRelation, bool) {
	switch op {
	case OpCallHierarchy:
		return RelationNoneCallHier, true
	case OpReferences:
		return RelationNoneReferences, true
	case OpDefinition:
		return RelationNoneDefs, true
	case OpImplementations:
		return RelationNoneImpls, true
	default:
		return "", false
	}
}

// LspCacheKey is the immutable identity of one cached LSP response. A key is
// invalid once the file's current content digest differs from ContentMD5.
type LspCacheKey struct {
	File       string
	Line       uint32
	Column     uint32
	ContentMD5 string
	Operation  Operation
	Extra      string
}

// String renders a stable, human-diagnosable representation suitable for use
// as a map/disk key.
func (k LspCacheKey) String() string {
	var b strings.Builder
	b.WriteString(k.File)
	b.WriteByte('\x00')
	fmt.Fprintf(&b, "%d:%d", k.Line, k.Column)
	b.WriteByte('\x00')
	b.WriteString(k.ContentMD5)
	b.WriteByte('\x00')
	b.WriteString(string(k.Operation))
	if k.Extra != "" {
		b.WriteByte('\x00')
		b.WriteString(k.Extra)
	}
	return b.String()
}

// NodeKey is the canonical identity of a call-hierarchy graph vertex.
type NodeKey struct {
	Symbol     string
	File       string
	ContentMD5 string
}

func (k NodeKey) String() string {
	return k.Symbol + "\x00" + k.File + "\x00" + k.ContentMD5
}

// Priority orders QueueItems in the incremental analysis engine. Higher
// value dequeues first; FIFO is preserved within a priority by the queue
// implementation, not by this ordering alone.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// AnalysisTaskType enumerates why a file is being (re)analyzed.
type AnalysisTaskType string

const (
	TaskFullAnalysis       AnalysisTaskType = "full_analysis"
	TaskIncrementalRefresh AnalysisTaskType = "incremental_refresh"
	TaskDependencyOnly    AnalysisTaskType = "dependency_only"
)

// FileChangeKind enumerates what the file-change detector observed.
type FileChangeKind string

const (
	ChangeCreate FileChangeKind = "create"
	ChangeUpdate FileChangeKind = "update"
	ChangeDelete FileChangeKind = "delete"
	ChangeMove   FileChangeKind = "move"
)

// Size and timeout defaults shared across components. Individual packages
// may override these from config; they exist here so tests and defaults
// agree on one source of truth.
const (
	// DefaultMaxFileSize bounds content hashing and the detector's scan.
	// 10MiB covers effectively all hand-written source files while keeping
	// a single hash pass cheap; generated/vendored blobs above this are
	// treated as out of scope rather than hashed.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultMaxDepth bounds the detector's directory walk.
	DefaultMaxDepth = 20

	// DefaultPollIntervalMs is the file watcher's polling cadence.
	DefaultPollIntervalMs = 2000

	// DefaultMaxFilesPerWorkspace aborts a watcher cycle rather than risk
	// unbounded memory for the per-path mtime/size map.
	DefaultMaxFilesPerWorkspace = 50000

	// DefaultExtractionTimeoutMs bounds a single symbol-extraction call.
	DefaultExtractionTimeoutMs = 30000

	// DefaultLspTimeoutMs bounds a single LSP round-trip.
	DefaultLspTimeoutMs = 10000
)
