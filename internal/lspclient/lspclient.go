// Package lspclient is the boundary to the concrete LSP wire client: the
// process that actually spawns and talks to rust-analyzer, pylsp, gopls,
// tsserver, or phpactor over their respective JSON-RPC protocols. This
// package defines only the interface the rest of the daemon depends on;
// no concrete transport is implemented here, per spec.md §2's boundary
// collaborator list.
package lspclient

import (
	"context"
	"encoding/json"

	"github.com/standardbeagle/lspcached/internal/types"
)

// HierarchyItem is one node the LSP server reported for a call-hierarchy,
// references, definition, or implementations query.
type HierarchyItem struct {
	SymbolUID  types.SymbolUID
	Name       string
	File       string
	Line       int
	Column     int
	Confidence float64
}

// HierarchyResult is the raw answer for one of the four edge-producing
// operations. An empty, non-nil Items is a legitimate "definitively
// nothing found" answer; callers persist it as a None_X edge rather than
// leave the query unknown.
type HierarchyResult struct {
	Items []HierarchyItem
}

// Client is one live connection to a language server for one workspace
// root. Implementations own the child process (or connection) and must
// be safe for concurrent use by multiple in-flight queries.
type Client interface {
	CallHierarchy(ctx context.Context, file string, line, col int) (HierarchyResult, error)
	References(ctx context.Context, file string, line, col int) (HierarchyResult, error)
	Definition(ctx context.Context, file string, line, col int) (HierarchyResult, error)
	Implementations(ctx context.Context, file string, line, col int) (HierarchyResult, error)
	Hover(ctx context.Context, file string, line, col int) (json.RawMessage, error)

	// Close terminates the underlying language server process/connection.
	Close() error
}

// Spawner constructs a Client for a workspace root and detected primary
// language. The daemon holds at most one live Client per (root, language)
// pair; the router's Opener is the natural place to call this lazily.
type Spawner func(ctx context.Context, root, language string) (Client, error)

// Unavailable is returned by a Spawner when no language server is
// configured or installed for language. Callers degrade by leaving the
// query unanswered (surfaced as a typed LspError) rather than guessing.
type Unavailable struct {
	Language string
}

func (e Unavailable) Error() string {
	return "lspclient: no language server available for " + e.Language
}
