// Package ipc is the client-facing transport of spec.md §6, exposing the
// six request-surface operations as MCP tool calls over
// modelcontextprotocol/go-sdk. The wire codec itself is supplied
// infrastructure (per SPEC_FULL.md §2); this package only translates tool
// calls into the router/queryhierarchy/cachemanager/analysis operations
// that actually answer them.
package ipc

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/extractor"
	"github.com/standardbeagle/lspcached/internal/lspclient"
	"github.com/standardbeagle/lspcached/internal/router"
)

// Server is the daemon's IPC front end: one MCP server multiplexing
// requests across every workspace the router has resolved.
type Server struct {
	cfg      *config.Config
	resolver *router.Resolver
	server   *mcp.Server

	shutdown chan struct{}
}

// NewServer builds the IPC server. reg is the (possibly empty) extractor
// registry the analysis engine uses for newly discovered workspaces;
// spawner constructs the concrete LSP client for a workspace's detected
// language, or may be nil if this daemon instance serves cache-only
// requests (stats/clear/export/import/compact) without live LSP fallback.
func NewServer(cfg *config.Config, reg *extractor.Registry, spawner lspclient.Spawner) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: router.New(cfg.Router, newOpener(cfg, reg, spawner)),
		shutdown: make(chan struct{}),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "lspcached",
		Version: "0.1.0",
	}, nil)

	s.registerTools()
	return s
}

// registerTools wires the six operations of spec.md §6 to MCP tools, plus
// shutdown.
func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "query",
		Description: "Answer a Definition/References/Hover/CallHierarchy/Implementations query for a file position, via the memory -> disk -> LSP-fallback lookup order.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"operation": {Type: "string", Description: "Definition, References, Hover, CallHierarchy, or Implementations"},
				"file":      {Type: "string", Description: "absolute or workspace-relative path"},
				"line":      {Type: "integer", Description: "0-based line number"},
				"col":       {Type: "integer", Description: "0-based column number"},
				"extra":     {Type: "string", Description: "operation-specific disambiguator, rarely needed"},
			},
			Required: []string{"operation", "file", "line", "col"},
		},
	}, s.handleQuery)

	s.server.AddTool(&mcp.Tool{
		Name:        "shutdown",
		Description: "Gracefully terminate the daemon, giving in-flight analysis tasks a grace period to finish.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleShutdown)

	s.server.AddTool(&mcp.Tool{
		Name:        "cache_get_stats",
		Description: "Report symbol/edge store and LSP cache statistics for a workspace.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"root":      {Type: "string", Description: "workspace root, or a path inside it"},
				"detailed":  {Type: "boolean", Description: "include per-language symbol counts"},
				"git_stats": {Type: "boolean", Description: "include git-derived hot-spot statistics, when internal/git is available"},
			},
			Required: []string{"root"},
		},
	}, s.handleCacheGetStats)

	s.server.AddTool(&mcp.Tool{
		Name:        "cache_clear",
		Description: "Clear cache entries matching a filter: all, older_than_days:N, or file_path:P.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"root":            {Type: "string"},
				"all":             {Type: "boolean"},
				"older_than_days": {Type: "integer"},
				"file_path":       {Type: "string"},
			},
			Required: []string{"root"},
		},
	}, s.handleCacheClear)

	s.server.AddTool(&mcp.Tool{
		Name:        "cache_export",
		Description: "Export the workspace's symbols and call hierarchy to a self-describing JSON document, optionally gzip-compressed.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"root":     {Type: "string"},
				"path":     {Type: "string"},
				"compress": {Type: "boolean"},
			},
			Required: []string{"root", "path"},
		},
	}, s.handleCacheExport)

	s.server.AddTool(&mcp.Tool{
		Name:        "cache_import",
		Description: "Import a previously exported document, merging with or replacing the current store.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"root":  {Type: "string"},
				"path":  {Type: "string"},
				"merge": {Type: "boolean"},
			},
			Required: []string{"root", "path"},
		},
	}, s.handleCacheImport)

	s.server.AddTool(&mcp.Tool{
		Name:        "cache_compact",
		Description: "Rewrite the workspace's persistent store to reclaim space bbolt never releases in place.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"root":             {Type: "string"},
				"clean_expired":    {Type: "boolean"},
				"target_size_mb":   {Type: "integer"},
			},
			Required: []string{"root"},
		},
	}, s.handleCacheCompact)
}

// Run serves requests over transport until ctx is cancelled or a client
// issues shutdown.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	debug.LogIPC("starting IPC server")
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(runCtx, transport)
	s.resolver.CloseAll()
	return err
}

// Close shuts down every workspace the resolver has opened. Used by
// one-shot CLI invocations that never call Run.
func (s *Server) Close() error {
	return s.resolver.CloseAll()
}

// workspaceFor resolves path to its owning workspace, opening and caching
// its handles via the router if this is the first request for that root.
func (s *Server) workspaceFor(path string) (*workspace, error) {
	_, handles, err := s.resolver.Open(path)
	if err != nil {
		return nil, err
	}
	return handles.(*workspace), nil
}
