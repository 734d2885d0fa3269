package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/lspcached/internal/cachemanager"
	e "github.com/standardbeagle/lspcached/internal/errors"
	"github.com/standardbeagle/lspcached/internal/hashutil"
	"github.com/standardbeagle/lspcached/internal/lspclient"
	"github.com/standardbeagle/lspcached/internal/store"
	"github.com/standardbeagle/lspcached/internal/types"
)

// QueryParams is the request body of the "query" tool, matching spec.md
// §6's Query{operation, file, line, col, extra?}.
type QueryParams struct {
	Operation string `json:"operation"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Col       int    `json:"col"`
	Extra     string `json:"extra"`
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p QueryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("query", fmt.Errorf("invalid parameters: %w", err))
	}
	result, err := s.Query(ctx, p)
	if err != nil {
		return errorResponse("query", err)
	}
	return jsonResponse(result)
}

// Query answers p directly, independent of the MCP transport; the
// `lspcached query` CLI subcommand calls this the same way handleQuery
// does.
func (s *Server) Query(ctx context.Context, p QueryParams) (map[string]interface{}, error) {
	op := types.Operation(p.Operation)

	ws, err := s.workspaceFor(p.File)
	if err != nil {
		return nil, err
	}

	if op == types.OpHover {
		return s.queryHover(ctx, ws, p)
	}
	return s.queryEdges(ctx, ws, op, p)
}

// queryHover answers the one operation with no edge-shaped result: it
// lives purely in the LSP response cache tier, keyed by the file's
// current content digest.
func (s *Server) queryHover(ctx context.Context, ws *workspace, p QueryParams) (map[string]interface{}, error) {
	digest, err := contentDigest(p.File, s.cfg.Detector.HashAlgorithm, s.cfg.Detector.MaxFileSize)
	if err != nil {
		return nil, e.NewRequestError(e.ErrorTypeIO, types.OpHover, p.File, err)
	}

	cache, err := ws.caches.For(types.OpHover)
	if err != nil {
		return nil, err
	}

	if ws.spawner == nil {
		return nil, e.NewRequestError(e.ErrorTypeLsp, types.OpHover, p.File, fmt.Errorf("no LSP client spawner configured"))
	}
	client, err := ws.spawner(ctx, ws.root, p.Extra)
	if err != nil {
		return nil, e.NewRequestError(e.ErrorTypeLsp, types.OpHover, p.File, err)
	}

	key := types.LspCacheKey{File: p.File, Line: uint32(p.Line), Column: uint32(p.Col), ContentMD5: digest, Operation: types.OpHover}
	data, hit, err := cache.GetOrCompute(key, lspclient.ComputeHover(client, ctx, p.File, p.Line, p.Col))
	if err != nil {
		return nil, e.NewRequestError(e.ErrorTypeLsp, types.OpHover, p.File, err)
	}

	return map[string]interface{}{"success": true, "cache_hit": hit, "result": json.RawMessage(data)}, nil
}

// queryEdges answers the four edge-producing operations through the query
// hierarchy: memory, then the persistent store, then the LSP fallback. A
// symbol must already be known at the given position (via a prior
// analysis pass); if none is known yet, the query degrades to a direct
// LSP call without persisting through the hierarchy tiers.
func (s *Server) queryEdges(ctx context.Context, ws *workspace, op types.Operation, p QueryParams) (map[string]interface{}, error) {
	uid, digest, ok, err := symbolAtPosition(ws.store, p.File, p.Line, p.Col)
	if err != nil {
		return nil, err
	}

	if ws.spawner == nil {
		return nil, e.NewRequestError(e.ErrorTypeLsp, op, p.File, fmt.Errorf("no LSP client spawner configured"))
	}
	client, err := ws.spawner(ctx, ws.root, p.Extra)
	if err != nil {
		return nil, e.NewRequestError(e.ErrorTypeLsp, op, p.File, err)
	}
	fallback := lspclient.Fallback(client, op, p.Line, p.Col)
	if fallback == nil {
		return nil, e.NewRequestError(e.ErrorTypeInvalidPath, op, p.File, fmt.Errorf("unsupported operation %q", op))
	}

	if !ok {
		result, err := fallback(ctx, "", types.NodeKey{File: p.File})
		if err != nil {
			return nil, e.NewRequestError(e.ErrorTypeLsp, op, p.File, err)
		}
		return map[string]interface{}{"success": true, "cache_hit": false, "result": result}, nil
	}

	key := types.NodeKey{Symbol: string(uid), File: p.File, ContentMD5: digest}
	edges, err := ws.hierarchy.Query(ctx, op, uid, key, fallback)
	if err != nil {
		return nil, e.NewRequestError(e.ErrorTypeLsp, op, p.File, err)
	}
	return map[string]interface{}{"success": true, "result": edges}, nil
}

func (s *Server) handleShutdown(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	close(s.shutdown)
	return jsonResponse(map[string]interface{}{"success": true, "message": "shutting down"})
}

// CacheGetStatsParams matches spec.md §6's CacheGetStats{detailed, git_stats}.
type CacheGetStatsParams struct {
	Root     string `json:"root"`
	Detailed bool   `json:"detailed"`
	GitStats bool   `json:"git_stats"`
}

func (s *Server) handleCacheGetStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p CacheGetStatsParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("cache_get_stats", err)
	}
	stats, err := s.CacheGetStats(p)
	if err != nil {
		return errorResponse("cache_get_stats", err)
	}
	return jsonResponse(stats)
}

// CacheGetStats answers p directly; the `lspcached cache stats` CLI
// subcommand calls this the same way handleCacheGetStats does.
func (s *Server) CacheGetStats(p CacheGetStatsParams) (cachemanager.Statistics, error) {
	ws, err := s.workspaceFor(p.Root)
	if err != nil {
		return cachemanager.Statistics{}, err
	}
	return ws.manager.GetStats(p.Detailed, p.GitStats)
}

// CacheClearParams matches spec.md §6's CacheClear{filter}.
type CacheClearParams struct {
	Root          string `json:"root"`
	All           bool   `json:"all"`
	OlderThanDays int    `json:"older_than_days"`
	FilePath      string `json:"file_path"`
}

func (s *Server) handleCacheClear(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p CacheClearParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("cache_clear", err)
	}
	result, err := s.CacheClear(p)
	if err != nil {
		return errorResponse("cache_clear", err)
	}
	return jsonResponse(result)
}

// CacheClear answers p directly; the `lspcached cache clear` CLI
// subcommand calls this the same way handleCacheClear does.
func (s *Server) CacheClear(p CacheClearParams) (cachemanager.ClearResult, error) {
	ws, err := s.workspaceFor(p.Root)
	if err != nil {
		return cachemanager.ClearResult{}, err
	}
	filter := cachemanager.ClearFilter{All: p.All, FilePath: p.FilePath}
	if p.OlderThanDays > 0 {
		filter.OlderThan = time.Duration(p.OlderThanDays) * 24 * time.Hour
	}
	return ws.manager.Clear(filter)
}

// CacheExportParams matches spec.md §6's CacheExport{path, compress}.
type CacheExportParams struct {
	Root     string `json:"root"`
	Path     string `json:"path"`
	Compress bool   `json:"compress"`
}

func (s *Server) handleCacheExport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p CacheExportParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("cache_export", err)
	}
	export, err := s.CacheExport(p)
	if err != nil {
		return errorResponse("cache_export", err)
	}
	return jsonResponse(map[string]interface{}{
		"success":       true,
		"entries":       export.Metadata.TotalEntries,
		"compressed":    p.Compress,
		"total_size_mb": export.Metadata.TotalSizeBytes / (1024 * 1024),
	})
}

// CacheExport builds and writes the export document for p; the
// `lspcached cache export` CLI subcommand calls this the same way
// handleCacheExport does.
func (s *Server) CacheExport(p CacheExportParams) (cachemanager.ExportFile, error) {
	ws, err := s.workspaceFor(p.Root)
	if err != nil {
		return cachemanager.ExportFile{}, err
	}
	export, err := ws.manager.BuildExport()
	if err != nil {
		return cachemanager.ExportFile{}, err
	}
	if err := cachemanager.WriteExport(p.Path, export, p.Compress); err != nil {
		return cachemanager.ExportFile{}, err
	}
	return export, nil
}

// CacheImportParams matches spec.md §6's CacheImport{path, merge}.
type CacheImportParams struct {
	Root  string `json:"root"`
	Path  string `json:"path"`
	Merge bool   `json:"merge"`
}

func (s *Server) handleCacheImport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p CacheImportParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("cache_import", err)
	}
	result, err := s.CacheImport(p)
	if err != nil {
		return errorResponse("cache_import", err)
	}
	return jsonResponse(result)
}

// CacheImport answers p directly; the `lspcached cache import` CLI
// subcommand calls this the same way handleCacheImport does.
func (s *Server) CacheImport(p CacheImportParams) (cachemanager.ImportResult, error) {
	ws, err := s.workspaceFor(p.Root)
	if err != nil {
		return cachemanager.ImportResult{}, err
	}
	file, err := cachemanager.ReadExport(p.Path)
	if err != nil {
		return cachemanager.ImportResult{}, err
	}
	return ws.manager.Import(file, p.Merge)
}

// CacheCompactParams matches spec.md §6's CacheCompact{clean_expired, target_size_mb?}.
type CacheCompactParams struct {
	Root          string `json:"root"`
	CleanExpired  bool   `json:"clean_expired"`
	TargetSizeMB  int    `json:"target_size_mb"`
}

func (s *Server) handleCacheCompact(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p CacheCompactParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("cache_compact", err)
	}
	dest, err := s.CacheCompact(p)
	if err != nil {
		return errorResponse("cache_compact", err)
	}
	return jsonResponse(map[string]interface{}{"success": true, "compacted_path": dest})
}

// CacheCompact answers p directly; the `lspcached cache compact` CLI
// subcommand calls this the same way handleCacheCompact does.
func (s *Server) CacheCompact(p CacheCompactParams) (string, error) {
	ws, err := s.workspaceFor(p.Root)
	if err != nil {
		return "", err
	}
	// target_size_mb is advisory only: compaction always rewrites the full
	// store (bbolt cannot shrink selectively), so there is nothing to size
	// the rewrite to beyond "as small as the live data allows".
	_ = p.TargetSizeMB
	dest := p.Root + "/.lspcached/symbols.compact.db"
	if err := ws.manager.Compact(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// contentDigest hashes path's current content with the workspace's
// configured algorithm, independent of whether the file has been through
// an analysis pass yet.
func contentDigest(path, algo string, maxSize int64) (string, error) {
	h := hashutil.NewHasher(hashutil.Algorithm(algo), maxSize)
	digest, _, err := h.HashFile(path)
	return digest, err
}

// symbolAtPosition finds the innermost symbol in path's current file
// version whose range contains (line, col).
func symbolAtPosition(st *store.Store, path string, line, col int) (types.SymbolUID, string, bool, error) {
	digest, ok := st.DigestForPath(types.WorkspaceID(0), path)
	if !ok {
		return "", "", false, nil
	}
	fv, ok, err := st.GetFileVersionByDigest(digest)
	if err != nil || !ok {
		return "", digest, false, err
	}

	syms, err := st.GetSymbolsByFile(fv.ID, "")
	if err != nil {
		return "", digest, false, err
	}

	var best store.SymbolState
	found := false
	for _, sym := range syms {
		if !withinRange(sym, line, col) {
			continue
		}
		if !found || narrower(sym, best) {
			best = sym
			found = true
		}
	}
	if !found {
		return "", digest, false, nil
	}
	return best.SymbolUID, digest, true, nil
}

func withinRange(sym store.SymbolState, line, col int) bool {
	if line < sym.StartLine || line > sym.EndLine {
		return false
	}
	if line == sym.StartLine && col < sym.StartChar {
		return false
	}
	if line == sym.EndLine && col > sym.EndChar {
		return false
	}
	return true
}

func narrower(a, b store.SymbolState) bool {
	aLines := a.EndLine - a.StartLine
	bLines := b.EndLine - b.StartLine
	return aLines < bLines
}
