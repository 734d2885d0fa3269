package lspclient

import (
	"context"
	"encoding/json"

	"github.com/standardbeagle/lspcached/internal/store"
	"github.com/standardbeagle/lspcached/internal/types"
)

// operationRelation binds an Operation to the Client method and the store
// relation its HierarchyItems are persisted as.
type operationRelation struct {
	call     func(c Client, ctx context.Context, file string, line, col int) (HierarchyResult, error)
	relation types.EdgeRelation
}

var operationRelations = map[types.Operation]operationRelation{
	types.OpCallHierarchy:   {func(c Client, ctx context.Context, f string, l, col int) (HierarchyResult, error) { return c.CallHierarchy(ctx, f, l, col) }, types.RelationCalls},
	types.OpReferences:      {func(c Client, ctx context.Context, f string, l, col int) (HierarchyResult, error) { return c.References(ctx, f, l, col) }, types.RelationReferences},
	types.OpDefinition:      {func(c Client, ctx context.Context, f string, l, col int) (HierarchyResult, error) { return c.Definition(ctx, f, l, col) }, types.RelationDefines},
	types.OpImplementations: {func(c Client, ctx context.Context, f string, l, col int) (HierarchyResult, error) { return c.Implementations(ctx, f, l, col) }, types.RelationImplements},
}

// Fallback adapts a Client into a queryhierarchy.Fallback for op, dialing out
// to the language server only when the memory/disk tiers of the query
// hierarchy missed. line/col pin the fallback to the occurrence that
// produced key, since the Client's wire protocol is position-addressed
// while the symbol/edge store is identity-addressed.
func Fallback(c Client, op types.Operation, line, col int) func(ctx context.Context, uid types.SymbolUID, key types.NodeKey) ([]store.Edge, error) {
	spec, ok := operationRelations[op]
	if !ok {
		return nil
	}
	return func(ctx context.Context, uid types.SymbolUID, key types.NodeKey) ([]store.Edge, error) {
		result, err := spec.call(c, ctx, key.File, line, col)
		if err != nil {
			return nil, err
		}
		edges := make([]store.Edge, 0, len(result.Items))
		for _, item := range result.Items {
			edges = append(edges, store.Edge{
				Relation:   spec.relation,
				SourceUID:  uid,
				TargetUID:  item.SymbolUID,
				FilePath:   item.File,
				StartLine:  item.Line,
				StartChar:  item.Column,
				Confidence: item.Confidence,
			})
		}
		return edges, nil
	}
}

// ComputeHover adapts a Client's Hover call into an lspcache.ComputeFunc for
// the Hover operation, the one operation with no edge-shaped answer and
// thus no queryhierarchy counterpart — it lives purely in the LSP cache
// tier.
func ComputeHover(c Client, ctx context.Context, file string, line, col int) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) {
		return c.Hover(ctx, file, line, col)
	}
}
