// Package store is the durable, content-addressed symbol & edge graph: one
// bbolt file per workspace holding file-versions, symbol states, and typed
// edges, including the None_* sentinel edges that turn repeated empty LSP
// answers into O(1) hits.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/standardbeagle/lspcached/internal/errors"
	"github.com/standardbeagle/lspcached/internal/types"
)

var (
	bucketFileVersions  = []byte("file_versions")   // path -> FileVersion
	bucketDigestIndex   = []byte("digest_index")    // content_digest -> path
	bucketSymbols       = []byte("symbols")         // uid\x00fileVersionID -> SymbolState
	bucketSymbolsByName = []byte("symbols_by_name") // name\x00uid\x00fileVersionID -> nil (index)
	bucketEdges         = []byte("edges")           // source_uid\x00relation\x00target_uid\x00fileVersionID -> Edge
)

// FileVersion records one observed content state of a workspace-relative
// path. The same ContentDigest may be shared across paths (content dedup).
type FileVersion struct {
	ID            uint64
	WorkspaceID   types.WorkspaceID
	Path          string
	ContentDigest string
	Size          int64
	Mtime         int64
	Language      string
}

// SymbolState is one definition or reference observation of a symbol within
// a specific file version.
type SymbolState struct {
	SymbolUID     types.SymbolUID
	FileVersionID uint64
	Language      string
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
}

// Edge is one typed relationship between two symbols, or a None_* sentinel
// recording a definitively empty query result for SourceUID.
type Edge struct {
	Relation    types.EdgeRelation
	SourceUID   types.SymbolUID
	TargetUID   types.SymbolUID
	FilePath    string
	StartLine   int
	StartChar   int
	Confidence  float64
	Language    string
	FileVersionID uint64
}

// Store is a workspace-scoped handle onto one bbolt database file.
type Store struct {
	db          *bbolt.DB
	workspaceID types.WorkspaceID
	nextFileID  uint64
}

// Open opens (creating if absent) the bbolt file at path for workspaceID,
// ensuring all buckets exist.
func Open(path string, workspaceID types.WorkspaceID) (*Store, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.NewStoreError("open", err)
	}

	s := &Store{db: db, workspaceID: workspaceID}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketFileVersions, bucketDigestIndex, bucketSymbols, bucketSymbolsByName, bucketEdges} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.NewStoreError("init_buckets", err)
	}

	if err := s.loadNextFileID(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close flushes and closes the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadNextFileID() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFileVersions)
		var max uint64
		return b.ForEach(func(_, v []byte) error {
			var fv FileVersion
			if err := json.Unmarshal(v, &fv); err != nil {
				return nil
			}
			if fv.ID > max {
				max = fv.ID
			}
			s.nextFileID = max + 1
			return nil
		})
	})
}

// UpsertFileVersion records a new content state for path, replacing any
// prior version's edges atomically if the digest differs, per §4.4's
// "edges are replaced en masse when superseded" invariant.
func (s *Store) UpsertFileVersion(path, digest string, size, mtime int64, language string) (FileVersion, error) {
	var result FileVersion

	err := s.db.Update(func(tx *bbolt.Tx) error {
		fvBucket := tx.Bucket(bucketFileVersions)
		digestBucket := tx.Bucket(bucketDigestIndex)
		edgeBucket := tx.Bucket(bucketEdges)
		symBucket := tx.Bucket(bucketSymbols)
		nameBucket := tx.Bucket(bucketSymbolsByName)

		var existing FileVersion
		hadExisting := false
		if raw := fvBucket.Get([]byte(path)); raw != nil {
			if err := json.Unmarshal(raw, &existing); err == nil {
				hadExisting = true
			}
		}

		if hadExisting && existing.ContentDigest == digest {
			result = existing
			return nil
		}

		if hadExisting {
			if err := removeFileVersionData(edgeBucket, symBucket, nameBucket, existing.ID); err != nil {
				return err
			}
			digestBucket.Delete([]byte(existing.ContentDigest))
		}

		id := s.nextFileID
		s.nextFileID++

		fv := FileVersion{
			ID:            id,
			WorkspaceID:   s.workspaceID,
			Path:          path,
			ContentDigest: digest,
			Size:          size,
			Mtime:         mtime,
			Language:      language,
		}
		raw, err := json.Marshal(fv)
		if err != nil {
			return err
		}
		if err := fvBucket.Put([]byte(path), raw); err != nil {
			return err
		}
		if err := digestBucket.Put([]byte(digest), []byte(path)); err != nil {
			return err
		}

		result = fv
		return nil
	})

	if err != nil {
		return FileVersion{}, errors.NewStoreError("upsert_file_version", err)
	}
	return result, nil
}

// removeFileVersionData deletes every symbol and edge keyed under
// fileVersionID, run inside the same transaction as the version swap.
func removeFileVersionData(edgeBucket, symBucket, nameBucket *bbolt.Bucket, fileVersionID uint64) error {
	suffix := []byte(fmt.Sprintf("\x00%d", fileVersionID))

	var symKeysToDelete [][]byte
	c := symBucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if hasSuffix(k, suffix) {
			symKeysToDelete = append(symKeysToDelete, append([]byte(nil), k...))
			var st SymbolState
			if err := json.Unmarshal(v, &st); err == nil {
				nameKey := []byte(st.Name + "\x00" + string(k))
				nameBucket.Delete(nameKey)
			}
		}
	}
	for _, k := range symKeysToDelete {
		if err := symBucket.Delete(k); err != nil {
			return err
		}
	}

	var edgeKeysToDelete [][]byte
	ec := edgeBucket.Cursor()
	for k, _ := ec.First(); k != nil; k, _ = ec.Next() {
		if hasSuffix(k, suffix) {
			edgeKeysToDelete = append(edgeKeysToDelete, append([]byte(nil), k...))
		}
	}
	for _, k := range edgeKeysToDelete {
		if err := edgeBucket.Delete(k); err != nil {
			return err
		}
	}

	return nil
}

func hasSuffix(b, suffix []byte) bool {
	return len(b) >= len(suffix) && string(b[len(b)-len(suffix):]) == string(suffix)
}

// GetFileVersionByDigest returns the FileVersion currently recorded under
// digest, if any.
func (s *Store) GetFileVersionByDigest(digest string) (FileVersion, bool, error) {
	var fv FileVersion
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		path := tx.Bucket(bucketDigestIndex).Get([]byte(digest))
		if path == nil {
			return nil
		}
		raw := tx.Bucket(bucketFileVersions).Get(path)
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &fv); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return FileVersion{}, false, errors.NewStoreError("get_file_version_by_digest", err)
	}
	return fv, found, nil
}

// DigestForPath implements internal/detector.KnownVersions.
func (s *Store) DigestForPath(_ types.WorkspaceID, path string) (string, bool) {
	var digest string
	found := false
	s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketFileVersions).Get([]byte(path))
		if raw == nil {
			return nil
		}
		var fv FileVersion
		if err := json.Unmarshal(raw, &fv); err != nil {
			return nil
		}
		digest = fv.ContentDigest
		found = true
		return nil
	})
	return digest, found
}

// PathForDigest implements internal/detector.KnownVersions.
func (s *Store) PathForDigest(_ types.WorkspaceID, digest string, exclude string) (string, bool) {
	var path string
	found := false
	s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketDigestIndex).Get([]byte(digest))
		if raw == nil || string(raw) == exclude {
			return nil
		}
		path = string(raw)
		found = true
		return nil
	})
	return path, found
}

// KnownPaths implements internal/detector.KnownVersions.
func (s *Store) KnownPaths(_ types.WorkspaceID) []string {
	var paths []string
	s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFileVersions).ForEach(func(k, _ []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	return paths
}

// DeletePath removes a file version and everything keyed under it, used
// when the detector reports a Delete change.
func (s *Store) DeletePath(path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		fvBucket := tx.Bucket(bucketFileVersions)
		raw := fvBucket.Get([]byte(path))
		if raw == nil {
			return nil
		}
		var fv FileVersion
		if err := json.Unmarshal(raw, &fv); err != nil {
			return err
		}
		if err := removeFileVersionData(tx.Bucket(bucketEdges), tx.Bucket(bucketSymbols), tx.Bucket(bucketSymbolsByName), fv.ID); err != nil {
			return err
		}
		tx.Bucket(bucketDigestIndex).Delete([]byte(fv.ContentDigest))
		return fvBucket.Delete([]byte(path))
	})
}

// AllFileVersions returns every FileVersion currently recorded, for admin
// operations (cache manager stats/export) that need to walk the whole
// workspace rather than look up a single path.
func (s *Store) AllFileVersions() ([]FileVersion, error) {
	var out []FileVersion
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFileVersions).ForEach(func(_, v []byte) error {
			var fv FileVersion
			if err := json.Unmarshal(v, &fv); err != nil {
				return nil
			}
			out = append(out, fv)
			return nil
		})
	})
	if err != nil {
		return nil, errors.NewStoreError("all_file_versions", err)
	}
	return out, nil
}

// FileVersionByID looks up a FileVersion by its numeric ID, scanning the
// file-versions bucket since it is keyed by path, not ID. Used only by
// admin paths (export, stats) where an occasional O(n) scan is acceptable.
func (s *Store) FileVersionByID(id uint64) (FileVersion, bool, error) {
	versions, err := s.AllFileVersions()
	if err != nil {
		return FileVersion{}, false, err
	}
	for _, fv := range versions {
		if fv.ID == id {
			return fv, true, nil
		}
	}
	return FileVersion{}, false, nil
}

// ListAllSymbols returns every SymbolState in the store.
func (s *Store) ListAllSymbols() ([]SymbolState, error) {
	var out []SymbolState
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSymbols).ForEach(func(_, v []byte) error {
			var st SymbolState
			if err := json.Unmarshal(v, &st); err != nil {
				return nil
			}
			out = append(out, st)
			return nil
		})
	})
	if err != nil {
		return nil, errors.NewStoreError("list_all_symbols", err)
	}
	return out, nil
}

// Stats reports bucket-level counts used by the cache manager's
// get_stats operation.
type Stats struct {
	FileVersions int
	Symbols      int
	Edges        int
	OnDiskBytes  int64
}

// Stats reports the store's current size.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		st.FileVersions = tx.Bucket(bucketFileVersions).Stats().KeyN
		st.Symbols = tx.Bucket(bucketSymbols).Stats().KeyN
		st.Edges = tx.Bucket(bucketEdges).Stats().KeyN
		st.OnDiskBytes = tx.Size()
		return nil
	})
	if err != nil {
		return Stats{}, errors.NewStoreError("stats", err)
	}
	return st, nil
}

// Compact rewrites the underlying bbolt file via a fresh copy, reclaiming
// space left by deleted keys (bbolt never shrinks its file in place).
func (s *Store) Compact(destPath string) error {
	dst, err := bbolt.Open(destPath, 0644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return errors.NewStoreError("compact_open_dest", err)
	}
	defer dst.Close()

	err = dst.Update(func(dstTx *bbolt.Tx) error {
		return s.db.View(func(srcTx *bbolt.Tx) error {
			return srcTx.ForEach(func(name []byte, b *bbolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return b.ForEach(func(k, v []byte) error {
					return dstBucket.Put(append([]byte(nil), k...), append([]byte(nil), v...))
				})
			})
		})
	})
	if err != nil {
		return errors.NewStoreError("compact_copy", err)
	}
	return nil
}

func symbolKey(uid types.SymbolUID, fileVersionID uint64) []byte {
	return []byte(fmt.Sprintf("%s\x00%d", uid, fileVersionID))
}

// StoreSymbols batch-inserts symbol states, idempotent on (uid,
// file_version_id).
func (s *Store) StoreSymbols(states []SymbolState) error {
	if len(states) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		symBucket := tx.Bucket(bucketSymbols)
		nameBucket := tx.Bucket(bucketSymbolsByName)
		for _, st := range states {
			key := symbolKey(st.SymbolUID, st.FileVersionID)
			raw, err := json.Marshal(st)
			if err != nil {
				return err
			}
			if err := symBucket.Put(key, raw); err != nil {
				return err
			}
			nameKey := []byte(st.Name + "\x00" + string(key))
			if err := nameBucket.Put(nameKey, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewStoreError("store_symbols", err)
	}
	return nil
}

// GetSymbolsByFile returns every SymbolState recorded under fileVersionID,
// optionally filtered by language.
func (s *Store) GetSymbolsByFile(fileVersionID uint64, language string) ([]SymbolState, error) {
	suffix := []byte(fmt.Sprintf("\x00%d", fileVersionID))
	var out []SymbolState

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSymbols).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !hasSuffix(k, suffix) {
				continue
			}
			var st SymbolState
			if err := json.Unmarshal(v, &st); err != nil {
				continue
			}
			if language != "" && st.Language != language {
				continue
			}
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewStoreError("get_symbols_by_file", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SymbolUID < out[j].SymbolUID })
	return out, nil
}

// FindSymbolByName returns every SymbolState whose Name matches exactly.
func (s *Store) FindSymbolByName(name string) ([]SymbolState, error) {
	prefix := []byte(name + "\x00")
	var out []SymbolState

	err := s.db.View(func(tx *bbolt.Tx) error {
		symBucket := tx.Bucket(bucketSymbols)
		c := tx.Bucket(bucketSymbolsByName).Cursor()
		for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
			symKey := k[len(prefix):]
			raw := symBucket.Get(symKey)
			if raw == nil {
				continue
			}
			var st SymbolState
			if err := json.Unmarshal(raw, &st); err != nil {
				continue
			}
			out = append(out, st)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewStoreError("find_symbol_by_name", err)
	}
	return out, nil
}

func edgeKey(e Edge) []byte {
	return []byte(fmt.Sprintf("%s\x00%s\x00%s\x00%d", e.SourceUID, e.Relation, e.TargetUID, e.FileVersionID))
}

// StoreEdges batch-inserts edges, idempotent on
// (source_uid,relation,target_uid,file_version_id). None-edges use
// types.NoneTarget as TargetUID and are never merged with positive edges
// for the same relation from the same source.
func (s *Store) StoreEdges(edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEdges)
		for _, e := range edges {
			if e.Confidence == 0 {
				e.Confidence = 1.0
			}
			raw, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := b.Put(edgeKey(e), raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewStoreError("store_edges", err)
	}
	return nil
}

// edgesFrom returns every edge with the given source and relation.
func (s *Store) edgesFrom(uid types.SymbolUID, relation types.EdgeRelation) ([]Edge, error) {
	prefix := []byte(fmt.Sprintf("%s\x00%s\x00", uid, relation))
	var out []Edge

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEdges).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var e Edge
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// QueryResult distinguishes "definitively empty" (a None_* edge was found)
// from "unknown" (no edges recorded at all, the LSP server must be asked).
type QueryResult struct {
	Edges []Edge
	Known bool // true if either positive edges or a None_* edge exist
}

// QueryRelation exposes the positive/none-edge lookup for a caller-chosen
// relation pair, for callers (such as the unified query hierarchy) that
// dispatch on an Operation rather than calling the Get*ForSymbol helpers
// directly.
func (s *Store) QueryRelation(uid types.SymbolUID, relation, noneRelation types.EdgeRelation) (QueryResult, error) {
	return s.queryRelation(uid, relation, noneRelation)
}

func (s *Store) queryRelation(uid types.SymbolUID, relation, noneRelation types.EdgeRelation) (QueryResult, error) {
	positive, err := s.edgesFrom(uid, relation)
	if err != nil {
		return QueryResult{}, errors.NewStoreError("query_relation", err)
	}
	if len(positive) > 0 {
		return QueryResult{Edges: positive, Known: true}, nil
	}

	none, err := s.edgesFrom(uid, noneRelation)
	if err != nil {
		return QueryResult{}, errors.NewStoreError("query_relation", err)
	}
	if len(none) > 0 {
		return QueryResult{Edges: nil, Known: true}, nil
	}

	return QueryResult{Edges: nil, Known: false}, nil
}

// GetCallHierarchyForSymbol returns outgoing Calls edges for uid.
func (s *Store) GetCallHierarchyForSymbol(uid types.SymbolUID) (QueryResult, error) {
	return s.queryRelation(uid, types.RelationCalls, types.RelationNoneCallHier)
}

// GetReferencesForSymbol returns References edges for uid. includeDeclaration
// is accepted for interface symmetry with the LSP operation; the store does
// not distinguish declaration references from usage references.
func (s *Store) GetReferencesForSymbol(uid types.SymbolUID, includeDeclaration bool) (QueryResult, error) {
	_ = includeDeclaration
	return s.queryRelation(uid, types.RelationReferences, types.RelationNoneReferences)
}

// GetDefinitionsForSymbol returns Defines edges for uid.
func (s *Store) GetDefinitionsForSymbol(uid types.SymbolUID) (QueryResult, error) {
	return s.queryRelation(uid, types.RelationDefines, types.RelationNoneDefs)
}

// GetImplementationsForSymbol returns Implements edges for uid.
func (s *Store) GetImplementationsForSymbol(uid types.SymbolUID) (QueryResult, error) {
	return s.queryRelation(uid, types.RelationImplements, types.RelationNoneImpls)
}
