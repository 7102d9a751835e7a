// Package vectorstore provides the HNSW-backed approximate-nearest-
// neighbor index the vector search path and the BM25 preload both read
// from, extended with a metadata sidecar since coder/hnsw only persists
// vectors and keys, not chunk payloads.
package vectorstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/corpusforge/hybridcore/internal/chunk"
	"github.com/corpusforge/hybridcore/internal/searcherr"
)

// Store is the vector index as consumed by the searcher: ANN search for
// the vector retrieval path, full-corpus read for the BM25 preload, and
// the write path ingest uses to keep both in sync.
type Store interface {
	Initialize() error
	Exists() bool
	Search(ctx context.Context, vector []float32, k int) ([]chunk.Chunk, error)
	GetAllChunks() ([]chunk.Chunk, error)
	Add(key string, vector []float32, c chunk.Chunk) error
	AddBatch(keys []string, vectors [][]float32, chunks []chunk.Chunk) error
	Delete(key string) error
	Close() error
}

// HNSWStore is the concrete Store backed by an in-memory HNSW graph
// persisted to disk as a saved graph plus a JSON metadata sidecar.
type HNSWStore struct {
	mu       sync.RWMutex
	path     string
	graph    *hnsw.SavedGraph[string]
	meta     map[string]chunk.Chunk
	metaPath string
}

// New constructs a store rooted at path, without touching disk yet.
// Call Initialize before use.
func New(path string) *HNSWStore {
	return &HNSWStore{
		path:     path,
		metaPath: path + ".meta.json",
		meta:     make(map[string]chunk.Chunk),
	}
}

// Initialize opens the on-disk graph and metadata sidecar, creating both
// fresh if absent. Idempotent.
func (s *HNSWStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.graph != nil {
		return nil
	}

	g, err := hnsw.LoadSavedGraph[string](s.path)
	if err != nil {
		if os.IsNotExist(err) {
			g = &hnsw.SavedGraph[string]{
				Graph: hnsw.NewGraph[string](),
				Path:  s.path,
			}
		} else {
			return searcherr.VectorStore("loading vector store", err)
		}
	}
	g.Graph.Distance = hnsw.CosineDistance
	s.graph = g

	meta, err := loadMeta(s.metaPath)
	if err != nil {
		return searcherr.VectorStore("loading vector store metadata", err)
	}
	s.meta = meta

	return nil
}

func loadMeta(path string) (map[string]chunk.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]chunk.Chunk), nil
		}
		return nil, err
	}
	meta := make(map[string]chunk.Chunk)
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Exists reports whether the index has ever been initialized and
// contains at least one vector.
func (s *HNSWStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph != nil && s.graph.Len() > 0
}

// Search returns up to k hits nearest to vector, each tagged with its
// stored chunk payload and a cosine-similarity score in [0, 1].
func (s *HNSWStore) Search(ctx context.Context, vector []float32, k int) ([]chunk.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil || s.graph.Len() == 0 {
		return nil, nil
	}

	neighbors := s.graph.Search(vector, k)
	results := make([]chunk.Chunk, 0, len(neighbors))
	for _, n := range neighbors {
		// CosineDistance returns 0 for identical, 2 for opposite;
		// rescale to a [0, 1] similarity score.
		dist := s.graph.Distance(vector, n.Value)
		similarity := 1.0 - float64(dist)/2.0

		hit := s.meta[n.Key].Clone()
		hit.Score = similarity
		hit.MatchedBy = chunk.MatchedByVector
		results = append(results, hit)
	}
	return results, nil
}

// GetAllChunks returns every stored chunk payload, in no particular
// order, for the BM25 preload.
func (s *HNSWStore) GetAllChunks() ([]chunk.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]chunk.Chunk, 0, len(s.meta))
	for _, c := range s.meta {
		all = append(all, c.Clone())
	}
	return all, nil
}

// Add inserts or replaces the vector and payload for key.
func (s *HNSWStore) Add(key string, vector []float32, c chunk.Chunk) error {
	return s.AddBatch([]string{key}, [][]float32{vector}, []chunk.Chunk{c})
}

// AddBatch inserts or replaces vectors and payloads for keys in one
// pass.
func (s *HNSWStore) AddBatch(keys []string, vectors [][]float32, chunks []chunk.Chunk) error {
	if len(keys) != len(vectors) || len(keys) != len(chunks) {
		return searcherr.VectorStore("add batch: mismatched slice lengths", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]hnsw.Node[string], len(keys))
	for i := range keys {
		s.graph.Delete(keys[i])
		nodes[i] = hnsw.MakeNode(keys[i], vectors[i])
		s.meta[keys[i]] = chunks[i].Clone()
	}
	s.graph.Add(nodes...)
	return nil
}

// Delete removes the vector and payload stored under key.
func (s *HNSWStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.Delete(key)
	delete(s.meta, key)
	return nil
}

// Close persists the graph and metadata sidecar to disk.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.graph != nil {
		if err := s.graph.Save(); err != nil {
			return searcherr.VectorStore("saving vector store", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.metaPath), 0o755); err != nil {
		return searcherr.Io(err)
	}
	data, err := json.Marshal(s.meta)
	if err != nil {
		return searcherr.Json(err)
	}
	if err := os.WriteFile(s.metaPath, data, 0o644); err != nil {
		return searcherr.Io(err)
	}
	return nil
}
