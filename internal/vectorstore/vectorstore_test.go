package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/corpusforge/hybridcore/internal/chunk"
)

func mustInit(t *testing.T, path string) *HNSWStore {
	t.Helper()
	s := New(path)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func TestAddAndSearch(t *testing.T) {
	store := mustInit(t, filepath.Join(t.TempDir(), "test.graph"))
	defer store.Close()

	ctx := context.Background()
	_ = store.Add("doc1:0", []float32{1.0, 0.0, 0.0}, chunk.Chunk{FilePath: "doc1.md", Content: "a"})
	_ = store.Add("doc1:1", []float32{0.9, 0.1, 0.0}, chunk.Chunk{FilePath: "doc1.md", Content: "b"})
	_ = store.Add("doc2:0", []float32{0.0, 1.0, 0.0}, chunk.Chunk{FilePath: "doc2.md", Content: "c"})

	if !store.Exists() {
		t.Fatal("expected store to report existing after adds")
	}

	results, err := store.Search(ctx, []float32{0.95, 0.05, 0.0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].FilePath != "doc1.md" {
		t.Errorf("expected doc1.md as top result, got %s", results[0].FilePath)
	}
	for _, r := range results {
		if r.Score <= 0 {
			t.Errorf("expected positive score, got %f", r.Score)
		}
		if r.MatchedBy != chunk.MatchedByVector {
			t.Errorf("expected matched_by=vector, got %s", r.MatchedBy)
		}
	}
}

func TestSearchContextCancelled(t *testing.T) {
	store := mustInit(t, filepath.Join(t.TempDir(), "test.graph"))
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Search(ctx, []float32{1.0}, 1)
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestEmptySearch(t *testing.T) {
	store := mustInit(t, filepath.Join(t.TempDir(), "test.graph"))
	defer store.Close()

	if store.Exists() {
		t.Error("expected fresh store to report not existing")
	}

	results, err := store.Search(context.Background(), []float32{1.0, 0.0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for empty store, got %d", len(results))
	}
}

func TestDelete(t *testing.T) {
	store := mustInit(t, filepath.Join(t.TempDir(), "test.graph"))
	defer store.Close()

	_ = store.Add("key1", []float32{1.0, 0.0}, chunk.Chunk{FilePath: "a.md"})
	_ = store.Add("key2", []float32{0.0, 1.0}, chunk.Chunk{FilePath: "b.md"})

	if err := store.Delete("key1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	all, err := store.GetAllChunks()
	if err != nil {
		t.Fatalf("GetAllChunks: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 remaining chunk, got %d", len(all))
	}
	if all[0].FilePath != "b.md" {
		t.Errorf("expected b.md to remain, got %s", all[0].FilePath)
	}
}

func TestAddBatchMismatchedLengths(t *testing.T) {
	store := mustInit(t, filepath.Join(t.TempDir(), "test.graph"))
	defer store.Close()

	err := store.AddBatch([]string{"a", "b"}, [][]float32{{1.0}}, []chunk.Chunk{{FilePath: "a.md"}})
	if err == nil {
		t.Error("expected error for mismatched slice lengths")
	}
}

func TestGetAllChunksForBM25Preload(t *testing.T) {
	store := mustInit(t, filepath.Join(t.TempDir(), "test.graph"))
	defer store.Close()

	keys := []string{"a", "b", "c"}
	vecs := [][]float32{{1.0, 0.0, 0.0}, {0.0, 1.0, 0.0}, {0.0, 0.0, 1.0}}
	chunks := []chunk.Chunk{
		{FilePath: "a.md", Content: "alpha"},
		{FilePath: "b.md", Content: "beta"},
		{FilePath: "c.md", Content: "gamma"},
	}
	if err := store.AddBatch(keys, vecs, chunks); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	all, err := store.GetAllChunks()
	if err != nil {
		t.Fatalf("GetAllChunks: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(all))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.graph")

	store := mustInit(t, path)
	_ = store.Add("key1", []float32{1.0, 0.0, 0.0}, chunk.Chunk{FilePath: "one.md"})
	_ = store.Add("key2", []float32{0.0, 1.0, 0.0}, chunk.Chunk{FilePath: "two.md"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded := mustInit(t, path)
	defer reloaded.Close()

	if !reloaded.Exists() {
		t.Fatal("expected reloaded store to report existing")
	}

	all, err := reloaded.GetAllChunks()
	if err != nil {
		t.Fatalf("GetAllChunks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 chunks after reload, got %d", len(all))
	}

	results, err := reloaded.Search(context.Background(), []float32{0.9, 0.1, 0.0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].FilePath != "one.md" {
		t.Errorf("expected one.md as top result after reload, got %+v", results)
	}
}
