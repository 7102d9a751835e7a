package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/corpusforge/hybridcore/internal/aggregate"
	"github.com/corpusforge/hybridcore/internal/chunk"
)

type fakeStore struct {
	exists bool
	chunks []chunk.Chunk
	vector []chunk.Chunk
}

func (f *fakeStore) Initialize() error { return nil }
func (f *fakeStore) Exists() bool      { return f.exists }
func (f *fakeStore) Search(ctx context.Context, vector []float32, k int) ([]chunk.Chunk, error) {
	if len(f.vector) > k {
		return f.vector[:k], nil
	}
	return f.vector, nil
}
func (f *fakeStore) GetAllChunks() ([]chunk.Chunk, error) { return f.chunks, nil }
func (f *fakeStore) Add(key string, vector []float32, c chunk.Chunk) error {
	return nil
}
func (f *fakeStore) AddBatch(keys []string, vectors [][]float32, chunks []chunk.Chunk) error {
	return nil
}
func (f *fakeStore) Delete(key string) error { return nil }
func (f *fakeStore) Close() error            { return nil }

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}
func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }

func newTestSearcher(t *testing.T, store *fakeStore, emb *fakeEmbedder) *Searcher {
	t.Helper()
	s, err := New(store, emb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	store := &fakeStore{exists: true}
	s := newTestSearcher(t, store, &fakeEmbedder{})

	resp, err := s.Search(context.Background(), Options{Query: "   "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 0 || resp.Results != nil {
		t.Errorf("expected empty response, got %+v", resp)
	}
	if resp.IndexMissing {
		t.Error("expected IndexMissing false on empty query short circuit")
	}
}

func TestSearchIndexNotBuilt(t *testing.T) {
	store := &fakeStore{exists: false}
	s := newTestSearcher(t, store, &fakeEmbedder{})

	resp, err := s.Search(context.Background(), Options{Query: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IndexMissing {
		t.Error("expected IndexMissing true when store.Exists() is false")
	}
}

func TestSearchKeywordMode(t *testing.T) {
	store := &fakeStore{
		exists: true,
		chunks: []chunk.Chunk{
			{FilePath: "a.md", Content: "hello world"},
			{FilePath: "b.md", Content: "unrelated content"},
		},
	}
	s := newTestSearcher(t, store, &fakeEmbedder{})

	resp, err := s.Search(context.Background(), Options{Query: "hello", Mode: ModeKeyword, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].FilePath != "a.md" {
		t.Fatalf("unexpected keyword results: %+v", resp.Results)
	}
	if resp.Results[0].MatchedBy != chunk.MatchedByKeyword {
		t.Errorf("expected matched_by=keyword, got %s", resp.Results[0].MatchedBy)
	}
}

func TestSearchVectorMode(t *testing.T) {
	store := &fakeStore{
		exists: true,
		vector: []chunk.Chunk{{FilePath: "v.md", Score: 0.9}},
	}
	s := newTestSearcher(t, store, &fakeEmbedder{vec: []float32{1, 0, 0}})

	resp, err := s.Search(context.Background(), Options{Query: "hello", Mode: ModeVector, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].FilePath != "v.md" {
		t.Fatalf("unexpected vector results: %+v", resp.Results)
	}
	if resp.Results[0].MatchedBy != chunk.MatchedByVector {
		t.Errorf("expected matched_by=vector, got %s", resp.Results[0].MatchedBy)
	}
}

func TestSearchVectorModePropagatesEmbeddingError(t *testing.T) {
	store := &fakeStore{exists: true}
	s := newTestSearcher(t, store, &fakeEmbedder{err: errors.New("embedding down")})

	_, err := s.Search(context.Background(), Options{Query: "hello", Mode: ModeVector})
	if err == nil {
		t.Fatal("expected error to propagate from embedding failure")
	}
}

func TestSearchHybridModeFuses(t *testing.T) {
	store := &fakeStore{
		exists: true,
		chunks: []chunk.Chunk{
			{FilePath: "shared.md", Content: "hello shared world"},
		},
		vector: []chunk.Chunk{{FilePath: "shared.md", Score: 0.8}},
	}
	s := newTestSearcher(t, store, &fakeEmbedder{vec: []float32{1, 0, 0}})

	resp, err := s.Search(context.Background(), Options{Query: "hello", Mode: ModeHybrid, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 fused result, got %d", resp.Count)
	}
	if resp.Results[0].MatchedBy != chunk.MatchedByHybrid {
		t.Errorf("expected matched_by=hybrid for a chunk found by both, got %s", resp.Results[0].MatchedBy)
	}
}

func TestSearchDocTypeFilter(t *testing.T) {
	store := &fakeStore{
		exists: true,
		chunks: []chunk.Chunk{
			{FilePath: "idea.md", Content: "brainstorm notes", DocType: chunk.DocTypeIdea},
			{FilePath: "doc.md", Content: "brainstorm document"},
		},
	}
	s := newTestSearcher(t, store, &fakeEmbedder{})

	resp, err := s.Search(context.Background(), Options{Query: "brainstorm", Mode: ModeKeyword, Limit: 10, DocType: "idea"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].FilePath != "idea.md" {
		t.Fatalf("expected only idea.md to survive the doc_type filter, got %+v", resp.Results)
	}
}

func TestSearchAggregateByDoc(t *testing.T) {
	store := &fakeStore{
		exists: true,
		chunks: []chunk.Chunk{
			{FilePath: "a.md", Content: "hello one"},
			{FilePath: "a.md", Content: "hello two"},
		},
	}
	s := newTestSearcher(t, store, &fakeEmbedder{})

	resp, err := s.Search(context.Background(), Options{Query: "hello", Mode: ModeKeyword, Limit: 10, AggregateBy: aggregate.ByDoc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 doc-aggregated result, got %d", resp.Count)
	}
	if resp.Results[0].AggregateType != chunk.AggregateDoc {
		t.Errorf("expected aggregate_type=doc, got %s", resp.Results[0].AggregateType)
	}
	if resp.Results[0].HitCount != 2 {
		t.Errorf("expected hit_count 2, got %d", resp.Results[0].HitCount)
	}
}

func TestRefreshPicksUpNewChunks(t *testing.T) {
	store := &fakeStore{
		exists: true,
		chunks: []chunk.Chunk{{FilePath: "a.md", Content: "hello world"}},
	}
	s := newTestSearcher(t, store, &fakeEmbedder{})

	resp, err := s.Search(context.Background(), Options{Query: "added", Mode: ModeKeyword, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("expected no hits before refresh, got %d", resp.Count)
	}

	store.chunks = append(store.chunks, chunk.Chunk{FilePath: "b.md", Content: "added later"})
	if err := s.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	resp, err = s.Search(context.Background(), Options{Query: "added", Mode: ModeKeyword, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].FilePath != "b.md" {
		t.Fatalf("expected refresh to pick up b.md, got %+v", resp.Results)
	}
}

func TestIndexExistsDelegates(t *testing.T) {
	store := &fakeStore{exists: true}
	s := newTestSearcher(t, store, &fakeEmbedder{})
	if !s.IndexExists() {
		t.Error("expected IndexExists to delegate true")
	}
}
