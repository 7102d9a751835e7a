// Package searcher is the retrieval orchestrator: it owns the vector
// store, the embedding client, and the preloaded BM25 corpus, and
// drives the mode-routing/filter/aggregate pipeline. Hybrid mode fans
// the vector and keyword sub-searches out concurrently with errgroup
// and fuses them with RRF.
package searcher

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/corpusforge/hybridcore/internal/aggregate"
	"github.com/corpusforge/hybridcore/internal/bm25"
	"github.com/corpusforge/hybridcore/internal/chunk"
	"github.com/corpusforge/hybridcore/internal/embedding"
	"github.com/corpusforge/hybridcore/internal/rrf"
	"github.com/corpusforge/hybridcore/internal/searcherr"
	"github.com/corpusforge/hybridcore/internal/vectorstore"
)

// Mode selects which retrieval pipeline answers a query.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeKeyword Mode = "keyword"
	ModeHybrid  Mode = "hybrid"
)

// Options configures a single Search call.
type Options struct {
	Query       string
	Mode        Mode
	Limit       int
	AggregateBy aggregate.By
	DocType     string
}

// Response is the result envelope returned by Search.
type Response struct {
	Query        string
	Count        int
	Results      []chunk.Chunk
	Mode         Mode
	AggregateBy  aggregate.By
	IndexMissing bool
	Error        string
}

// Searcher orchestrates vector search, keyword search, fusion, and
// aggregation over one vector store and one preloaded BM25 index. The
// corpus backing the BM25 index lives in a chunk.Store: Refresh builds
// a new Snapshot and a new bm25.Index from it and swaps both in, so a
// query in flight always sees one fully-loaded corpus, never a mix of
// old and new chunks.
type Searcher struct {
	store    vectorstore.Store
	embedder embedding.Client
	corpus   *chunk.Store
	bm25Idx  atomic.Pointer[bm25.Index]
}

// New initializes the vector store, constructs the embedding client
// wiring, and preloads the full corpus into a BM25 index. Failures
// surface as configuration/IO errors.
func New(store vectorstore.Store, embedder embedding.Client) (*Searcher, error) {
	if err := store.Initialize(); err != nil {
		return nil, err
	}

	chunks, err := store.GetAllChunks()
	if err != nil {
		return nil, searcherr.Index("preloading chunks for keyword search", err)
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		corpus:   chunk.NewStore(chunks),
	}
	s.bm25Idx.Store(bm25.Build(s.corpus.Load()))
	return s, nil
}

// IndexExists delegates to the vector store's existence probe.
func (s *Searcher) IndexExists() bool {
	return s.store.Exists()
}

// Refresh reloads the full chunk corpus from the vector store and
// rebuilds the BM25 index over it, then swaps both into place. Meant
// to be driven by an events.Bus subscription in a long-lived watch
// process, where the corpus changes underneath a Searcher that was
// constructed once at startup.
func (s *Searcher) Refresh() error {
	chunks, err := s.store.GetAllChunks()
	if err != nil {
		return searcherr.Index("refreshing keyword search corpus", err)
	}
	s.corpus.Swap(chunks)
	s.bm25Idx.Store(bm25.Build(s.corpus.Load()))
	return nil
}

// Search runs the full pipeline: trim/short-circuit, index presence
// check, mode-specific retrieval, doc_type filter, aggregation.
func (s *Searcher) Search(ctx context.Context, opts Options) (Response, error) {
	query := strings.TrimSpace(opts.Query)
	mode := opts.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	aggBy := opts.AggregateBy
	if aggBy == "" {
		aggBy = aggregate.ByContent
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	if query == "" {
		return Response{Query: query, Mode: mode, AggregateBy: aggBy}, nil
	}

	if !s.store.Exists() {
		return Response{Query: query, Mode: mode, AggregateBy: aggBy, IndexMissing: true}, nil
	}

	searchLimit := limit
	if aggBy != aggregate.ByContent {
		searchLimit = limit * 5
	}

	hits, err := s.retrieve(ctx, mode, query, searchLimit)
	if err != nil {
		if searcherr.IsIndexNotBuilt(err) {
			return Response{Query: query, Mode: mode, AggregateBy: aggBy, IndexMissing: true}, nil
		}
		return Response{}, err
	}

	if opts.DocType != "" {
		hits = filterDocType(hits, opts.DocType)
	}

	results := aggregate.Aggregate(hits, aggBy, limit)

	return Response{
		Query:       query,
		Count:       len(results),
		Results:     results,
		Mode:        mode,
		AggregateBy: aggBy,
	}, nil
}

func filterDocType(hits []chunk.Chunk, filter string) []chunk.Chunk {
	out := make([]chunk.Chunk, 0, len(hits))
	for _, h := range hits {
		if chunk.MatchesDocTypeFilter(h, filter) {
			out = append(out, h)
		}
	}
	return out
}

func (s *Searcher) retrieve(ctx context.Context, mode Mode, query string, limit int) ([]chunk.Chunk, error) {
	switch mode {
	case ModeVector:
		return s.vectorSearch(ctx, query, limit)
	case ModeKeyword:
		return s.bm25Idx.Load().Search(query, limit), nil
	default:
		return s.hybridSearch(ctx, query, limit)
	}
}

// vectorSearch embeds the query and queries the vector store, tagging
// every hit MatchedBy=vector.
func (s *Searcher) vectorSearch(ctx context.Context, query string, limit int) ([]chunk.Chunk, error) {
	vec, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.store.Search(ctx, vec, limit)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].MatchedBy = chunk.MatchedByVector
	}
	return hits, nil
}

// hybridSearch runs the vector and keyword sub-searches concurrently
// over a 3x candidate pool and fuses them with RRF.
func (s *Searcher) hybridSearch(ctx context.Context, query string, limit int) ([]chunk.Chunk, error) {
	candidateLimit := limit * 3

	var vectorHits, keywordHits []chunk.Chunk

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.vectorSearch(gctx, query, candidateLimit)
		vectorHits = hits
		return err
	})
	bm25Idx := s.bm25Idx.Load()
	g.Go(func() error {
		keywordHits = bm25Idx.Search(query, candidateLimit)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return rrf.Fuse(vectorHits, keywordHits, limit), nil
}
