// Package bm25 implements the lexical relevance scorer: BM25+ with a
// precomputed index over a chunk.Snapshot (postings, document lengths,
// and document frequencies are computed once per snapshot rather than
// on every query).
package bm25

import (
	"math"
	"sort"

	"github.com/corpusforge/hybridcore/internal/chunk"
	"github.com/corpusforge/hybridcore/internal/tokenize"
)

// K1 and B are the standard BM25 term-frequency-saturation and
// document-length-normalization parameters.
const (
	K1 = 1.2
	B  = 0.75
)

// Index is a precomputed BM25 index over one corpus snapshot. Build it
// once per snapshot and reuse it for every query against that snapshot.
type Index struct {
	chunks    []chunk.Chunk
	termFreqs []map[string]int // per-chunk term frequency, aligned with chunks
	docLens   []int            // per-chunk token count, aligned with chunks
	postings  map[string][]int // term -> chunk indices containing it (document frequency = len)
	avgLen    float64
}

// Build tokenizes every chunk's content+heading_path and computes the
// posting lists, document lengths, and average length needed to score
// queries against this snapshot.
func Build(snap *chunk.Snapshot) *Index {
	idx := &Index{
		chunks:    snap.Chunks,
		termFreqs: make([]map[string]int, len(snap.Chunks)),
		docLens:   make([]int, len(snap.Chunks)),
		postings:  make(map[string][]int),
	}

	var totalLen int
	for i, c := range snap.Chunks {
		tokens := tokenize.Tokenize(c.Content + " " + c.HeadingPath)
		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}
		idx.termFreqs[i] = freq
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)

		for t := range freq {
			idx.postings[t] = append(idx.postings[t], i)
		}
	}

	if len(snap.Chunks) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(snap.Chunks))
	} else {
		idx.avgLen = 1.0
	}

	return idx
}

// Search scores query against the precomputed index and returns up to
// limit hits, normalized into (0, 1] with the top hit at exactly 1.0,
// tagged MatchedBy=keyword.
func (idx *Index) Search(query string, limit int) []chunk.Chunk {
	queryTokens := tokenize.Tokenize(query)
	if len(queryTokens) == 0 || len(idx.chunks) == 0 {
		return nil
	}

	n := float64(len(idx.chunks))
	scores := make(map[int]float64)

	for _, term := range queryTokens {
		chunkIdxs, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := float64(len(chunkIdxs))
		idf := logIDF(n, df)

		for _, ci := range chunkIdxs {
			tf := float64(idx.termFreqs[ci][term])
			dl := float64(idx.docLens[ci])
			tfNorm := (tf * (K1 + 1)) / (tf + K1*(1-B+B*dl/idx.avgLen))
			scores[ci] += idf * tfNorm
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for ci, s := range scores {
		if s > 0 {
			ranked = append(ranked, scored{ci, s})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	maxScore := 0.0
	if len(ranked) > 0 {
		maxScore = ranked[0].score
	}

	results := make([]chunk.Chunk, 0, len(ranked))
	for _, r := range ranked {
		hit := idx.chunks[r.idx].Clone()
		if maxScore > 0 {
			hit.Score = r.score / maxScore
		} else {
			hit.Score = 0
		}
		hit.MatchedBy = chunk.MatchedByKeyword
		results = append(results, hit)
	}
	return results
}

// logIDF computes the BM25+ style IDF: ln((N - df + 0.5)/(df + 0.5) + 1),
// which is guaranteed non-negative for df in [0, N].
func logIDF(n, df float64) float64 {
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}
