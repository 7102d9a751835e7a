// Package rrf implements Reciprocal Rank Fusion, combining a vector
// ranking and a keyword ranking into a single fused ranking.
package rrf

import (
	"sort"

	"github.com/corpusforge/hybridcore/internal/chunk"
)

// K is the RRF smoothing constant.
const K = 60

// VectorWeight and KeywordWeight scale each source's contribution.
const (
	VectorWeight  = 0.7
	KeywordWeight = 0.3
)

type entry struct {
	hit        chunk.Chunk
	score      float64
	fromVector bool
	fromKword  bool
}

// Fuse combines vector and keyword result lists into one ranked,
// truncated list.
//
// A chunk is uniquely keyed within fusion by (file_path, line_start ??
// 0); two chunks sharing this key — even across the two input lists —
// are treated as the same candidate. When vector-store hits lack
// line_start this key collapses to file_path:0, which can make
// distinct chunks from the same file indistinguishable; that collision
// is preserved here rather than papered over.
//
// On first insertion the hit payload is taken from whichever list
// contributed it first; later contributions to the same key only
// update the score and source set, never the payload. matched_by is
// set to hybrid when both sources contributed, else to whichever
// single source did.
func Fuse(vector, keyword []chunk.Chunk, limit int) []chunk.Chunk {
	entries := make(map[string]*entry)
	order := make([]string, 0, len(vector)+len(keyword))

	contribute := func(hits []chunk.Chunk, weight float64, isVector bool) {
		for rank, hit := range hits {
			key := hit.Key()
			contrib := weight / float64(K+rank+1)

			e, ok := entries[key]
			if !ok {
				e = &entry{hit: hit}
				entries[key] = e
				order = append(order, key)
			}
			e.score += contrib
			if isVector {
				e.fromVector = true
			} else {
				e.fromKword = true
			}
		}
	}

	contribute(vector, VectorWeight, true)
	contribute(keyword, KeywordWeight, false)

	fused := make([]chunk.Chunk, 0, len(order))
	for _, key := range order {
		e := entries[key]
		hit := e.hit.Clone()
		hit.Score = e.score
		switch {
		case e.fromVector && e.fromKword:
			hit.MatchedBy = chunk.MatchedByHybrid
		case e.fromVector:
			hit.MatchedBy = chunk.MatchedByVector
		default:
			hit.MatchedBy = chunk.MatchedByKeyword
		}
		fused = append(fused, hit)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	if limit >= 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}
