// Package aggregate rolls chunk-level hits up to document or folder
// granularity with a weighted composite score, grounded on the Rust
// origin's aggregate_by_doc / aggregate_by_folder.
package aggregate

import (
	"sort"

	"github.com/corpusforge/hybridcore/internal/chunk"
)

// By selects the rollup granularity.
type By string

const (
	ByContent By = "content"
	ByDoc     By = "doc"
	ByFolder  By = "folder"
)

// Aggregate applies the requested rollup to hits and truncates to
// limit. ByContent is a pure passthrough.
func Aggregate(hits []chunk.Chunk, by By, limit int) []chunk.Chunk {
	switch by {
	case ByDoc:
		return byDoc(hits, limit)
	case ByFolder:
		return byFolder(hits, limit)
	default:
		if len(hits) > limit {
			hits = hits[:limit]
		}
		return hits
	}
}

type docAgg struct {
	filePath string
	topScore float64
	hitCount int
	topChunk chunk.Chunk
}

// byDoc groups hits by file_path. Composite score:
// score = top_score*0.6 + min(hit_count/5, 1)*top_score*0.4
func byDoc(hits []chunk.Chunk, limit int) []chunk.Chunk {
	groups := make(map[string]*docAgg)
	order := make([]string, 0)

	for _, h := range hits {
		g, ok := groups[h.FilePath]
		if !ok {
			g = &docAgg{filePath: h.FilePath, topChunk: h}
			groups[h.FilePath] = g
			order = append(order, h.FilePath)
		}
		g.hitCount++
		if h.Score > g.topScore {
			g.topScore = h.Score
			g.topChunk = h
		}
	}

	results := make([]chunk.Chunk, 0, len(order))
	for _, fp := range order {
		g := groups[fp]
		hitBonus := min1(float64(g.hitCount) / 5.0)
		score := g.topScore*0.6 + hitBonus*g.topScore*0.4

		out := g.topChunk.Clone()
		out.FilePath = g.filePath
		out.DisplayName = chunk.DisplayNameFromPath(g.filePath)
		out.Score = score
		out.HitCount = g.hitCount
		out.DocCount = 0
		out.FolderPath = ""
		out.AggregateType = chunk.AggregateDoc
		results = append(results, out)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

type folderAgg struct {
	folderPath string
	topScore   float64
	hitCount   int
	docs       map[string]struct{}
	topChunk   chunk.Chunk
}

// byFolder groups hits by the directory portion of file_path ("." for
// root-level files). Composite score:
// score = top_score*0.5 + min(hit_count/10,1)*top_score*0.3 + min(doc_count/3,1)*top_score*0.2
func byFolder(hits []chunk.Chunk, limit int) []chunk.Chunk {
	groups := make(map[string]*folderAgg)
	order := make([]string, 0)

	for _, h := range hits {
		folderPath := chunk.FolderPathFromPath(h.FilePath)
		g, ok := groups[folderPath]
		if !ok {
			g = &folderAgg{folderPath: folderPath, docs: make(map[string]struct{}), topChunk: h}
			groups[folderPath] = g
			order = append(order, folderPath)
		}
		g.hitCount++
		g.docs[h.FilePath] = struct{}{}
		if h.Score > g.topScore {
			g.topScore = h.Score
			g.topChunk = h
		}
	}

	results := make([]chunk.Chunk, 0, len(order))
	for _, fp := range order {
		g := groups[fp]
		hitBonus := min1(float64(g.hitCount) / 10.0)
		docBonus := min1(float64(len(g.docs)) / 3.0)
		score := g.topScore*0.5 + hitBonus*g.topScore*0.3 + docBonus*g.topScore*0.2

		out := g.topChunk.Clone()
		out.DisplayName = chunk.FolderDisplayName(g.folderPath)
		out.Score = score
		out.HitCount = g.hitCount
		out.DocCount = len(g.docs)
		out.FolderPath = g.folderPath
		out.AggregateType = chunk.AggregateFolder
		results = append(results, out)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
