// Package chunk defines the document-chunk data model shared by every
// retrieval mode, plus a read-only, copy-on-write snapshot of the full
// in-memory corpus the BM25 scorer and aggregator operate over.
package chunk

import (
	"strconv"
	"strings"
)

// MatchedBy records which retrieval pipeline produced a hit.
type MatchedBy string

const (
	MatchedByVector  MatchedBy = "vector"
	MatchedByKeyword MatchedBy = "keyword"
	MatchedByHybrid  MatchedBy = "hybrid"
)

// AggregateType records the rollup granularity of a result, if any.
type AggregateType string

const (
	AggregateDoc    AggregateType = "doc"
	AggregateFolder AggregateType = "folder"
)

// DocType is a recognized categorical tag on a chunk's owning document.
type DocType string

const (
	DocTypeDoc  DocType = "doc"
	DocTypeIdea DocType = "idea"
)

// Chunk is a contiguous, indexable fragment of a document. A scored
// Chunk returned from a search is also referred to as a hit.
type Chunk struct {
	FilePath     string
	DisplayName  string
	Content      string
	HeadingPath  string
	SectionTitle string
	LineStart    *int
	LineEnd      *int
	Score        float64
	MatchedBy    MatchedBy
	DocType      DocType

	// Aggregate-only fields, populated during rollup.
	HitCount      int
	DocCount      int
	FolderPath    string
	AggregateType AggregateType
}

// Clone returns a shallow copy of c; Chunk has no reference fields that
// need a deep copy beyond the two optional int pointers.
func (c Chunk) Clone() Chunk {
	if c.LineStart != nil {
		ls := *c.LineStart
		c.LineStart = &ls
	}
	if c.LineEnd != nil {
		le := *c.LineEnd
		c.LineEnd = &le
	}
	return c
}

// LineStartOrZero returns LineStart, or 0 when absent. Used as the RRF
// and chunk-identity key: (file_path, line_start ?? 0).
func (c Chunk) LineStartOrZero() int {
	if c.LineStart == nil {
		return 0
	}
	return *c.LineStart
}

// Key returns the (file_path, line_start) identity key used to
// deduplicate a chunk across retrieval modes.
func (c Chunk) Key() string {
	return Key(c.FilePath, c.LineStartOrZero())
}

// Key builds the identity key from its components directly, for callers
// that only have a file path and line number (e.g. the vector store).
func Key(filePath string, lineStart int) string {
	return filePath + ":" + strconv.Itoa(lineStart)
}

// DisplayNameFromPath derives the display name: the leaf segment of
// path with any trailing ".md" suffix stripped.
func DisplayNameFromPath(path string) string {
	leaf := path
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		leaf = path[idx+1:]
	}
	return strings.TrimSuffix(leaf, ".md")
}

// FolderPathFromPath returns the directory portion of path, or "." when
// path has no slash.
func FolderPathFromPath(path string) string {
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		return path[:idx]
	}
	return "."
}

// FolderDisplayName returns the display name for a folder path: "(root)"
// for ".", otherwise the leaf segment.
func FolderDisplayName(folderPath string) string {
	if folderPath == "." {
		return "(root)"
	}
	if idx := strings.LastIndex(folderPath, "/"); idx != -1 {
		return folderPath[idx+1:]
	}
	return folderPath
}

// MatchesDocTypeFilter applies the asymmetric doc_type filter: "idea"
// requires an exact match; "doc" matches an absent or "doc" DocType;
// any other filter value is a no-op (always matches).
func MatchesDocTypeFilter(c Chunk, filter string) bool {
	switch filter {
	case string(DocTypeIdea):
		return c.DocType == DocTypeIdea
	case string(DocTypeDoc):
		return c.DocType == "" || c.DocType == DocTypeDoc
	default:
		return true
	}
}
