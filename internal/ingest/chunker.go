// Package ingest turns markdown files on disk into chunk.Chunk values
// and watches a set of directories for changes, committing observed
// state to internal/metastore and publishing internal/events.DocEvent
// notifications. Chunking merges whole paragraphs up to a target size
// (a single paragraph longer than the target becomes a chunk of its own
// and is not split further), combined with heading extraction, adapted
// to carry heading_path/section_title/line_start/line_end instead of
// flat byte offsets.
package ingest

import (
	"regexp"
	"strings"

	"github.com/corpusforge/hybridcore/internal/chunk"
)

// DefaultChunkSize is the target chunk size in characters.
const DefaultChunkSize = 512

// DefaultOverlap is the maximum number of trailing characters (whole
// paragraphs only) repeated at the start of the next chunk when a
// section is split across chunk boundaries, so a passage spanning a
// paragraph break still has some neighboring context on both sides.
const DefaultOverlap = 64

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// section is one heading-delimited span of a document, carrying the
// breadcrumb of enclosing headings and its first line number (1-based).
type section struct {
	headingPath []string
	title       string
	startLine   int
	body        string
}

// ChunkFile splits a markdown document's content into chunk.Chunk
// values ready for indexing. filePath is stored verbatim as FilePath;
// docType is applied to every produced chunk.
func ChunkFile(filePath, content string, docType chunk.DocType) []chunk.Chunk {
	sections := splitSections(content)
	displayName := chunk.DisplayNameFromPath(filePath)

	var out []chunk.Chunk
	for _, sec := range sections {
		pieces := splitToSize(sec.body, DefaultChunkSize, DefaultOverlap)
		for _, piece := range pieces {
			trimmed := strings.TrimSpace(piece.text)
			if trimmed == "" {
				continue
			}
			out = append(out, chunk.Chunk{
				FilePath:     filePath,
				DisplayName:  displayName,
				Content:      trimmed,
				HeadingPath:  strings.Join(sec.headingPath, " > "),
				SectionTitle: sec.title,
				LineStart:    intPtr(sec.startLine + piece.startLine),
				LineEnd:      intPtr(sec.startLine + piece.endLine),
				DocType:      docType,
			})
		}
	}
	return out
}

func intPtr(v int) *int {
	return &v
}

// splitSections breaks content into heading-delimited sections,
// tracking the breadcrumb of enclosing heading titles by level. Any
// content preceding the first heading forms a section with an empty
// heading path.
func splitSections(content string) []section {
	lines := strings.Split(content, "\n")

	var sections []section
	var stack []headingEntry

	var cur strings.Builder
	curStart := 1

	flush := func(startLine int) {
		if cur.Len() == 0 {
			return
		}
		sections = append(sections, section{
			headingPath: breadcrumb(stack),
			title:       lastTitle(stack),
			startLine:   startLine,
			body:        cur.String(),
		})
		cur.Reset()
	}

	sectionStartLine := curStart
	for i, line := range lines {
		lineNo := i + 1
		if m := headingRegex.FindStringSubmatch(line); m != nil {
			flush(sectionStartLine)
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			stack = pushHeading(stack, level, title)
			sectionStartLine = lineNo + 1
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
	}
	flush(sectionStartLine)

	return sections
}

type headingEntry struct {
	level int
	title string
}

// pushHeading pops any stack entries at or deeper than level, then
// pushes the new heading, maintaining the breadcrumb invariant.
func pushHeading(stack []headingEntry, level int, title string) []headingEntry {
	for len(stack) > 0 && stack[len(stack)-1].level >= level {
		stack = stack[:len(stack)-1]
	}
	return append(stack, headingEntry{level: level, title: title})
}

func breadcrumb(stack []headingEntry) []string {
	out := make([]string, len(stack))
	for i, e := range stack {
		out[i] = e.title
	}
	return out
}

func lastTitle(stack []headingEntry) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1].title
}

// piece is a span of a section's body, with startLine/endLine as
// 0-based line offsets from the section's first line. Overlapping
// pieces share trailing/leading paragraphs, so spans are not disjoint.
type piece struct {
	text      string
	startLine int
	endLine   int
}

// splitToSize merges paragraphs of body up to targetSize characters per
// chunk, splitting any paragraph that alone exceeds targetSize off into
// its own chunk. When a section spans more than one chunk, up to
// overlap trailing characters of whole paragraphs from the end of one
// chunk are repeated at the start of the next, so neither chunk loses
// context at the paragraph boundary it was cut on.
func splitToSize(body string, targetSize, overlap int) []piece {
	paragraphs := strings.Split(body, "\n\n")
	n := len(paragraphs)
	if n == 0 {
		return nil
	}

	lineCounts := make([]int, n)
	lineStarts := make([]int, n)
	line := 0
	for i, para := range paragraphs {
		lineStarts[i] = line
		lineCounts[i] = strings.Count(para, "\n") + 1
		line += lineCounts[i]
		if i < n-1 {
			line++ // blank separator line between paragraphs
		}
	}

	var pieces []piece
	start := 0
	for start < n {
		end := start
		size := 0
		for end < n {
			add := len(paragraphs[end])
			if size > 0 {
				add += 2
			}
			if size > 0 && size+add > targetSize {
				break
			}
			size += add
			end++
		}
		if end == start {
			end = start + 1 // a single paragraph alone exceeds targetSize
		}

		var buf strings.Builder
		for k := start; k < end; k++ {
			if k > start {
				buf.WriteString("\n\n")
			}
			buf.WriteString(paragraphs[k])
		}
		pieces = append(pieces, piece{
			text:      buf.String(),
			startLine: lineStarts[start],
			endLine:   lineStarts[end-1] + lineCounts[end-1] - 1,
		})

		if end >= n {
			break
		}

		next := end
		overlapChars := 0
		for next-1 > start {
			cand := len(paragraphs[next-1])
			if overlapChars > 0 {
				cand += 2
			}
			if overlapChars+cand > overlap {
				break
			}
			next--
			overlapChars += cand
		}
		start = next
	}

	return pieces
}
