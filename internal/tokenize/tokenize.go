// Package tokenize splits text into BM25 scoring terms with CJK-aware
// rules: ASCII alphanumeric runs of length >= 2 are kept whole, while
// CJK runs (U+4E00..U+9FFF) are expanded into both single characters
// and overlapping 2-character bigrams. This gives dual recall/precision
// granularity for Chinese text without a dictionary or word segmenter.
package tokenize

import "strings"

// cjkLow and cjkHigh bound the common Chinese Unicode range:
// U+4E00..U+9FFF.
const (
	cjkLow  = 0x4E00
	cjkHigh = 0x9FFF
)

// Tokenize lowercases text and scans it character by character,
// maintaining separate Latin and CJK accumulators that flush into
// tokens whenever the run is interrupted by the other kind of
// character, or by anything else (punctuation, whitespace).
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	var tokens []string
	var latin []rune
	var cjk []rune

	flushLatin := func() {
		if len(latin) >= 2 {
			tokens = append(tokens, string(latin))
		}
		latin = latin[:0]
	}
	flushCJK := func() {
		tokens = append(tokens, cjkTokens(cjk)...)
		cjk = cjk[:0]
	}

	for _, r := range lower {
		switch {
		case isASCIIAlnum(r):
			if len(cjk) > 0 {
				flushCJK()
			}
			latin = append(latin, r)
		case isCJK(r):
			if len(latin) > 0 {
				flushLatin()
			}
			cjk = append(cjk, r)
		default:
			if len(latin) > 0 {
				flushLatin()
			}
			if len(cjk) > 0 {
				flushCJK()
			}
		}
	}
	flushLatin()
	flushCJK()

	return tokens
}

// cjkTokens emits one token per character, plus a 2-character bigram
// for every adjacent pair, preserving the run's internal order.
func cjkTokens(run []rune) []string {
	if len(run) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(run)*2-1)
	for i := range run {
		tokens = append(tokens, string(run[i]))
		if i < len(run)-1 {
			tokens = append(tokens, string(run[i:i+2]))
		}
	}
	return tokens
}

func isASCIIAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isCJK(r rune) bool {
	return r >= cjkLow && r <= cjkHigh
}
