package query

import (
	"strings"
	"unicode"

	"github.com/recallhq/recall/pkg/highlight"
)

// windowSizes are the word-window widths tried when scoring candidate
// passages, smallest first so ties prefer tighter highlights.
var windowSizes = []int{100, 200, 300}

// minQueryWordLen drops filler words ("a", "of") from matching; if every
// query word is that short they are all kept.
const minQueryWordLen = 3

type word struct {
	start int
	end   int
	text  string
}

// bestMatch finds the span of text that best covers the query's words: the
// densest fixed-size word window is chosen, then trimmed to the exact range
// from the first to the last matched word. Matching is case-insensitive on
// punctuation-stripped whole words. The boolean is false when no query word
// occurs in the text.
func bestMatch(text, query string) (highlight.Span, bool) {
	queryWords := significantWords(query)
	if len(queryWords) == 0 {
		return highlight.Span{}, false
	}

	words := tokenize(text)
	if len(words) == 0 {
		return highlight.Span{}, false
	}

	matched := make([]bool, len(words))
	any := false
	for i, w := range words {
		if queryWords[w.text] {
			matched[i] = true
			any = true
		}
	}
	if !any {
		return highlight.Span{}, false
	}

	bestScore := 0.0
	var bestFirst, bestLast int
	for _, size := range windowSizes {
		if size > len(words) {
			size = len(words)
		}
		hits := 0
		for i := 0; i < size; i++ {
			if matched[i] {
				hits++
			}
		}
		for start := 0; ; start++ {
			if hits > 0 {
				if score := float64(hits) / float64(size); score > bestScore {
					bestScore = score
					bestFirst, bestLast = matchedBounds(matched, start, start+size)
				}
			}
			if start+size >= len(words) {
				break
			}
			if matched[start] {
				hits--
			}
			if matched[start+size] {
				hits++
			}
		}
	}

	return highlight.Span{Start: words[bestFirst].start, End: words[bestLast].end}, true
}

// matchedBounds returns the first and last matched word index in [from, to).
func matchedBounds(matched []bool, from, to int) (first, last int) {
	first, last = -1, -1
	for i := from; i < to && i < len(matched); i++ {
		if matched[i] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

// significantWords returns the set of query words worth matching.
func significantWords(query string) map[string]bool {
	all := make(map[string]bool)
	long := make(map[string]bool)
	for _, w := range tokenize(query) {
		all[w.text] = true
		if len(w.text) >= minQueryWordLen {
			long[w.text] = true
		}
	}
	if len(long) > 0 {
		return long
	}
	return all
}

// tokenize splits text into lowercased words with byte offsets, trimming
// punctuation from each word's edges.
func tokenize(text string) []word {
	var words []word
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		raw := text[start:end]
		trimmed := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if trimmed != "" {
			off := strings.Index(raw, trimmed)
			words = append(words, word{
				start: start + off,
				end:   start + off + len(trimmed),
				text:  strings.ToLower(trimmed),
			})
		}
		start = -1
	}
	for i, r := range text {
		if unicode.IsSpace(r) {
			flush(i)
		} else if start < 0 {
			start = i
		}
	}
	flush(len(text))
	return words
}
