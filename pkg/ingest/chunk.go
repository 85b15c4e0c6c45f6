package ingest

import "unicode"

// DefaultChunkWords is the target chunk length in words.
const DefaultChunkWords = 300

// Piece is a contiguous slice of normalized text. Pieces are ordered,
// non-overlapping, and together cover the whole text, so concatenating them
// reconstructs it exactly.
type Piece struct {
	Start int
	End   int
	Text  string
}

// SplitWords cuts normalized text into pieces of roughly wordsPerChunk words.
// Boundaries fall on word starts, never inside a word. Empty text yields no
// pieces.
func SplitWords(text string, wordsPerChunk int) []Piece {
	if text == "" {
		return nil
	}
	if wordsPerChunk <= 0 {
		wordsPerChunk = DefaultChunkWords
	}

	starts := wordStarts(text)
	if len(starts) == 0 {
		return []Piece{{Start: 0, End: len(text), Text: text}}
	}

	var pieces []Piece
	cur := 0
	for i := wordsPerChunk; i < len(starts); i += wordsPerChunk {
		pieces = append(pieces, Piece{Start: cur, End: starts[i], Text: text[cur:starts[i]]})
		cur = starts[i]
	}
	pieces = append(pieces, Piece{Start: cur, End: len(text), Text: text[cur:]})
	return pieces
}

// wordStarts returns the byte offset of every word's first rune.
func wordStarts(text string) []int {
	var starts []int
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			starts = append(starts, i)
			inWord = true
		}
	}
	return starts
}
