package ingest

import "strings"

// Normalize canonicalizes extracted page text: runs of spaces and tabs
// collapse to one space, runs of blank lines collapse to one newline, and
// leading/trailing whitespace is trimmed. All stored offsets are relative to
// this normalized form, so the same input always normalizes identically.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	pendingNewline := false
	wrote := false
	for _, r := range text {
		switch r {
		case ' ', '\t', '\r':
			pendingSpace = true
		case '\n':
			pendingNewline = true
			pendingSpace = false
		default:
			if wrote {
				if pendingNewline {
					b.WriteByte('\n')
				} else if pendingSpace {
					b.WriteByte(' ')
				}
			}
			pendingSpace = false
			pendingNewline = false
			b.WriteRune(r)
			wrote = true
		}
	}
	return b.String()
}
