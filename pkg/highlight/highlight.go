// Package highlight maps a text span captured at ingestion time onto a live,
// possibly drifted rendering of the same page. The browser later loads ads,
// reflows whitespace, or injects dynamic content, so the stored offsets can
// no longer be trusted verbatim. Reconcile tries an exact substring match
// first and falls back to a fuzzy, location-biased match; when neither clears
// the threshold it reports "no highlight" rather than a wrong span. It never
// returns an error: an unhighlightable page is shown unhighlighted.
package highlight

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Span is a [Start, End) character range over plain text.
type Span struct {
	Start int
	End   int
}

// Len returns the span width.
func (s Span) Len() int {
	return s.End - s.Start
}

// anchorSize is the fuzzy match pattern width. The bitap matcher is limited
// to one machine word of pattern bits, so longer stored substrings are
// located via a centered anchor of this size and extended back out.
const anchorSize = 32

// Reconciler finds stored spans in live text.
type Reconciler struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewReconciler creates a reconciler with a moderate fuzzy match threshold.
func NewReconciler() *Reconciler {
	dmp := diffmatchpatch.New()
	dmp.MatchThreshold = 0.4
	dmp.MatchDistance = 2000
	return &Reconciler{dmp: dmp}
}

// Reconcile maps span (offsets into storedText) onto liveText. The boolean is
// false when no confident match exists.
func (r *Reconciler) Reconcile(storedText string, span Span, liveText string) (Span, bool) {
	if span.Start < 0 || span.End > len(storedText) || span.Start >= span.End || liveText == "" {
		return Span{}, false
	}

	needle := storedText[span.Start:span.End]

	// Exact match first, preferring the occurrence nearest the stored
	// offset when the substring repeats.
	if loc := nearestOccurrence(liveText, needle, span.Start); loc >= 0 {
		return Span{Start: loc, End: loc + len(needle)}, true
	}

	return r.fuzzy(needle, span.Start, liveText)
}

// fuzzy locates the needle via a centered fixed-width anchor and extends the
// match back to the needle's full width, clamped to the live text.
func (r *Reconciler) fuzzy(needle string, expectedLoc int, liveText string) (Span, bool) {
	anchor := needle
	anchorOffset := 0
	if len(anchor) > anchorSize {
		anchorOffset = (len(needle) - anchorSize) / 2
		// Keep the anchor on rune boundaries so the pattern stays valid text.
		for anchorOffset > 0 && !isBoundary(needle, anchorOffset) {
			anchorOffset--
		}
		end := anchorOffset + anchorSize
		for end > anchorOffset && !isBoundary(needle, end) {
			end--
		}
		anchor = needle[anchorOffset:end]
	}
	if anchor == "" {
		return Span{}, false
	}

	loc := r.dmp.MatchMain(liveText, anchor, clamp(expectedLoc+anchorOffset, 0, len(liveText)))
	if loc < 0 {
		return Span{}, false
	}

	start := clamp(loc-anchorOffset, 0, len(liveText))
	end := clamp(start+len(needle), start, len(liveText))
	if start >= end {
		return Span{}, false
	}

	return Span{Start: start, End: end}, true
}

// nearestOccurrence returns the start of the occurrence of needle in text
// closest to want, or -1 when absent.
func nearestOccurrence(text, needle string, want int) int {
	best := -1
	from := 0
	for {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			break
		}
		pos := from + i
		if best < 0 || abs(pos-want) < abs(best-want) {
			best = pos
		}
		from = pos + 1
	}
	return best
}

func isBoundary(s string, i int) bool {
	return i <= 0 || i >= len(s) || (s[i]&0xC0) != 0x80
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
