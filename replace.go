package infill

import (
	"strings"
	"unicode/utf8"
)

// Position is a cursor location: 0-based line and 0-based character column.
type Position struct {
	Line int `yaml:"line"`
	Ch   int `yaml:"ch"`
}

// ApplyReplacement replaces the first literal occurrence of matchFullText in
// document with replacement and returns the new document together with the
// cursor position immediately after the inserted text.
//
// The match is re-resolved by its text rather than by offsets because the
// document may have changed since detection. If the same token appears
// earlier in the document, that earlier occurrence is the one replaced.
func ApplyReplacement(document, matchFullText, replacement string) (string, Position, error) {
	idx := strings.Index(document, matchFullText)
	if matchFullText == "" || idx < 0 {
		return document, Position{}, ErrStaleMatch
	}
	return splice(document, idx, idx+len(matchFullText), replacement)
}

// ApplyMatch replaces match at its recorded offsets when the document still
// holds match.FullText there, and otherwise falls back to ApplyReplacement.
// The returned bool reports whether the positional path was taken.
func ApplyMatch(document string, match Match, replacement string) (string, Position, bool, error) {
	start, ok := byteOffset(document, match.StartOffset)
	if ok {
		end := start + len(match.FullText)
		if match.FullText != "" && end <= len(document) && document[start:end] == match.FullText {
			out, pos, err := splice(document, start, end, replacement)
			return out, pos, true, err
		}
	}
	out, pos, err := ApplyReplacement(document, match.FullText, replacement)
	return out, pos, false, err
}

// splice replaces the byte range [start, end) and computes the cursor after
// the inserted text.
func splice(document string, start, end int, replacement string) (string, Position, error) {
	var sb strings.Builder
	sb.Grow(len(document) - (end - start) + len(replacement))
	sb.WriteString(document[:start])
	sb.WriteString(replacement)
	sb.WriteString(document[end:])
	out := sb.String()
	return out, PositionAt(out, start+len(replacement)), nil
}

// PositionAt converts a byte offset into a line/column position.
func PositionAt(text string, byteIdx int) Position {
	if byteIdx > len(text) {
		byteIdx = len(text)
	}
	head := text[:byteIdx]
	line := strings.Count(head, "\n")
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return Position{Line: line, Ch: utf8.RuneCountInString(head[lineStart:])}
}

// byteOffset converts a character offset into a byte offset.
func byteOffset(text string, charIdx int) (int, bool) {
	if charIdx < 0 {
		return 0, false
	}
	n := 0
	for i := range text {
		if n == charIdx {
			return i, true
		}
		n++
	}
	if n == charIdx {
		return len(text), true
	}
	return 0, false
}
