package infill

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// TriggerPattern is a compiled trigger expression with exactly one
// capturing group for the payload.
type TriggerPattern struct {
	expr string
	re   *regexp.Regexp
}

// CompileTriggerPattern compiles expr and checks that it has exactly one
// capturing group.
func CompileTriggerPattern(expr string) (*TriggerPattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if n := re.NumSubexp(); n != 1 {
		return nil, fmt.Errorf("%w: %q has %d capturing groups, want exactly 1", ErrInvalidPattern, expr, n)
	}
	return &TriggerPattern{expr: expr, re: re}, nil
}

// CompileTriggerPatternOrDefault compiles expr, falling back to
// DefaultTriggerPattern when it is invalid. The returned error reports the
// invalid pattern so callers can surface it, but the pattern is always
// usable.
func CompileTriggerPatternOrDefault(expr string) (*TriggerPattern, error) {
	p, err := CompileTriggerPattern(expr)
	if err == nil {
		return p, nil
	}
	return MustCompileTriggerPattern(DefaultTriggerPattern), err
}

// MustCompileTriggerPattern is like CompileTriggerPattern but panics on error.
func MustCompileTriggerPattern(expr string) *TriggerPattern {
	p, err := CompileTriggerPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p *TriggerPattern) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Match is one trigger occurrence. Offsets are character (code point)
// offsets into the text the match was found in, end exclusive.
type Match struct {
	// FullText is the whole trigger token, delimiters included. This is the
	// text that gets replaced, so it is kept verbatim.
	FullText string

	// Payload is the capture group, used for display.
	Payload string

	StartOffset int
	EndOffset   int
}

// Len returns the match length in characters.
func (m Match) Len() int {
	return m.EndOffset - m.StartOffset
}

// FindTrigger returns the first match of pattern in text in document order,
// or nil when there is none. A nil pattern never matches.
func FindTrigger(text string, pattern *TriggerPattern) *Match {
	if pattern == nil || pattern.re == nil {
		return nil
	}
	loc := pattern.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}

	m := &Match{
		FullText:    text[loc[0]:loc[1]],
		StartOffset: utf8.RuneCountInString(text[:loc[0]]),
	}
	m.EndOffset = m.StartOffset + utf8.RuneCountInString(m.FullText)
	// An optional group that did not participate reports -1.
	if loc[2] >= 0 {
		m.Payload = text[loc[2]:loc[3]]
	}
	return m
}

// FindTriggerInLine runs the matcher against a single line of document and
// returns a match whose offsets are translated into document offsets.
func FindTriggerInLine(document string, line int, pattern *TriggerPattern) *Match {
	lines := strings.Split(document, "\n")
	if line < 0 || line >= len(lines) {
		return nil
	}
	m := FindTrigger(lines[line], pattern)
	if m == nil {
		return nil
	}
	base := LineOffset(document, line)
	m.StartOffset += base
	m.EndOffset += base
	return m
}

// LineOffset returns the character offset at which line starts in text.
// Lines past the end clamp to the text length.
func LineOffset(text string, line int) int {
	offset := 0
	for i := 0; i < line; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return offset + utf8.RuneCountInString(text)
		}
		offset += utf8.RuneCountInString(text[:idx]) + 1
		text = text[idx+1:]
	}
	return offset
}
