package infill

// ContextWindow is the excerpt of a document sent to the backend.
type ContextWindow struct {
	// Text is the document substring [Start, End).
	Text string

	// MatchFullText is the trigger token the window was built around.
	MatchFullText string

	// Start and End are character offsets into the source document.
	Start int
	End   int
}

// BuildWindow extracts about windowSize/2 characters on each side of match,
// clamped to the document. Near either end the window is shorter and
// asymmetric; it is never padded and never reads out of range.
//
// windowSize is a character budget, not a token budget.
func BuildWindow(document string, match Match, windowSize int) ContextWindow {
	runes := []rune(document)
	half := windowSize / 2
	if half < 0 {
		half = 0
	}

	start := clamp(match.StartOffset-half, 0, len(runes))
	end := clamp(match.EndOffset+half, 0, len(runes))
	if end < start {
		end = start
	}

	return ContextWindow{
		Text:          string(runes[start:end]),
		MatchFullText: match.FullText,
		Start:         start,
		End:           end,
	}
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
