package infill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReplacement(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		match       string
		replacement string
		wantDoc     string
		wantCursor  Position
		wantErr     error
	}{
		{
			name:        "single line",
			doc:         "A @[x] B",
			match:       "@[x]",
			replacement: "X",
			wantDoc:     "A X B",
			wantCursor:  Position{Line: 0, Ch: 3},
		},
		{
			name:        "empty replacement deletes the token",
			doc:         "A @[x] B",
			match:       "@[x]",
			replacement: "",
			wantDoc:     "A  B",
			wantCursor:  Position{Line: 0, Ch: 2},
		},
		{
			name:        "multi-line replacement moves cursor to last line",
			doc:         "intro\n@[list] tail",
			match:       "@[list]",
			replacement: "- a\n- b",
			wantDoc:     "intro\n- a\n- b tail",
			wantCursor:  Position{Line: 2, Ch: 3},
		},
		{
			name:        "first literal occurrence wins",
			doc:         "@[x] and @[x]",
			match:       "@[x]",
			replacement: "Y",
			wantDoc:     "Y and @[x]",
			wantCursor:  Position{Line: 0, Ch: 1},
		},
		{
			name:        "columns count characters",
			doc:         "ça @[x]",
			match:       "@[x]",
			replacement: "é",
			wantDoc:     "ça é",
			wantCursor:  Position{Line: 0, Ch: 4},
		},
		{
			name:        "match gone",
			doc:         "edited away",
			match:       "@[x]",
			replacement: "X",
			wantDoc:     "edited away",
			wantErr:     ErrStaleMatch,
		},
		{
			name:        "empty match text",
			doc:         "anything",
			match:       "",
			replacement: "X",
			wantDoc:     "anything",
			wantErr:     ErrStaleMatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, cursor, err := ApplyReplacement(tc.doc, tc.match, tc.replacement)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantCursor, cursor)
			}
			assert.Equal(t, tc.wantDoc, doc)
		})
	}
}

func TestApplyReplacement_Idempotent(t *testing.T) {
	doc, _, err := ApplyReplacement("A @[x] B", "@[x]", "X")
	require.NoError(t, err)

	again, _, err := ApplyReplacement(doc, "@[x]", "X")
	assert.ErrorIs(t, err, ErrStaleMatch)
	assert.Equal(t, doc, again)
}

func TestApplyMatch(t *testing.T) {
	def := MustCompileTriggerPattern(DefaultTriggerPattern)

	t.Run("positional when unchanged", func(t *testing.T) {
		doc := "@[x] and @[x]"
		m := FindTriggerInLine(doc, 0, def)
		m2 := *m
		// Point at the second occurrence.
		m2.StartOffset, m2.EndOffset = 9, 13

		out, cursor, positional, err := ApplyMatch(doc, m2, "Y")
		require.NoError(t, err)
		assert.True(t, positional)
		assert.Equal(t, "@[x] and Y", out)
		assert.Equal(t, Position{Line: 0, Ch: 10}, cursor)
	})

	t.Run("falls back to literal search after edits", func(t *testing.T) {
		m := FindTrigger("A @[x] B", def)
		out, cursor, positional, err := ApplyMatch(">> A @[x] B", *m, "X")
		require.NoError(t, err)
		assert.False(t, positional)
		assert.Equal(t, ">> A X B", out)
		assert.Equal(t, Position{Line: 0, Ch: 6}, cursor)
	})

	t.Run("offset past the end", func(t *testing.T) {
		m := Match{FullText: "@[x]", StartOffset: 40, EndOffset: 44}
		out, _, positional, err := ApplyMatch("@[x]", m, "X")
		require.NoError(t, err)
		assert.False(t, positional)
		assert.Equal(t, "X", out)
	})

	t.Run("stale", func(t *testing.T) {
		m := Match{FullText: "@[x]", StartOffset: 0, EndOffset: 4}
		out, _, _, err := ApplyMatch("nothing", m, "X")
		assert.ErrorIs(t, err, ErrStaleMatch)
		assert.Equal(t, "nothing", out)
	})
}

func TestPositionAt(t *testing.T) {
	text := "ab\ncé\n"
	assert.Equal(t, Position{Line: 0, Ch: 0}, PositionAt(text, 0))
	assert.Equal(t, Position{Line: 0, Ch: 2}, PositionAt(text, 2))
	assert.Equal(t, Position{Line: 1, Ch: 0}, PositionAt(text, 3))
	assert.Equal(t, Position{Line: 1, Ch: 2}, PositionAt(text, 6))
	assert.Equal(t, Position{Line: 2, Ch: 0}, PositionAt(text, 7))
	assert.Equal(t, Position{Line: 2, Ch: 0}, PositionAt(text, 99))
}
