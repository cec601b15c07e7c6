package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickchristie/infill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDocument(t *testing.T, content string) *fileDocument {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	doc, err := openFileDocument(path, discardLogger())
	require.NoError(t, err)
	return doc
}

func TestFileDocument_ReadWrite(t *testing.T) {
	doc := newTestDocument(t, "one\ntwo")

	assert.Equal(t, "one\ntwo", doc.GetValue())
	assert.Equal(t, "two", doc.GetLine(1))
	assert.Empty(t, doc.GetLine(5))

	doc.SetValue("three")
	doc.SetCursor(infill.Position{Line: 0, Ch: 5})

	data, err := os.ReadFile(doc.path)
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))
	assert.Equal(t, infill.Position{Line: 0, Ch: 5}, doc.GetCursor())

	info, err := os.Stat(doc.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm(), "write keeps the file mode")
}

func TestFileDocument_Reload(t *testing.T) {
	doc := newTestDocument(t, "a\nb\nc")

	changed, err := doc.reload()
	require.NoError(t, err)
	assert.False(t, changed)

	// Our own write is not an external edit.
	doc.SetValue("a\nb\nc!")
	changed, err = doc.reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(doc.path, []byte("a\nB @[x]\nc!"), 0o640))
	changed, err = doc.reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "a\nB @[x]\nc!", doc.GetValue())
	assert.Equal(t, infill.Position{Line: 1}, doc.GetCursor())
}

func TestFirstChangedLine(t *testing.T) {
	tests := []struct {
		name          string
		before, after string
		expected      int
	}{
		{"edit in middle", "a\nb\nc", "a\nX\nc", 1},
		{"appended line", "a", "a\nb", 1},
		{"removed last line", "a\nb", "a", 0},
		{"edit first line", "a", "b", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, firstChangedLine(tc.before, tc.after))
		})
	}
}

func TestWatchDocument(t *testing.T) {
	doc := newTestDocument(t, "start")

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- watchDocument(ctx, doc, func() { changes <- struct{}{} }, discardLogger())
	}()

	// Keep editing until the watcher, which may still be starting, reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	n := 0
loop:
	for {
		select {
		case <-changes:
			break loop
		case <-tick.C:
			n++
			require.NoError(t, os.WriteFile(doc.path, []byte("edit "+string(rune('a'+n%26))), 0o640))
		case <-deadline:
			t.Fatal("watcher did not report the edit")
		}
	}
	assert.Contains(t, doc.GetValue(), "edit ")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchDocument did not return after cancel")
	}
}
