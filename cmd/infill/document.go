package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rickchristie/infill"
)

// fileDocument is an infill.Document backed by a file on disk. Reads come
// from memory; SetValue writes through atomically. External edits are
// picked up by reload.
type fileDocument struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	text   string
	cursor infill.Position
}

func openFileDocument(path string, logger *slog.Logger) (*fileDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &fileDocument{
		path:   abs,
		logger: logger,
		text:   string(data),
	}, nil
}

func (d *fileDocument) GetValue() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// SetValue replaces the content and writes it to disk. A write failure is
// logged; the in-memory content is still updated so the session stays
// consistent.
func (d *fileDocument) SetValue(text string) {
	d.mu.Lock()
	d.text = text
	d.mu.Unlock()

	if err := writeFileAtomic(d.path, []byte(text)); err != nil {
		d.logger.Error("document write failed", "path", d.path, "error", err)
	}
}

func (d *fileDocument) GetLine(n int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lines := strings.Split(d.text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}

func (d *fileDocument) GetCursor() infill.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursor
}

func (d *fileDocument) SetCursor(pos infill.Position) {
	d.mu.Lock()
	d.cursor = pos
	d.mu.Unlock()
}

// reload re-reads the file. It reports whether the content differs from
// what the document holds, so our own writes do not count as edits. The
// cursor moves to the first changed line.
func (d *fileDocument) reload() (bool, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return false, err
	}
	text := string(data)

	d.mu.Lock()
	defer d.mu.Unlock()
	if text == d.text {
		return false, nil
	}
	d.cursor = infill.Position{Line: firstChangedLine(d.text, text)}
	d.text = text
	return true, nil
}

func firstChangedLine(before, after string) int {
	a := strings.Split(before, "\n")
	b := strings.Split(after, "\n")
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(b) > len(a) {
		return len(a)
	}
	return len(b) - 1
}

func writeFileAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// watchDocument calls onChange for every external edit of doc until ctx is
// done. The parent directory is watched so editors that save by rename are
// seen.
func watchDocument(ctx context.Context, doc *fileDocument, onChange func(), logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(doc.path)); err != nil {
		return fmt.Errorf("watch %s: %w", doc.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != doc.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			changed, err := doc.reload()
			if err != nil {
				// Mid-replace; the completing event will succeed.
				logger.Debug("document reload failed", "path", doc.path, "error", err)
				continue
			}
			if changed {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("document watcher error", "error", err)
		}
	}
}
