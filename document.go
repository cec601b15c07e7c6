package infill

import (
	"strings"
	"sync"
)

// Document is the editor surface the controller reads and mutates.
//
// Implementations are owned by the host. Change notifications are delivered
// by the host calling the controller's OnChange, not through this interface.
type Document interface {
	// GetValue returns the full current text.
	GetValue() string

	// SetValue replaces the full text.
	SetValue(text string)

	// GetLine returns line n (0-based), or "" when out of range.
	GetLine(n int) string

	// GetCursor returns the current cursor position.
	GetCursor() Position

	// SetCursor moves the cursor.
	SetCursor(pos Position)
}

// MemoryDocument is an in-memory Document, safe for concurrent use.
type MemoryDocument struct {
	mu     sync.RWMutex
	text   string
	cursor Position
}

// NewMemoryDocument creates a MemoryDocument holding text with the cursor at
// the origin.
func NewMemoryDocument(text string) *MemoryDocument {
	return &MemoryDocument{text: text}
}

// GetValue implements Document.
func (d *MemoryDocument) GetValue() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// SetValue implements Document.
func (d *MemoryDocument) SetValue(text string) {
	d.mu.Lock()
	d.text = text
	d.mu.Unlock()
}

// GetLine implements Document.
func (d *MemoryDocument) GetLine(n int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lines := strings.Split(d.text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}

// GetCursor implements Document.
func (d *MemoryDocument) GetCursor() Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cursor
}

// SetCursor implements Document.
func (d *MemoryDocument) SetCursor(pos Position) {
	d.mu.Lock()
	d.cursor = pos
	d.mu.Unlock()
}

// Compile-time check that MemoryDocument implements Document.
var _ Document = (*MemoryDocument)(nil)
