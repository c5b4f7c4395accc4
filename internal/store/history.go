package store

import "github.com/pitabwire/designer/model"

// DefaultHistoryLimit is the number of snapshots kept when no limit is
// configured.
const DefaultHistoryLimit = 50

// History is a bounded list of full configuration snapshots with a cursor.
// The entry at the cursor always equals the live configuration. Pushing
// after an undo discards the redo branch; pushing beyond the limit evicts
// the oldest entry. History is not safe for concurrent use; the Store
// serializes access.
type History struct {
	entries []*model.Configuration
	cursor  int
	limit   int
}

// NewHistory creates an empty History holding at most limit snapshots.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &History{cursor: -1, limit: limit}
}

// Reset discards every entry and starts a new chain at cfg.
func (h *History) Reset(cfg *model.Configuration) {
	h.entries = []*model.Configuration{cfg.Clone()}
	h.cursor = 0
}

// Push records cfg as the newest snapshot.
func (h *History) Push(cfg *model.Configuration) {
	h.entries = append(h.entries[:h.cursor+1], cfg.Clone())
	if over := len(h.entries) - h.limit; over > 0 {
		clear(h.entries[:over])
		h.entries = h.entries[over:]
	}
	h.cursor = len(h.entries) - 1
}

// CanUndo reports whether an older snapshot exists.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether a newer snapshot exists.
func (h *History) CanRedo() bool {
	return h.cursor >= 0 && h.cursor < len(h.entries)-1
}

// Undo moves the cursor back and returns a copy of that snapshot.
func (h *History) Undo() (*model.Configuration, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.cursor--
	return h.entries[h.cursor].Clone(), true
}

// Redo moves the cursor forward and returns a copy of that snapshot.
func (h *History) Redo() (*model.Configuration, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.cursor++
	return h.entries[h.cursor].Clone(), true
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.entries)
}

// Cursor returns the index of the live snapshot, or -1 when empty.
func (h *History) Cursor() int {
	return h.cursor
}
