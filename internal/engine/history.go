package engine

import "github.com/inamate/whiteboard/internal/document"

// History is a snapshot based undo/redo stack. Both stacks are capped at
// limit entries; the oldest past entries fall off first.
type History struct {
	limit  int
	past   []*document.Document
	future []*document.Document
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Checkpoint records cur as the state to return to and forgets any redo
// branch. cur must be a snapshot the caller no longer mutates.
func (h *History) Checkpoint(cur *document.Document) {
	h.past = push(h.past, cur, h.limit)
	h.future = nil
}

// Undo swaps cur for the most recent past state.
func (h *History) Undo(cur *document.Document) (*document.Document, bool) {
	if len(h.past) == 0 {
		return nil, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = push(h.future, cur, h.limit)
	return prev, true
}

// Redo swaps cur for the most recently undone state.
func (h *History) Redo(cur *document.Document) (*document.Document, bool) {
	if len(h.future) == 0 {
		return nil, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = push(h.past, cur, h.limit)
	return next, true
}

func (h *History) CanUndo() bool { return len(h.past) > 0 }
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Len returns the sizes of the past and future stacks.
func (h *History) Len() (past, future int) { return len(h.past), len(h.future) }

func (h *History) Clear() {
	h.past = nil
	h.future = nil
}

func push(stack []*document.Document, doc *document.Document, limit int) []*document.Document {
	stack = append(stack, doc)
	if over := len(stack) - limit; over > 0 {
		clear(stack[:over])
		stack = stack[over:]
	}
	return stack
}
